package delivery

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"

	"github.com/jhillyerd/enmime"
)

const plainAlternative = "Your news digest is attached. Open the HTML version for the formatted edition."

// SMTPConfig holds everything needed to reach an SMTP relay.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

func (c SMTPConfig) addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailProvider sends the digest as a multipart email over SMTP, the HTML
// report as the body and the other formats as attachments.
type EmailProvider struct {
	cfg  SMTPConfig
	send sendFunc
}

func NewEmailProvider(cfg SMTPConfig) *EmailProvider {
	return &EmailProvider{cfg: cfg, send: smtp.SendMail}
}

func (p *EmailProvider) Type() string { return "email" }

func (p *EmailProvider) Deliver(ctx context.Context, subject, htmlBody string, attachments []Attachment) error {
	builder := enmime.Builder().
		From("newsbrief", p.cfg.From).
		Subject(subject).
		Text([]byte(plainAlternative)).
		HTML([]byte(htmlBody))
	for _, to := range p.cfg.To {
		builder = builder.To("", to)
	}
	for _, att := range attachments {
		builder = builder.AddAttachment(att.Content, att.ContentType, att.FileName)
	}

	root, err := builder.Build()
	if err != nil {
		return fmt.Errorf("failed to build mime message: %w", err)
	}

	var msg bytes.Buffer
	if err := root.Encode(&msg); err != nil {
		return fmt.Errorf("failed to encode mime message: %w", err)
	}

	var auth smtp.Auth
	if p.cfg.Username != "" {
		auth = smtp.PlainAuth("", p.cfg.Username, p.cfg.Password, p.cfg.Host)
	}
	if err := p.send(p.cfg.addr(), auth, p.cfg.From, p.cfg.To, msg.Bytes()); err != nil {
		return fmt.Errorf("smtp send via %s failed: %w", p.cfg.addr(), err)
	}
	return nil
}
