package delivery

import (
	"bytes"
	"context"
	"net/smtp"
	"strings"
	"testing"

	"github.com/jhillyerd/enmime"
)

type capturedSend struct {
	addr string
	from string
	to   []string
	msg  []byte
}

func captureProvider(cfg SMTPConfig) (*EmailProvider, *capturedSend) {
	captured := &capturedSend{}
	p := NewEmailProvider(cfg)
	p.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		captured.addr = addr
		captured.from = from
		captured.to = append([]string(nil), to...)
		captured.msg = append([]byte(nil), msg...)
		return nil
	}
	return p, captured
}

func TestEmailProviderBuildsMultipartMessage(t *testing.T) {
	cfg := SMTPConfig{
		Host: "smtp.example.com",
		Port: 587,
		From: "digest@example.com",
		To:   []string{"reader@example.com", "archive@example.com"},
	}
	p, captured := captureProvider(cfg)

	attachments := []Attachment{
		AttachmentFor("news_digest_20250102_030405.pdf", []byte("%PDF-fake")),
		AttachmentFor("news_digest_20250102_030405.epub", []byte("PK-fake")),
	}
	err := p.Deliver(context.Background(), "AI News Digest", "<h1>Digest</h1><p>Body</p>", attachments)
	if err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}

	if captured.addr != "smtp.example.com:587" {
		t.Errorf("smtp addr = %q", captured.addr)
	}
	if captured.from != "digest@example.com" {
		t.Errorf("envelope from = %q", captured.from)
	}
	if len(captured.to) != 2 || captured.to[0] != "reader@example.com" {
		t.Errorf("envelope recipients = %v", captured.to)
	}

	envelope, err := enmime.ReadEnvelope(bytes.NewReader(captured.msg))
	if err != nil {
		t.Fatalf("sent message is not parseable mime: %v", err)
	}
	if got := envelope.GetHeader("Subject"); got != "AI News Digest" {
		t.Errorf("subject = %q", got)
	}
	if !strings.Contains(envelope.HTML, "<h1>Digest</h1>") {
		t.Errorf("html body missing: %q", envelope.HTML)
	}
	if envelope.Text == "" {
		t.Error("plain-text alternative missing")
	}
	if len(envelope.Attachments) != 2 {
		t.Fatalf("expected 2 attachments, got %d", len(envelope.Attachments))
	}
	names := []string{envelope.Attachments[0].FileName, envelope.Attachments[1].FileName}
	for _, want := range []string{"news_digest_20250102_030405.pdf", "news_digest_20250102_030405.epub"} {
		if names[0] != want && names[1] != want {
			t.Errorf("attachment %q missing from %v", want, names)
		}
	}
}

func TestEmailProviderWithoutAttachments(t *testing.T) {
	cfg := SMTPConfig{Host: "smtp.example.com", Port: 25, From: "a@example.com", To: []string{"b@example.com"}}
	p, captured := captureProvider(cfg)

	if err := p.Deliver(context.Background(), "Subject", "<p>x</p>", nil); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}

	envelope, err := enmime.ReadEnvelope(bytes.NewReader(captured.msg))
	if err != nil {
		t.Fatalf("sent message is not parseable mime: %v", err)
	}
	if len(envelope.Attachments) != 0 {
		t.Errorf("unexpected attachments: %d", len(envelope.Attachments))
	}
}
