package delivery

import (
	"context"
	"errors"
	"fmt"
	"log"
	"mime"
	"path/filepath"
)

// Attachment is one file going out with a delivery.
type Attachment struct {
	FileName    string
	ContentType string
	Content     []byte
}

// attachmentTypes covers extensions missing from the builtin mime table.
var attachmentTypes = map[string]string{
	".epub": "application/epub+zip",
	".csv":  "text/csv",
}

// AttachmentFor builds an Attachment, deriving the content type from the
// file extension.
func AttachmentFor(fileName string, content []byte) Attachment {
	ext := filepath.Ext(fileName)
	contentType := attachmentTypes[ext]
	if contentType == "" {
		contentType = mime.TypeByExtension(ext)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return Attachment{FileName: fileName, ContentType: contentType, Content: content}
}

// Provider is the adapter interface for delivery mechanisms. Implement
// this to add new delivery types (email today, chat webhooks tomorrow).
type Provider interface {
	// Type returns the delivery type this provider handles (e.g. "email").
	Type() string
	// Deliver sends the digest body and its attachments to the
	// provider's configured recipients.
	Deliver(ctx context.Context, subject, htmlBody string, attachments []Attachment) error
}

// Service fans a finished digest out to every registered provider.
type Service struct {
	providers map[string]Provider
}

func NewService(providers ...Provider) *Service {
	providerMap := make(map[string]Provider, len(providers))
	for _, p := range providers {
		providerMap[p.Type()] = p
	}
	return &Service{providers: providerMap}
}

// Enabled reports whether any provider is registered.
func (s *Service) Enabled() bool {
	return len(s.providers) > 0
}

// DeliverAll sends through every provider, collecting failures instead of
// stopping at the first. A digest that reaches some recipients beats one
// that reaches none.
func (s *Service) DeliverAll(ctx context.Context, subject, htmlBody string, attachments []Attachment) error {
	var errs []error
	for _, p := range s.providers {
		if err := p.Deliver(ctx, subject, htmlBody, attachments); err != nil {
			log.Printf("ERROR (DeliveryService): %s delivery failed: %v", p.Type(), err)
			errs = append(errs, fmt.Errorf("%s: %w", p.Type(), err))
			continue
		}
		log.Printf("INFO (DeliveryService): %s delivery completed", p.Type())
	}
	return errors.Join(errs...)
}
