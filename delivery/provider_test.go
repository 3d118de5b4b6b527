package delivery

import (
	"context"
	"errors"
	"testing"
)

type stubProvider struct {
	kind  string
	err   error
	calls int
}

func (s *stubProvider) Type() string { return s.kind }

func (s *stubProvider) Deliver(ctx context.Context, subject, htmlBody string, attachments []Attachment) error {
	s.calls++
	return s.err
}

func TestServiceDeliversThroughEveryProvider(t *testing.T) {
	email := &stubProvider{kind: "email"}
	webhook := &stubProvider{kind: "webhook"}

	svc := NewService(email, webhook)
	if !svc.Enabled() {
		t.Fatal("service with providers should be enabled")
	}

	if err := svc.DeliverAll(context.Background(), "s", "<p>b</p>", nil); err != nil {
		t.Fatalf("DeliverAll failed: %v", err)
	}
	if email.calls != 1 || webhook.calls != 1 {
		t.Errorf("providers called %d and %d times, want 1 each", email.calls, webhook.calls)
	}
}

func TestServiceCollectsFailuresWithoutStopping(t *testing.T) {
	failing := &stubProvider{kind: "email", err: errors.New("relay down")}
	healthy := &stubProvider{kind: "webhook"}

	err := NewService(failing, healthy).DeliverAll(context.Background(), "s", "b", nil)
	if err == nil {
		t.Fatal("expected the failure to surface")
	}
	if healthy.calls != 1 {
		t.Error("failure in one provider blocked another")
	}
}

func TestServiceWithoutProviders(t *testing.T) {
	svc := NewService()
	if svc.Enabled() {
		t.Error("empty service reports enabled")
	}
	if err := svc.DeliverAll(context.Background(), "s", "b", nil); err != nil {
		t.Errorf("empty service should deliver to nobody without error, got %v", err)
	}
}

func TestAttachmentFor(t *testing.T) {
	tests := []struct {
		file string
		want string
	}{
		{"digest.pdf", "application/pdf"},
		{"digest.epub", "application/epub+zip"},
		{"digest.csv", "text/csv"},
		{"digest.bin", "application/octet-stream"},
	}
	for _, tt := range tests {
		att := AttachmentFor(tt.file, []byte("x"))
		if att.ContentType != tt.want {
			t.Errorf("AttachmentFor(%q).ContentType = %q, want %q", tt.file, att.ContentType, tt.want)
		}
		if att.FileName != tt.file {
			t.Errorf("file name = %q", att.FileName)
		}
	}
}
