package jobs

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"

	"github.com/webstore/webstore/internal/mail"
)

type fakeMailer struct {
	sent []mail.Message
	err  error
}

func (f *fakeMailer) Send(ctx context.Context, msg mail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func TestSendEmailTaskRoundTrip(t *testing.T) {
	task, err := NewSendEmailTask(SendEmailPayload{
		To:      "alice@example.com",
		Subject: "Verify your webstore account",
		Body:    "token inside",
	})
	if err != nil {
		t.Fatalf("NewSendEmailTask: %v", err)
	}
	if task.Type() != TaskTypeSendEmail {
		t.Fatalf("task type = %q, want %q", task.Type(), TaskTypeSendEmail)
	}

	mailer := &fakeMailer{}
	handler := NewSendEmailHandler(mailer, slog.Default())
	if err := handler(context.Background(), task); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(mailer.sent))
	}
	if mailer.sent[0].To != "alice@example.com" || mailer.sent[0].Body != "token inside" {
		t.Fatalf("unexpected message: %+v", mailer.sent[0])
	}
}

func TestSendEmailHandlerSkipsBadPayload(t *testing.T) {
	handler := NewSendEmailHandler(&fakeMailer{}, slog.Default())
	task := asynq.NewTask(TaskTypeSendEmail, []byte("not json"))
	if err := handler(context.Background(), task); !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("want SkipRetry, got %v", err)
	}
}

func TestSendEmailHandlerRetriesDeliveryFailure(t *testing.T) {
	mailer := &fakeMailer{err: errors.New("smtp down")}
	handler := NewSendEmailHandler(mailer, slog.Default())
	task, err := NewSendEmailTask(SendEmailPayload{To: "alice@example.com"})
	if err != nil {
		t.Fatalf("NewSendEmailTask: %v", err)
	}
	if err := handler(context.Background(), task); err == nil {
		t.Fatal("delivery failure must be surfaced for retry")
	}
}

func TestEmailNotifierRendersTemplates(t *testing.T) {
	// The notifier renders and enqueues; rendering is covered here, the
	// enqueue path needs a live broker and is exercised by the worker.
	msg := mail.ActivationMessage("alice@example.com", "alice", "secret-token")
	if msg.To != "alice@example.com" {
		t.Fatalf("to = %q", msg.To)
	}
	if msg.Subject == "" || msg.Body == "" {
		t.Fatalf("empty subject or body: %+v", msg)
	}
	rec := mail.RecoveryMessage("alice@example.com", "alice", "carrier-token")
	if rec.Subject == msg.Subject {
		t.Fatal("activation and recovery subjects must differ")
	}
}
