package jobs

import (
	"context"
	"fmt"

	"github.com/webstore/webstore/internal/accounts"
	"github.com/webstore/webstore/internal/mail"
	"github.com/webstore/webstore/internal/observability"
)

// EmailNotifier implements accounts.Notifier by enqueueing delivery on the
// job queue. The account lifecycle never waits on SMTP.
type EmailNotifier struct {
	client  *Client
	metrics *observability.Metrics
}

// NewEmailNotifier constructs an EmailNotifier. metrics may be nil.
func NewEmailNotifier(client *Client, metrics *observability.Metrics) *EmailNotifier {
	return &EmailNotifier{client: client, metrics: metrics}
}

// Notify renders the template for kind and enqueues the email.
func (n *EmailNotifier) Notify(ctx context.Context, kind accounts.NotificationKind, email, username, token string) error {
	var msg mail.Message
	switch kind {
	case accounts.NotifyActivation:
		msg = mail.ActivationMessage(email, username, token)
	case accounts.NotifyRecovery:
		msg = mail.RecoveryMessage(email, username, token)
	default:
		return fmt.Errorf("jobs: unknown notification kind %q", kind)
	}
	_, err := n.client.EnqueueSendEmail(ctx, SendEmailPayload{
		To:      msg.To,
		Subject: msg.Subject,
		Body:    msg.Body,
	})
	if err != nil {
		return err
	}
	n.metrics.EmailEnqueued()
	return nil
}

var _ accounts.Notifier = (*EmailNotifier)(nil)
