package accounts

import "context"

// NotificationKind selects the email template carrying a token to the user.
type NotificationKind string

const (
	// NotifyActivation carries an activation secret after registration.
	NotifyActivation NotificationKind = "activation"
	// NotifyRecovery carries a recovery carrier token.
	NotifyRecovery NotificationKind = "recovery"
)

// Notifier delivers a token to a user-controlled address out-of-band.
// The lifecycle never observes delivery outcomes; failures are logged by
// the caller and dropped.
type Notifier interface {
	Notify(ctx context.Context, kind NotificationKind, email, username, token string) error
}
