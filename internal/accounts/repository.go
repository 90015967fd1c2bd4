package accounts

import "context"

// Repository defines persistence operations for the credential store.
// Implementations report a missing row with shared.ErrNotFound, distinct
// from storage failures, and uniqueness violations with shared.ErrConflict.
type Repository interface {
	// InsertAccount persists a new pending account and returns its id.
	InsertAccount(ctx context.Context, acct *Account) (int64, error)

	FindByUsername(ctx context.Context, username string) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)

	// ActivateBySecret flips the matching account to active and clears its
	// activation secret in one atomic step. Both effects become visible
	// together; under concurrent attempts exactly one caller succeeds and
	// the rest observe shared.ErrNotFound.
	ActivateBySecret(ctx context.Context, secret string) error

	// SetRecoverySecretHash stores the hash for the account with the given
	// email, overwriting any prior hash, and returns the account identity.
	// The overwrite invalidates every outstanding recovery request.
	SetRecoverySecretHash(ctx context.Context, email, hash string) (*Account, error)

	GetRecoverySecretHash(ctx context.Context, userID int64) (string, error)

	// SetPasswordAndClearRecovery stores the new password hash and clears
	// the recovery secret hash, guarded by the hash previously read. The
	// guard makes a completion racing a fresh recovery request fail instead
	// of succeeding against a stale secret.
	SetPasswordAndClearRecovery(ctx context.Context, userID int64, passwordHash, priorRecoveryHash string) error

	ListAccounts(ctx context.Context) ([]Account, error)
}
