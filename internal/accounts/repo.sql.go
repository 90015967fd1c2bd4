package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/webstore/webstore/internal/shared"
)

// DBTX is the subset of pgxpool.Pool used by the repository.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db DBTX
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(db DBTX) *PGRepository {
	return &PGRepository{db: db}
}

const accountColumns = `id, username, email, password_hash, state, COALESCE(activation_secret, ''), COALESCE(recovery_secret_hash, ''), role, created_at, updated_at`

func scanAccount(row pgx.Row) (*Account, error) {
	var acct Account
	err := row.Scan(
		&acct.ID,
		&acct.Username,
		&acct.Email,
		&acct.PasswordHash,
		&acct.State,
		&acct.ActivationSecret,
		&acct.RecoverySecretHash,
		&acct.Role,
		&acct.CreatedAt,
		&acct.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &acct, nil
}

// InsertAccount persists a new pending account.
func (r *PGRepository) InsertAccount(ctx context.Context, acct *Account) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO accounts (username, email, password_hash, state, activation_secret, role)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		acct.Username, acct.Email, acct.PasswordHash, acct.State, acct.ActivationSecret, acct.Role,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, fmt.Errorf("%s %w", conflictField(pgErr.ConstraintName), shared.ErrConflict)
		}
		return 0, err
	}
	return id, nil
}

// conflictField maps a unique constraint name to the offending field so the
// caller can surface a structured conflict.
func conflictField(constraint string) string {
	switch {
	case strings.Contains(constraint, "email"):
		return "email"
	case strings.Contains(constraint, "username"):
		return "username"
	default:
		return "value"
	}
}

// FindByUsername fetches an account by username.
func (r *PGRepository) FindByUsername(ctx context.Context, username string) (*Account, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE username = $1`, username)
	return scanAccount(row)
}

// FindByEmail fetches an account by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
	return scanAccount(row)
}

// ActivateBySecret activates the account holding the secret. The single
// UPDATE flips the state and clears the secret together, so a second
// attempt with the same secret matches nothing.
func (r *PGRepository) ActivateBySecret(ctx context.Context, secret string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE accounts
		 SET state = $1, activation_secret = NULL, updated_at = now()
		 WHERE activation_secret = $2`,
		StateActive, secret)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetRecoverySecretHash overwrites the recovery secret hash for the account
// with the given email and returns the account identity.
func (r *PGRepository) SetRecoverySecretHash(ctx context.Context, email, hash string) (*Account, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE accounts
		 SET recovery_secret_hash = $2, updated_at = now()
		 WHERE email = $1
		 RETURNING id, username, email`,
		email, hash)
	var acct Account
	if err := row.Scan(&acct.ID, &acct.Username, &acct.Email); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &acct, nil
}

// GetRecoverySecretHash returns the stored recovery secret hash, or
// shared.ErrNotFound when the account is missing or no recovery is open.
func (r *PGRepository) GetRecoverySecretHash(ctx context.Context, userID int64) (string, error) {
	var hash string
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(recovery_secret_hash, '') FROM accounts WHERE id = $1`, userID,
	).Scan(&hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", shared.ErrNotFound
		}
		return "", err
	}
	if hash == "" {
		return "", shared.ErrNotFound
	}
	return hash, nil
}

// SetPasswordAndClearRecovery stores the new password hash and clears the
// recovery hash, but only while the stored hash still equals the one the
// caller verified against.
func (r *PGRepository) SetPasswordAndClearRecovery(ctx context.Context, userID int64, passwordHash, priorRecoveryHash string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE accounts
		 SET password_hash = $2, recovery_secret_hash = NULL, updated_at = now()
		 WHERE id = $1 AND recovery_secret_hash = $3`,
		userID, passwordHash, priorRecoveryHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListAccounts returns all accounts ordered by id.
func (r *PGRepository) ListAccounts(ctx context.Context) ([]Account, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, username, email, state, role, created_at FROM accounts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		var acct Account
		if err := rows.Scan(&acct.ID, &acct.Username, &acct.Email, &acct.State, &acct.Role, &acct.CreatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, acct)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return accounts, nil
}

var _ Repository = (*PGRepository)(nil)
