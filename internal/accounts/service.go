package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/webstore/webstore/internal/platform/httpx"
	"github.com/webstore/webstore/internal/shared"
	"github.com/webstore/webstore/internal/token"
)

const notifyTimeout = 10 * time.Second

// Service orchestrates the account credential lifecycle: registration with
// deferred email activation, login, and double-token password recovery.
type Service struct {
	repo     Repository
	hasher   Hasher
	signer   *token.Signer
	notifier Notifier
	logger   *slog.Logger
	validate *validator.Validate
}

// NewService constructs a Service.
func NewService(repo Repository, hasher Hasher, signer *token.Signer, notifier Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		hasher:   hasher,
		signer:   signer,
		notifier: notifier,
		logger:   logger,
		validate: validator.New(),
	}
}

type registerInput struct {
	Username string `validate:"required,min=3,max=20"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6,max=16"`
}

// Register validates the input, stores a pending account with a fresh
// activation secret, and emails the secret to the user. The caller gets a
// response without waiting on delivery.
func (s *Service) Register(ctx context.Context, username, email, password string) error {
	input := registerInput{Username: username, Email: email, Password: password}
	if err := s.validate.Struct(input); err != nil {
		return validationError(err)
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("accounts: hash password: %w", err)
	}
	activationSecret, err := generateSecret(activationSecretBytes)
	if err != nil {
		return err
	}

	acct := &Account{
		Username:         username,
		Email:            email,
		PasswordHash:     passwordHash,
		State:            StatePending,
		ActivationSecret: activationSecret,
		Role:             RoleUser,
	}
	if _, err := s.repo.InsertAccount(ctx, acct); err != nil {
		if errors.Is(err, shared.ErrConflict) {
			return fmt.Errorf("%w: %s", httpx.ErrDuplicate, err.Error())
		}
		return fmt.Errorf("accounts: insert account: %w", err)
	}

	s.notifyAsync(NotifyActivation, email, username, activationSecret)
	return nil
}

// Activate flips the account holding the secret to active. The secret is
// one-shot: the store clears it in the same step, so a replay fails.
func (s *Service) Activate(ctx context.Context, activationSecret string) error {
	if activationSecret == "" {
		return fmt.Errorf("%w: activation token is required", httpx.ErrValidation)
	}
	if err := s.repo.ActivateBySecret(ctx, activationSecret); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("%w: invalid activation token", httpx.ErrNotFound)
		}
		return fmt.Errorf("accounts: activate: %w", err)
	}
	return nil
}

// Login verifies the credentials and returns a signed session token. The
// failure message never reveals whether the username exists; only the
// not-yet-activated case is distinguishable.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		return "", fmt.Errorf("%w: username and password are required", httpx.ErrValidation)
	}

	acct, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return "", wrongCredentials()
		}
		return "", fmt.Errorf("accounts: find by username: %w", err)
	}
	if !s.hasher.Verify(password, acct.PasswordHash) {
		return "", wrongCredentials()
	}
	if !acct.Active() {
		return "", fmt.Errorf("%w: you need to verify your email before logging in", httpx.ErrUnauthorized)
	}

	session, err := s.signer.IssueSession(acct.ID, acct.Role, acct.Username)
	if err != nil {
		return "", fmt.Errorf("accounts: issue session: %w", err)
	}
	return session, nil
}

// RequestRecovery opens a recovery window for the account behind the email
// and mails a carrier token embedding the raw secret. The acknowledgment is
// identical whether or not the email exists, and a new request silently
// invalidates any prior outstanding carrier.
func (s *Service) RequestRecovery(ctx context.Context, email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", httpx.ErrValidation)
	}

	secret, err := generateSecret(recoverySecretBytes)
	if err != nil {
		return err
	}
	secretHash, err := s.hasher.Hash(secret)
	if err != nil {
		return fmt.Errorf("accounts: hash recovery secret: %w", err)
	}

	acct, err := s.repo.SetRecoverySecretHash(ctx, email, secretHash)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			// Unknown email: mutate nothing, acknowledge the same way.
			return nil
		}
		return fmt.Errorf("accounts: set recovery hash: %w", err)
	}

	carrier, err := s.signer.IssueRecovery(acct.ID, secret)
	if err != nil {
		return fmt.Errorf("accounts: issue recovery token: %w", err)
	}

	s.notifyAsync(NotifyRecovery, acct.Email, acct.Username, carrier)
	return nil
}

// CompleteRecovery verifies the carrier token against the persisted secret
// hash and sets the new password. The stored hash is cleared in the same
// guarded step, so the carrier cannot be replayed even before its expiry.
func (s *Service) CompleteRecovery(ctx context.Context, carrier, newPassword, confirmPassword string) error {
	if newPassword == "" || newPassword != confirmPassword {
		return fmt.Errorf("%w: please provide two matching passwords", httpx.ErrValidation)
	}
	if err := s.validate.Var(newPassword, "min=6,max=16"); err != nil {
		return fmt.Errorf("%w: your password must be between 6 and 16 characters long", httpx.ErrValidation)
	}

	claims, err := s.signer.VerifyRecovery(carrier)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return fmt.Errorf("%w: your recovery token has expired", httpx.ErrUnauthorized)
		}
		return fmt.Errorf("%w: invalid recovery token", httpx.ErrUnauthorized)
	}

	storedHash, err := s.repo.GetRecoverySecretHash(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("%w: invalid recovery token", httpx.ErrUnauthorized)
		}
		return fmt.Errorf("accounts: get recovery hash: %w", err)
	}
	if !s.hasher.Verify(claims.Secret, storedHash) {
		return fmt.Errorf("%w: invalid recovery token", httpx.ErrUnauthorized)
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("accounts: hash password: %w", err)
	}
	if err := s.repo.SetPasswordAndClearRecovery(ctx, claims.UserID, passwordHash, storedHash); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			// The hash changed or was cleared since we read it.
			return fmt.Errorf("%w: invalid recovery token", httpx.ErrUnauthorized)
		}
		return fmt.Errorf("accounts: set password: %w", err)
	}
	return nil
}

// ListAccounts returns all accounts for the admin listing.
func (s *Service) ListAccounts(ctx context.Context) ([]Account, error) {
	return s.repo.ListAccounts(ctx)
}

// notifyAsync delivers the token without blocking the caller. A failed
// notification is logged and dropped.
func (s *Service) notifyAsync(kind NotificationKind, email, username, tok string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.notifier.Notify(ctx, kind, email, username, tok); err != nil {
			s.logger.Warn("send notification",
				slog.String("kind", string(kind)),
				slog.Any("error", err))
		}
	}()
}

func wrongCredentials() error {
	return fmt.Errorf("%w: wrong credentials", httpx.ErrUnauthorized)
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		switch fe := fieldErrs[0]; fe.Field() {
		case "Username":
			if fe.Tag() == "required" {
				return fmt.Errorf("%w: username is required", httpx.ErrValidation)
			}
			return fmt.Errorf("%w: the length of username must be between 3 and 20 characters long", httpx.ErrValidation)
		case "Email":
			if fe.Tag() == "required" {
				return fmt.Errorf("%w: email is required", httpx.ErrValidation)
			}
			return fmt.Errorf("%w: email address invalid", httpx.ErrValidation)
		case "Password":
			if fe.Tag() == "required" {
				return fmt.Errorf("%w: password is required", httpx.ErrValidation)
			}
			return fmt.Errorf("%w: your password must be between 6 and 16 characters long", httpx.ErrValidation)
		}
	}
	return fmt.Errorf("%w: %v", httpx.ErrValidation, err)
}
