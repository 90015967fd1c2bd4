package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/webstore/webstore/internal/platform/httpx"
	"github.com/webstore/webstore/internal/shared"
	"github.com/webstore/webstore/internal/token"
)

type fakeRepo struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*Account
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{nextID: 1, byID: map[int64]*Account{}}
}

func (f *fakeRepo) InsertAccount(ctx context.Context, acct *Account) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.Email == acct.Email {
			return 0, fmt.Errorf("email %w", shared.ErrConflict)
		}
		if existing.Username == acct.Username {
			return 0, fmt.Errorf("username %w", shared.ErrConflict)
		}
	}
	stored := *acct
	stored.ID = f.nextID
	f.nextID++
	f.byID[stored.ID] = &stored
	return stored.ID, nil
}

func (f *fakeRepo) FindByUsername(ctx context.Context, username string) (*Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, acct := range f.byID {
		if acct.Username == username {
			copied := *acct
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (f *fakeRepo) FindByEmail(ctx context.Context, email string) (*Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, acct := range f.byID {
		if acct.Email == email {
			copied := *acct
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (f *fakeRepo) ActivateBySecret(ctx context.Context, secret string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, acct := range f.byID {
		if acct.ActivationSecret != "" && acct.ActivationSecret == secret {
			acct.State = StateActive
			acct.ActivationSecret = ""
			return nil
		}
	}
	return shared.ErrNotFound
}

func (f *fakeRepo) SetRecoverySecretHash(ctx context.Context, email, hash string) (*Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, acct := range f.byID {
		if acct.Email == email {
			acct.RecoverySecretHash = hash
			copied := *acct
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (f *fakeRepo) GetRecoverySecretHash(ctx context.Context, userID int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	acct, ok := f.byID[userID]
	if !ok || acct.RecoverySecretHash == "" {
		return "", shared.ErrNotFound
	}
	return acct.RecoverySecretHash, nil
}

func (f *fakeRepo) SetPasswordAndClearRecovery(ctx context.Context, userID int64, passwordHash, priorRecoveryHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	acct, ok := f.byID[userID]
	if !ok || acct.RecoverySecretHash != priorRecoveryHash {
		return shared.ErrNotFound
	}
	acct.PasswordHash = passwordHash
	acct.RecoverySecretHash = ""
	return nil
}

func (f *fakeRepo) ListAccounts(ctx context.Context) ([]Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Account
	for _, acct := range f.byID {
		out = append(out, *acct)
	}
	return out, nil
}

func (f *fakeRepo) get(id int64) *Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	acct := f.byID[id]
	if acct == nil {
		return nil
	}
	copied := *acct
	return &copied
}

type sentNotification struct {
	kind     NotificationKind
	email    string
	username string
	token    string
}

// fakeNotifier records notifications on a channel so tests can wait for the
// asynchronous delivery goroutine.
type fakeNotifier struct {
	sent chan sentNotification
	err  error
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{sent: make(chan sentNotification, 4)}
}

func (f *fakeNotifier) Notify(ctx context.Context, kind NotificationKind, email, username, token string) error {
	if f.err != nil {
		return f.err
	}
	f.sent <- sentNotification{kind: kind, email: email, username: username, token: token}
	return nil
}

func (f *fakeNotifier) wait(t *testing.T) sentNotification {
	t.Helper()
	select {
	case n := <-f.sent:
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
		return sentNotification{}
	}
}

func newTestService(t *testing.T) (*Service, *fakeRepo, *fakeNotifier, *token.Signer) {
	t.Helper()
	repo := newFakeRepo()
	notifier := newFakeNotifier()
	signer := token.NewSigner("test-secret")
	svc := NewService(repo, NewBcryptHasher(4), signer, notifier, nil)
	return svc, repo, notifier, signer
}

func register(t *testing.T, svc *Service, notifier *fakeNotifier, username, email, password string) sentNotification {
	t.Helper()
	if err := svc.Register(context.Background(), username, email, password); err != nil {
		t.Fatalf("Register: %v", err)
	}
	n := notifier.wait(t)
	if n.kind != NotifyActivation {
		t.Fatalf("notification kind = %q, want activation", n.kind)
	}
	return n
}

func TestRegisterStoresPendingAccount(t *testing.T) {
	svc, repo, notifier, _ := newTestService(t)
	n := register(t, svc, notifier, "alice", "alice@example.com", "secret123")

	acct, err := repo.FindByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("FindByUsername: %v", err)
	}
	if acct.State != StatePending {
		t.Fatalf("state = %q, want pending", acct.State)
	}
	if acct.Role != RoleUser {
		t.Fatalf("role = %q, want user", acct.Role)
	}
	if acct.PasswordHash == "secret123" {
		t.Fatal("password stored in plaintext")
	}
	if acct.ActivationSecret == "" || acct.ActivationSecret != n.token {
		t.Fatal("mailed token must match the stored activation secret")
	}
	if len(acct.ActivationSecret) != activationSecretBytes*2 {
		t.Fatalf("activation secret length = %d", len(acct.ActivationSecret))
	}
}

func TestRegisterSurvivesNotifierFailure(t *testing.T) {
	repo := newFakeRepo()
	notifier := newFakeNotifier()
	notifier.err = errors.New("smtp down")
	svc := NewService(repo, NewBcryptHasher(4), token.NewSigner("test-secret"), notifier, nil)

	if err := svc.Register(context.Background(), "alice", "alice@example.com", "secret123"); err != nil {
		t.Fatalf("Register must not surface delivery failures: %v", err)
	}
	if _, err := repo.FindByUsername(context.Background(), "alice"); err != nil {
		t.Fatalf("account not stored: %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	cases := []struct {
		name     string
		username string
		email    string
		password string
		want     string
	}{
		{"short username", "ab", "a@example.com", "secret123", "between 3 and 20"},
		{"long username", strings.Repeat("a", 21), "a@example.com", "secret123", "between 3 and 20"},
		{"bad email", "alice", "not-an-email", "secret123", "email address invalid"},
		{"short password", "alice", "a@example.com", "12345", "between 6 and 16"},
		{"long password", "alice", "a@example.com", strings.Repeat("p", 17), "between 6 and 16"},
		{"missing username", "", "a@example.com", "secret123", "username is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.Register(context.Background(), tc.username, tc.email, tc.password)
			if !errors.Is(err, httpx.ErrValidation) {
				t.Fatalf("want validation error, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestRegisterDuplicate(t *testing.T) {
	svc, _, notifier, _ := newTestService(t)
	register(t, svc, notifier, "alice", "alice@example.com", "secret123")

	err := svc.Register(context.Background(), "alice", "other@example.com", "secret123")
	if !errors.Is(err, httpx.ErrDuplicate) {
		t.Fatalf("want duplicate error, got %v", err)
	}
	err = svc.Register(context.Background(), "bob", "alice@example.com", "secret123")
	if !errors.Is(err, httpx.ErrDuplicate) {
		t.Fatalf("want duplicate error, got %v", err)
	}
}

func TestActivateIsOneShot(t *testing.T) {
	svc, repo, notifier, _ := newTestService(t)
	n := register(t, svc, notifier, "alice", "alice@example.com", "secret123")

	if err := svc.Activate(context.Background(), n.token); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	acct, _ := repo.FindByUsername(context.Background(), "alice")
	if !acct.Active() {
		t.Fatal("account not active after activation")
	}
	if acct.ActivationSecret != "" {
		t.Fatal("activation secret not cleared")
	}

	// Replay with the same token must fail.
	err := svc.Activate(context.Background(), n.token)
	if !errors.Is(err, httpx.ErrNotFound) {
		t.Fatalf("want not-found on replay, got %v", err)
	}
}

func TestActivateUnknownToken(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	if err := svc.Activate(context.Background(), "bogus"); !errors.Is(err, httpx.ErrNotFound) {
		t.Fatalf("want not-found, got %v", err)
	}
	if err := svc.Activate(context.Background(), ""); !errors.Is(err, httpx.ErrValidation) {
		t.Fatalf("want validation error, got %v", err)
	}
}

func TestLoginIssuesSessionToken(t *testing.T) {
	svc, _, notifier, signer := newTestService(t)
	n := register(t, svc, notifier, "alice", "alice@example.com", "secret123")
	if err := svc.Activate(context.Background(), n.token); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	raw, err := svc.Login(context.Background(), "alice", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	claims, err := signer.VerifySession(raw)
	if err != nil {
		t.Fatalf("VerifySession: %v", err)
	}
	if claims.Username != "alice" || claims.Role != RoleUser {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestLoginFailuresAreUniform(t *testing.T) {
	svc, _, notifier, _ := newTestService(t)
	n := register(t, svc, notifier, "alice", "alice@example.com", "secret123")
	if err := svc.Activate(context.Background(), n.token); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	_, unknownErr := svc.Login(context.Background(), "nobody", "secret123")
	_, wrongErr := svc.Login(context.Background(), "alice", "wrongpass")
	if !errors.Is(unknownErr, httpx.ErrUnauthorized) || !errors.Is(wrongErr, httpx.ErrUnauthorized) {
		t.Fatalf("want unauthorized, got %v and %v", unknownErr, wrongErr)
	}
	// Unknown user and wrong password must be indistinguishable.
	if unknownErr.Error() != wrongErr.Error() {
		t.Fatalf("messages differ: %q vs %q", unknownErr, wrongErr)
	}
}

func TestLoginRequiresActivation(t *testing.T) {
	svc, _, notifier, _ := newTestService(t)
	register(t, svc, notifier, "alice", "alice@example.com", "secret123")

	_, err := svc.Login(context.Background(), "alice", "secret123")
	if !errors.Is(err, httpx.ErrUnauthorized) {
		t.Fatalf("want unauthorized, got %v", err)
	}
	if !strings.Contains(err.Error(), "verify your email") {
		t.Fatalf("pending login must be distinguishable, got %q", err)
	}
}

func activeAccount(t *testing.T, svc *Service, notifier *fakeNotifier) {
	t.Helper()
	n := register(t, svc, notifier, "alice", "alice@example.com", "secret123")
	if err := svc.Activate(context.Background(), n.token); err != nil {
		t.Fatalf("Activate: %v", err)
	}
}

func TestRecoveryRoundTrip(t *testing.T) {
	svc, repo, notifier, _ := newTestService(t)
	activeAccount(t, svc, notifier)

	if err := svc.RequestRecovery(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("RequestRecovery: %v", err)
	}
	n := notifier.wait(t)
	if n.kind != NotifyRecovery {
		t.Fatalf("notification kind = %q, want recovery", n.kind)
	}

	err := svc.CompleteRecovery(context.Background(), n.token, "newsecret", "newsecret")
	if err != nil {
		t.Fatalf("CompleteRecovery: %v", err)
	}
	acct := repo.get(1)
	if acct.RecoverySecretHash != "" {
		t.Fatal("recovery hash not cleared after completion")
	}
	if _, err := svc.Login(context.Background(), "alice", "newsecret"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
	if _, err := svc.Login(context.Background(), "alice", "secret123"); err == nil {
		t.Fatal("old password still accepted")
	}
}

func TestRecoveryUnknownEmailIsSilent(t *testing.T) {
	svc, _, notifier, _ := newTestService(t)
	if err := svc.RequestRecovery(context.Background(), "ghost@example.com"); err != nil {
		t.Fatalf("RequestRecovery: %v", err)
	}
	select {
	case n := <-notifier.sent:
		t.Fatalf("unexpected notification for unknown email: %+v", n)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRecoveryNewRequestInvalidatesPrior(t *testing.T) {
	svc, _, notifier, _ := newTestService(t)
	activeAccount(t, svc, notifier)

	if err := svc.RequestRecovery(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("RequestRecovery: %v", err)
	}
	first := notifier.wait(t)
	if err := svc.RequestRecovery(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("RequestRecovery: %v", err)
	}
	second := notifier.wait(t)

	err := svc.CompleteRecovery(context.Background(), first.token, "newsecret", "newsecret")
	if !errors.Is(err, httpx.ErrUnauthorized) {
		t.Fatalf("stale carrier must be rejected, got %v", err)
	}
	if err := svc.CompleteRecovery(context.Background(), second.token, "newsecret", "newsecret"); err != nil {
		t.Fatalf("fresh carrier rejected: %v", err)
	}
}

func TestRecoveryCarrierCannotBeReplayed(t *testing.T) {
	svc, _, notifier, _ := newTestService(t)
	activeAccount(t, svc, notifier)

	if err := svc.RequestRecovery(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("RequestRecovery: %v", err)
	}
	n := notifier.wait(t)
	if err := svc.CompleteRecovery(context.Background(), n.token, "newsecret", "newsecret"); err != nil {
		t.Fatalf("CompleteRecovery: %v", err)
	}
	err := svc.CompleteRecovery(context.Background(), n.token, "othersecret", "othersecret")
	if !errors.Is(err, httpx.ErrUnauthorized) {
		t.Fatalf("replayed carrier must be rejected, got %v", err)
	}
}

func TestCompleteRecoveryValidation(t *testing.T) {
	svc, _, notifier, signer := newTestService(t)
	activeAccount(t, svc, notifier)

	err := svc.CompleteRecovery(context.Background(), "whatever", "one", "two")
	if !errors.Is(err, httpx.ErrValidation) {
		t.Fatalf("mismatched passwords: want validation error, got %v", err)
	}
	err = svc.CompleteRecovery(context.Background(), "whatever", "short", "short")
	if !errors.Is(err, httpx.ErrValidation) {
		t.Fatalf("short password: want validation error, got %v", err)
	}

	carrier, errSign := signer.IssueRecovery(1, "never-stored")
	if errSign != nil {
		t.Fatalf("IssueRecovery: %v", errSign)
	}
	err = svc.CompleteRecovery(context.Background(), carrier, "newsecret", "newsecret")
	if !errors.Is(err, httpx.ErrUnauthorized) {
		t.Fatalf("carrier without open window: want unauthorized, got %v", err)
	}

	err = svc.CompleteRecovery(context.Background(), "garbage", "newsecret", "newsecret")
	if !errors.Is(err, httpx.ErrUnauthorized) {
		t.Fatalf("garbage carrier: want unauthorized, got %v", err)
	}
}

func TestCompleteRecoveryExpiredCarrier(t *testing.T) {
	svc, _, notifier, _ := newTestService(t)
	activeAccount(t, svc, notifier)

	past := time.Now().Add(-time.Hour)
	claims := token.RecoveryClaims{
		UserID: 1,
		Secret: "stale",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(past.Add(-token.RecoveryTTL)),
			ExpiresAt: jwt.NewNumericDate(past),
		},
	}
	carrier, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	err = svc.CompleteRecovery(context.Background(), carrier, "newsecret", "newsecret")
	if !errors.Is(err, httpx.ErrUnauthorized) {
		t.Fatalf("expired carrier: want unauthorized, got %v", err)
	}
	if !strings.Contains(err.Error(), "expired") {
		t.Fatalf("expired carrier message = %q, want mention of expiry", err)
	}
}
