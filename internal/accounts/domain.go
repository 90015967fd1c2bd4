package accounts

import "time"

// Activation states for an account. An active account never carries an
// activation secret.
const (
	StatePending = "pending"
	StateActive  = "active"
)

// Roles assignable to an account.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Account represents a registered user account.
type Account struct {
	ID                 int64
	Username           string
	Email              string
	PasswordHash       string
	State              string
	ActivationSecret   string
	RecoverySecretHash string
	Role               string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Active reports whether the account completed email activation.
func (a *Account) Active() bool {
	return a.State == StateActive
}
