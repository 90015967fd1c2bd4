package accounts

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Entropy sizes in bytes for generated secrets. Activation secrets are
// stored verbatim for lookup; recovery secrets are stored only as a hash.
const (
	activationSecretBytes = 48
	recoverySecretBytes   = 16
)

func generateSecret(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("accounts: generate secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
