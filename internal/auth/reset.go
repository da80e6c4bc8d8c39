package auth

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// ResetTokenTTL é a validade do link de redefinição de palavra-passe.
const ResetTokenTTL = time.Hour

// NewResetToken gera um token aleatório para redefinição de palavra-passe.
func NewResetToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
