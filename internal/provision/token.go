package provision

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// TokenBytes of entropy per token; the hex form is twice as long.
const TokenBytes = 16

// NewToken returns 128 random bits from the system CSPRNG as 32 lowercase hex characters.
func NewToken() (string, error) {
	b := make([]byte, TokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return hex.EncodeToString(b), nil
}
