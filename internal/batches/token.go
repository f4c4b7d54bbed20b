package batches

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// NewToken returns an opaque authorization token: 32 random bytes,
// base64url without padding.
func NewToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
