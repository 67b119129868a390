package utils

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const base62Chars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const (
	// PublicIDPrefix prefixes the externally visible project identifier.
	PublicIDPrefix = "kp_"
	// SecretTokenPrefix prefixes the bearer credential used by ping clients.
	SecretTokenPrefix = "kal_live_"

	publicIDLength    = 12
	secretTokenLength = 32
)

// randBase62 draws n characters from crypto/rand over the base62 alphabet.
func randBase62(prefix string, n int) (string, error) {
	var sb strings.Builder
	sb.WriteString(prefix)

	for i := 0; i < n; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(base62Chars))))
		if err != nil {
			return "", err
		}
		sb.WriteByte(base62Chars[num.Int64()])
	}

	return sb.String(), nil
}

// GeneratePublicID returns a new public project identifier (kp_ + 12 base62 chars).
// Not a secret; uniqueness is additionally enforced by a storage constraint.
func GeneratePublicID() (string, error) {
	return randBase62(PublicIDPrefix, publicIDLength)
}

// GenerateSecretToken returns a new bearer credential (kal_live_ + 32 base62 chars).
// This is the sole authentication factor for the ping channel.
func GenerateSecretToken() (string, error) {
	return randBase62(SecretTokenPrefix, secretTokenLength)
}
