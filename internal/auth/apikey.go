package auth

import (
	"crypto/rand"
	"math/big"
)

const (
	APIKeyLength   = 32
	apiKeyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// GenerateAPIKey returns a random alphanumeric key of APIKeyLength characters.
func GenerateAPIKey() (string, error) {
	max := big.NewInt(int64(len(apiKeyAlphabet)))
	buf := make([]byte, APIKeyLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = apiKeyAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// MaskAPIKey hides everything except the last 8 characters.
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return key
	}
	masked := make([]byte, len(key))
	for i := range masked[:len(key)-8] {
		masked[i] = '*'
	}
	copy(masked[len(key)-8:], key[len(key)-8:])
	return string(masked)
}
