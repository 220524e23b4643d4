package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	keyPrefix     = "th-v1-"
	keyIDLen      = 32
	randomDataLen = 64

	// APIKeyLen is the length of a formatted API key.
	APIKeyLen = len(keyPrefix) + keyIDLen + 1 + randomDataLen
)

// ParseAPIKey extracts key_id and random_data from API key format.
// Format: th-v1-<key_id>-<random_data> (APIKeyLen chars total).
// Returns ErrInvalidKeyFormat if format doesn't match.
func ParseAPIKey(key string) (keyID, randomData string, err error) {
	parts := strings.Split(key, "-")
	if len(parts) != 4 || parts[0] != "th" || parts[1] != "v1" {
		return "", "", ErrInvalidKeyFormat
	}

	keyID = parts[2]
	randomData = parts[3]

	// key_id is 32 hex chars, random_data is 64 hex chars (256 bits)
	if len(keyID) != keyIDLen || len(randomData) != randomDataLen {
		return "", "", ErrInvalidKeyFormat
	}

	for _, c := range keyID + randomData {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return "", "", ErrInvalidKeyFormat
		}
	}

	return keyID, randomData, nil
}

// ComputeHMAC computes HMAC-SHA256 signature of API key using secret.
func ComputeHMAC(secret []byte, apiKey string) []byte {
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(apiKey))
	return h.Sum(nil)
}

// VerifyHMAC verifies HMAC signature using constant-time comparison.
func VerifyHMAC(expectedHash, computedHash []byte) bool {
	return hmac.Equal(expectedHash, computedHash)
}

// FormatAPIKey constructs API key from components.
func FormatAPIKey(keyID, randomData string) string {
	return keyPrefix + keyID + "-" + randomData
}

// GenerateAPIKey returns a fresh random API key.
func GenerateAPIKey() (string, error) {
	buf := make([]byte, (keyIDLen+randomDataLen)/2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate API key: %w", err)
	}
	return FormatAPIKey(hex.EncodeToString(buf[:keyIDLen/2]), hex.EncodeToString(buf[keyIDLen/2:])), nil
}
