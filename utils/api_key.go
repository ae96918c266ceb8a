package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

const APIKeyPrefix = "cfai_"

// GenerateAPIKey returns a new chatbot API key: the cfai_ prefix followed by
// 16 random bytes in lowercase hex.
func GenerateAPIKey() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return APIKeyPrefix + hex.EncodeToString(buf), nil
}

// LooksLikeAPIKey reports whether key has the shape GenerateAPIKey produces.
func LooksLikeAPIKey(key string) bool {
	if !strings.HasPrefix(key, APIKeyPrefix) || len(key) != len(APIKeyPrefix)+32 {
		return false
	}
	_, err := hex.DecodeString(key[len(APIKeyPrefix):])
	return err == nil
}

// GenerateOTP returns a six character uppercase hex verification code.
func GenerateOTP() (string, error) {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(buf)), nil
}
