package utils

import (
	"crypto/rand"
	"encoding/base64"
)

// GenerateSecureCode returns 32 random bytes, URL-safe base64 encoded. It is
// used for generated API client secrets.
func GenerateSecureCode() (string, error) {
	b := make([]byte, 32)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func MustGenerateSecureCode() string {
	code, err := GenerateSecureCode()
	if err != nil {
		panic("failed to generate secure code: " + err.Error())
	}
	return code
}
