package services

import (
	"crypto/rand"
	"fmt"
	"strings"
)

const (
	sessionCodeLength   = 6
	sessionCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// NewSessionCode produces a 6-character uppercase alphanumeric code for
// participants to type in. Uniqueness against other live codes is the
// caller's job.
func NewSessionCode() (string, error) {
	const op = "services.NewSessionCode"

	buf := make([]byte, sessionCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	for i, b := range buf {
		buf[i] = sessionCodeAlphabet[int(b)%len(sessionCodeAlphabet)]
	}
	return string(buf), nil
}

// NormalizeSessionCode maps user input onto the generated form so lookups
// are case-insensitive.
func NormalizeSessionCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
