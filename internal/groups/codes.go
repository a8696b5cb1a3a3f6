package groups

import (
	"context"
	"crypto/rand"
	"fmt"
)

// Codes are entered by hand and shown uppercase.
const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 6

	// maxCodeAttempts bounds collision retries. With 36^6 possible codes the
	// loop effectively never exhausts.
	maxCodeAttempts = 100
)

// CodeChecker reports whether a session code is already taken.
type CodeChecker interface {
	CodeExists(ctx context.Context, code string) (bool, error)
}

// GenerateCode produces a unique human-shareable session code, retrying
// random generation until no collision exists.
func GenerateCode(ctx context.Context, checker CodeChecker) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := randomCode()
		if err != nil {
			return "", err
		}
		exists, err := checker.CodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("checking code uniqueness: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("exhausted %d attempts generating a unique session code", maxCodeAttempts)
}

func randomCode() (string, error) {
	b := make([]byte, codeLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating session code: %w", err)
	}
	for i := range b {
		b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}
	return string(b), nil
}
