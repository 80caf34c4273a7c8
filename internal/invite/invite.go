// Package invite issues the short codes that let users join a team.
//
// A code is 8 upper-case hex characters drawn from 4 cryptographically random
// bytes. The store's unique index on Team.InviteCode is the only source of
// truth for uniqueness: the issuer never checks first, it saves and retries
// with a fresh code when the save reports a collision.
package invite

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/sakif/hackhub/internal/repository"
)

const (
	codeBytes = 4

	// DefaultAttempts bounds the retry loop in Assign. With 2^32 codes a
	// second collision in a row is already vanishingly unlikely.
	DefaultAttempts = 5
)

// Issuer generates invite codes. The zero value is not usable; call NewIssuer.
type Issuer struct {
	random   io.Reader
	attempts int
}

// NewIssuer returns an Issuer reading from crypto/rand.
func NewIssuer() *Issuer {
	return &Issuer{random: rand.Reader, attempts: DefaultAttempts}
}

// NewIssuerWithSource is used by tests to make codes deterministic.
func NewIssuerWithSource(r io.Reader, attempts int) *Issuer {
	if attempts < 1 {
		attempts = 1
	}
	return &Issuer{random: r, attempts: attempts}
}

// Generate returns a fresh code such as "9F3A0C71".
func (i *Issuer) Generate() (string, error) {
	buf := make([]byte, codeBytes)
	if _, err := io.ReadFull(i.random, buf); err != nil {
		return "", fmt.Errorf("invite: reading random bytes: %w", err)
	}
	return strings.ToUpper(hex.EncodeToString(buf)), nil
}

// Assign generates a code and hands it to save until save succeeds. A save
// that fails with a duplicate invite code is retried with a new code; any
// other error is returned as-is.
func (i *Issuer) Assign(ctx context.Context, save func(ctx context.Context, code string) error) (string, error) {
	var lastErr error
	for attempt := 0; attempt < i.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		code, err := i.Generate()
		if err != nil {
			return "", err
		}

		err = save(ctx, code)
		if err == nil {
			return code, nil
		}
		if !repository.IsDuplicate(err, repository.KeyInviteCode) {
			return "", err
		}
		lastErr = err
	}
	return "", fmt.Errorf("invite: no unique code after %d attempts: %w", i.attempts, lastErr)
}

// Normalize canonicalizes a user-typed code for lookup.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
