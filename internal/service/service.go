// Package service contains the business rules of HackHub.
//
// THE THREE LAYERS:
//
//	Handler (HTTP)  → parses requests, writes responses
//	Service         → validates input, checks access, orchestrates writes
//	Repository      → stores documents
//
// Services depend on repository interfaces, never on a concrete store, so the
// same code runs on SQLite and MongoDB.
//
// CONSISTENCY:
// Every read-modify-write of one aggregate goes through withRetry: the closure
// reloads the document, applies the change and saves it with the loaded
// version. A concurrent writer makes the save fail with repository.ErrStale and
// the closure runs again on fresh data.
//
// Relationships that span two documents (user↔team, team↔project,
// project↔task) are written one side at a time with idempotent link
// operations. When the second write fails the first one is undone.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sakif/hackhub/internal/apperror"
	"github.com/sakif/hackhub/internal/metrics"
	"github.com/sakif/hackhub/internal/notify"
	"github.com/sakif/hackhub/internal/repository"
)

const maxStaleRetries = 5

// Mailer accepts rendered emails for background delivery. notify.Dispatcher
// implements it; the error argument lets callers pass a constructor's result
// straight through.
type Mailer interface {
	Notify(msg notify.Message, err error)
}

// withRetry runs fn until it does not fail with repository.ErrStale.
// Exhausted retries surface as a Conflict.
func withRetry(ctx context.Context, aggregate string, fn func(ctx context.Context) error) error {
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if !errors.Is(err, repository.ErrStale) {
			return err
		}
		metrics.StaleRetry(aggregate)
		if attempt >= maxStaleRetries {
			return apperror.ConflictMessage(aggregate + " was modified concurrently, please retry")
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

func now() time.Time { return time.Now().UTC() }

// =========================================================================
// INPUT VALIDATION
// =========================================================================

func requireLength(field, value string, min, max int) error {
	n := utf8.RuneCountInString(value)
	if n < min || n > max {
		if min > 0 && n == 0 {
			return apperror.ValidationFailed(field, field+" is required")
		}
		return apperror.ValidationFailed(field,
			fmt.Sprintf("%s must be between %d and %d characters", field, min, max))
	}
	return nil
}

func requireMax(field, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return apperror.ValidationFailed(field, fmt.Sprintf("%s cannot exceed %d characters", field, max))
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return apperror.ValidationFailed("email", "email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return apperror.ValidationFailed("email", "please provide a valid email")
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// normalizeTags trims, lower-cases and de-duplicates tags, dropping empties.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func isNotFound(err error) bool {
	return errors.Is(err, apperror.ErrNotFound)
}

func appendUnique(ids []string, id string) ([]string, bool) {
	for _, existing := range ids {
		if existing == id {
			return ids, false
		}
	}
	return append(ids, id), true
}

func removeID(ids []string, id string) ([]string, bool) {
	for i, existing := range ids {
		if existing == id {
			return append(ids[:i:i], ids[i+1:]...), true
		}
	}
	return ids, false
}
