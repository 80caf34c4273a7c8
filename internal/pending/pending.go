// Package pending holds registrations that have not been confirmed yet.
//
// A registration is stored under its 6-digit verification code for a limited
// time. Registering the same email again replaces the earlier code, so at most
// one code per address is valid at any moment.
package pending

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"
)

// DefaultTTL is how long a verification code stays valid.
const DefaultTTL = 10 * time.Minute

// ErrNotFound is returned for unknown or expired codes.
var ErrNotFound = errors.New("pending registration not found")

// Registration is everything needed to create the user once the code is confirmed.
type Registration struct {
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Store keeps pending registrations until they are confirmed or expire.
//
// SINGLE USE:
// Take reads and removes a registration in one step. Two verification
// requests racing with the same code cannot both get the registration back:
// exactly one sees it, the other sees ErrNotFound. A Get followed by a
// separate Delete would let both through, and both would try to create the
// account.
type Store interface {
	Save(ctx context.Context, reg Registration) error
	Take(ctx context.Context, code string) (*Registration, error)
}

// NewCode returns a random 6-digit code in [100000, 999999].
func NewCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("pending: generating code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// =========================================================================
// IN-MEMORY STORE
// =========================================================================

// MemoryStore is the single-process fallback used when no Redis address is
// configured. Expired entries are dropped lazily on access.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	byCode  map[string]Registration
	byEmail map[string]string
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		now:     time.Now,
		byCode:  make(map[string]Registration),
		byEmail: make(map[string]string),
	}
}

func (m *MemoryStore) Save(_ context.Context, reg Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	email := normalizeEmail(reg.Email)
	if old, ok := m.byEmail[email]; ok {
		delete(m.byCode, old)
	}
	reg.Email = email
	reg.ExpiresAt = m.now().Add(m.ttl)
	m.byCode[reg.Code] = reg
	m.byEmail[email] = reg.Code
	return nil
}

// Take holds the mutex across the lookup and the removal.
func (m *MemoryStore) Take(_ context.Context, code string) (*Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	reg, ok := m.byCode[strings.TrimSpace(code)]
	if !ok {
		return nil, ErrNotFound
	}
	m.removeLocked(reg)
	if !m.now().Before(reg.ExpiresAt) {
		return nil, ErrNotFound
	}
	return &reg, nil
}

func (m *MemoryStore) removeLocked(reg Registration) {
	delete(m.byCode, reg.Code)
	email := normalizeEmail(reg.Email)
	if m.byEmail[email] == reg.Code {
		delete(m.byEmail, email)
	}
}
