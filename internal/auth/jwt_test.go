package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService("test-secret-at-least-16-chars!!")
	require.NoError(t, err)
	return ts
}

// =========================================================================
// TOKEN SERVICE CONSTRUCTION TESTS
// =========================================================================

func TestNewTokenService(t *testing.T) {
	_, err := NewTokenService("short")
	assert.Error(t, err)

	_, err = NewTokenService("this-is-16-chars")
	assert.NoError(t, err)
}

// =========================================================================
// ISSUE / VALIDATE TESTS
// =========================================================================

func TestIssue_LooksLikeJWT(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Issue(KindUser, "user-123", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(token, "."))

	_, err = ts.Issue(KindUser, "", time.Hour)
	assert.Error(t, err)
}

func TestValidate_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)

	for _, kind := range []Kind{KindUser, KindJudge} {
		token, err := ts.Issue(kind, "acct-1", time.Hour)
		require.NoError(t, err)

		got, err := ts.Validate(token, kind)
		require.NoError(t, err)
		assert.Equal(t, "acct-1", got)
	}
}

func TestValidate_Rejects(t *testing.T) {
	ts := newTestTokenService(t)
	other, err := NewTokenService("wrong-secret-32-chars-long!!!!!!")
	require.NoError(t, err)

	valid, err := ts.Issue(KindUser, "user-123", time.Hour)
	require.NoError(t, err)
	expired, err := ts.Issue(KindUser, "user-123", -time.Second)
	require.NoError(t, err)
	foreign, err := other.Issue(KindUser, "user-123", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		kind  Kind
	}{
		{"expired", expired, KindUser},
		{"tampered", valid[:len(valid)-3] + "xxx", KindUser},
		{"wrong secret", foreign, KindUser},
		{"user token as judge", valid, KindJudge},
		{"empty", "", KindUser},
		{"garbage", "not.a.jwt.token", KindUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ts.Validate(tt.token, tt.kind)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
