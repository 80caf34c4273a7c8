package auth

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// CookieName is the session cookie carrying the user token.
const CookieName = "token"

// contextKey is unexported so no other package can build a key that
// collides with ours in the request context. A plain string key could be
// overwritten by any package using the same text.
type contextKey string

const (
	userIDKey  contextKey = "userID"
	judgeIDKey contextKey = "judgeID"
)

// JudgeChecker reports whether the judge id belongs to an active judge.
type JudgeChecker func(ctx context.Context, judgeID string) (bool, error)

// RequireAuth lets the request through only with a valid user token, taken
// from the session cookie or an "Authorization: Bearer" header.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := userFromRequest(r, tokens)
			if !ok {
				unauthorized(w, "valid authentication required")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// OptionalAuth attaches the user id when a valid token is present and never
// rejects the request.
func OptionalAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID, ok := userFromRequest(r, tokens); ok {
				r = r.WithContext(WithUserID(r.Context(), userID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireJudge accepts only a Bearer judge token whose judge is still active.
func RequireJudge(tokens *TokenService, active JudgeChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				unauthorized(w, "judge token required")
				return
			}
			judgeID, err := tokens.Validate(raw, KindJudge)
			if err != nil {
				unauthorized(w, "invalid judge token")
				return
			}
			ok, err := active(r.Context(), judgeID)
			if err != nil || !ok {
				unauthorized(w, "judge not found or inactive")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), judgeIDKey, judgeID)))
		})
	}
}

// WithUserID returns ctx carrying userID. Handlers' tests use it directly.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// WithJudgeID returns ctx carrying judgeID.
func WithJudgeID(ctx context.Context, judgeID string) context.Context {
	return context.WithValue(ctx, judgeIDKey, judgeID)
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

func JudgeIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(judgeIDKey).(string)
	return id, ok && id != ""
}

// SetSessionCookie stores the user token in an HttpOnly cookie.
//
// COOKIE FLAGS:
//   - HttpOnly: page scripts cannot read the token, so an XSS bug cannot steal it
//   - Secure: sent over HTTPS only (off for local http development)
//   - SameSite=Lax: not sent on cross-site POSTs, which blocks most CSRF,
//     while following a link from another site still keeps the session
func SetSessionCookie(w http.ResponseWriter, token string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// userFromRequest prefers the cookie and falls back to the Bearer header.
func userFromRequest(r *http.Request, tokens *TokenService) (string, bool) {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		if id, err := tokens.Validate(c.Value, KindUser); err == nil {
			return id, true
		}
	}
	if raw := bearerToken(r); raw != "" {
		if id, err := tokens.Validate(raw, KindUser); err == nil {
			return id, true
		}
	}
	return "", false
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","message":"` + message + `"}`))
}
