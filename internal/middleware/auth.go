package middleware

import (
	"net/http"
	"strings"

	"github.com/sevatrust/seva-donations/internal/api/httpx"
	"github.com/sevatrust/seva-donations/internal/apperr"
	"github.com/sevatrust/seva-donations/internal/auth"
)

type AuthMiddleware struct {
	TM *auth.TokenManager
}

func NewAuthMiddleware(tm *auth.TokenManager) *AuthMiddleware {
	return &AuthMiddleware{TM: tm}
}

func bearer(r *http.Request) (string, bool) {
	ah := r.Header.Get("Authorization")
	if len(ah) < 7 || !strings.EqualFold(ah[:7], "bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(ah[7:])
	return tok, tok != ""
}

func (m *AuthMiddleware) identify(r *http.Request) (UserCtx, error) {
	token, ok := bearer(r)
	if !ok {
		return UserCtx{}, apperr.Unauthorized("missing bearer token")
	}
	claims, err := m.TM.ParseAccess(token)
	if err != nil {
		return UserCtx{}, apperr.Unauthorized("invalid access token")
	}
	u, err := userFromClaims(claims)
	if err != nil {
		return UserCtx{}, apperr.Unauthorized("invalid access token")
	}
	return u, nil
}

// Auth requires a valid access token.
func (m *AuthMiddleware) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := m.identify(r)
		if err != nil {
			httpx.WriteAppError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}

// Optional attaches the caller when a valid access token is present and lets
// anonymous requests through. A malformed or expired token is still refused.
func (m *AuthMiddleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := bearer(r); !ok {
			next.ServeHTTP(w, r)
			return
		}
		u, err := m.identify(r)
		if err != nil {
			httpx.WriteAppError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}
