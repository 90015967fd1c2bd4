package accounts

import (
	"net/http"
	"strings"

	"github.com/webstore/webstore/internal/platform/httpx"
	"github.com/webstore/webstore/internal/shared"
	"github.com/webstore/webstore/internal/token"
)

// Middleware authenticates requests from a bearer header or the session
// cookie; the two forms are accepted interchangeably.
type Middleware struct {
	Signer *token.Signer
}

// Authenticate rejects requests without a valid session token and attaches
// the principal to the request context.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := sessionTokenFromRequest(r)
		if raw == "" {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "you must be logged in to do that")
			return
		}
		claims, err := m.Signer.VerifySession(raw)
		if err != nil {
			detail := "invalid token"
			if err == token.ErrExpired {
				detail = "your token has expired, please log in again"
			}
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", detail)
			return
		}
		principal := &shared.Principal{
			UserID:   claims.UserID,
			Username: claims.Username,
			Role:     claims.Role,
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithPrincipal(r.Context(), principal)))
	})
}

// RequireAdmin rejects authenticated requests whose principal is not an
// admin. It must run after Authenticate.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !shared.PrincipalFromContext(r.Context()).IsAdmin() {
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "you are unauthorized to access this route")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func sessionTokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}
