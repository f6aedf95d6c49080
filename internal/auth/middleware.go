package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/uptrace/bun"

	"github.com/elevate-app/elevate-backend/internal/httputil"
	"github.com/elevate-app/elevate-backend/internal/user"
)

type contextKey string

const userContextKey contextKey = "user"

// Middleware gates mutating endpoints behind a valid session token.
type Middleware struct {
	tokens *TokenService
	db     *bun.DB
}

func NewMiddleware(tokens *TokenService, db *bun.DB) *Middleware {
	return &Middleware{tokens: tokens, db: db}
}

// RequireAuth resolves the bearer token, validates it as a session token
// and loads the subject's user row into the request context. Every failure
// yields the same 401 so callers cannot tell which check tripped.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			unauthorized(w)
			return
		}

		subject, err := m.tokens.Validate(token, PurposeSession)
		if err != nil {
			unauthorized(w)
			return
		}

		acting, err := user.NewRepository(m.db).GetByEmail(r.Context(), subject)
		if err != nil {
			unauthorized(w)
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), acting)))
	})
}

// ContextWithUser returns a context carrying the authenticated user.
func ContextWithUser(ctx context.Context, u *user.User) context.Context {
	return context.WithValue(ctx, userContextKey, u)
}

// UserFromContext extracts the authenticated user placed by RequireAuth.
func UserFromContext(ctx context.Context) (*user.User, bool) {
	u, ok := ctx.Value(userContextKey).(*user.User)
	return u, ok
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}

	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}

	return parts[1], true
}

func unauthorized(w http.ResponseWriter) {
	httputil.RespondErrorWithCode(w, "unauthorized", httputil.CodeMissingAuth, http.StatusUnauthorized)
}
