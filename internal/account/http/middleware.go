package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/akentev/account-service/internal/account/domain"
	"github.com/akentev/account-service/internal/account/repository"
	commonhttp "github.com/akentev/account-service/internal/common/http"
	"github.com/akentev/account-service/internal/common/logger"
	"github.com/akentev/account-service/internal/common/token"
	"github.com/akentev/account-service/internal/observability/metrics"
)

// AuthContext is the state the authorization gates hand to each other.
// RequireToken stores the token subject; RequireExistingUser replaces
// the value with one holding the resolved user record. Gates never
// mutate an existing value, they install a new one.
type AuthContext struct {
	Subject  domain.ID
	User     domain.User
	Resolved bool
}

type contextKey string

const authKey contextKey = "auth_context"

func withAuth(ctx context.Context, auth AuthContext) context.Context {
	return context.WithValue(ctx, authKey, auth)
}

func AuthFromContext(ctx context.Context) (AuthContext, bool) {
	auth, ok := ctx.Value(authKey).(AuthContext)
	return auth, ok
}

// AuthChain holds the three composable authorization gates.
type AuthChain struct {
	tokens *token.Service
	store  repository.Store
	log    *logger.Logger
}

func NewAuthChain(tokens *token.Service, store repository.Store, log *logger.Logger) *AuthChain {
	return &AuthChain{
		tokens: tokens,
		store:  store,
		log:    log,
	}
}

// Chain composes gates so they run in the order listed.
func Chain(h http.HandlerFunc, gates ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	for i := len(gates) - 1; i >= 0; i-- {
		h = gates[i](h)
	}
	return h
}

// RequireToken rejects requests without a verifiable bearer token. A
// missing header, bad signature and expired token all produce the same
// response.
func (c *AuthChain) RequireToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := BearerToken(r)
		if raw == "" {
			c.log.Warnf("auth failed path=%s: missing or invalid authorization header", r.URL.Path)
			commonhttp.WriteErrorEnvelope(w, http.StatusUnauthorized, commonhttp.CodeMissingAuthorization, "missing or invalid authorization", nil, "")
			return
		}

		subject, err := c.tokens.Verify(raw)
		if err != nil {
			metrics.TokenVerificationsFailed.Inc()
			c.log.Warnf("auth failed path=%s: %v", r.URL.Path, err)
			commonhttp.WriteErrorEnvelope(w, http.StatusUnauthorized, commonhttp.CodeInvalidToken, "missing or invalid authorization", nil, "")
			return
		}
		metrics.TokenVerificationsTotal.Inc()

		ctx := withAuth(r.Context(), AuthContext{Subject: domain.ID(subject)})
		next(w, r.WithContext(ctx))
	}
}

// RequireExistingUser resolves the token subject against the store and
// replaces the auth context with one carrying the concrete record.
func (c *AuthChain) RequireExistingUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth, ok := AuthFromContext(r.Context())
		if !ok {
			commonhttp.WriteErrorEnvelope(w, http.StatusUnauthorized, commonhttp.CodeMissingAuthorization, "missing or invalid authorization", nil, "")
			return
		}

		user, err := c.store.FindByID(r.Context(), auth.Subject)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				c.log.Warnf("auth failed path=%s: subject not in store", r.URL.Path)
				commonhttp.WriteError(w, http.StatusNotFound, "User not found")
				return
			}
			c.log.Errorf("auth failed path=%s: store error: %v", r.URL.Path, err)
			commonhttp.WriteError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		ctx := withAuth(r.Context(), AuthContext{
			Subject:  auth.Subject,
			User:     user,
			Resolved: true,
		})
		next(w, r.WithContext(ctx))
	}
}

// RequireAdmin passes only callers whose resolved record is an admin.
func (c *AuthChain) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth, ok := AuthFromContext(r.Context())
		if !ok || !auth.Resolved || !auth.User.IsAdmin {
			c.log.Warnf("auth failed path=%s: missing admin permissions", r.URL.Path)
			commonhttp.WriteError(w, http.StatusForbidden, "Missing admin permissions")
			return
		}
		next(w, r)
	}
}

func BearerToken(r *http.Request) string {
	raw := r.Header.Get("Authorization")
	if raw == "" || !strings.HasPrefix(raw, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(raw, "Bearer ")
}
