// Package auth guards the API with bearer tokens and serves the register
// and login endpoints that issue them.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"newssense/internal/domain/entity"
	"newssense/internal/handler/http/respond"
	"newssense/internal/observability/logging"
	userUC "newssense/internal/usecase/user"
)

// Messages returned by the gate.
const (
	MsgTokenRequired = "Authorization token required"
	MsgAuthFailed    = "Authentication failed"
)

// Authenticator resolves a raw bearer token to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*entity.User, error)
}

type ctxKey int

const (
	ctxUser ctxKey = iota
	ctxToken
)

// Gate requires "Authorization: Bearer <token>" on every request it wraps.
// Missing or malformed headers, bad tokens, unknown users and lookup
// failures all end in 401 before next runs. On success the user and the
// raw token are put in the request context.
func Gate(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			logger := logging.WithRequestID(r.Context(), logging.FromContext(r.Context()))

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				recordAuth(ResultMissingToken, start)
				respond.Message(w, http.StatusUnauthorized, MsgTokenRequired)
				return
			}

			user, err := authn.Authenticate(r.Context(), token)
			if err != nil || user == nil {
				result := ResultInvalidToken
				if err != nil && !errors.Is(err, userUC.ErrInvalidToken) {
					// ストア障害でも 401 を返す。ログには残す
					result = ResultError
					logger.Error("authentication lookup failed",
						slog.String("error", respond.SanitizeError(err)))
				} else {
					logger.Info("authentication rejected", slog.Any("error", err))
				}
				recordAuth(result, start)
				respond.Message(w, http.StatusUnauthorized, MsgAuthFailed)
				return
			}

			recordAuth(ResultSuccess, start)
			ctx := context.WithValue(r.Context(), ctxUser, user)
			ctx = context.WithValue(ctx, ctxToken, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// UserFromContext returns the user the gate authenticated.
func UserFromContext(ctx context.Context) (*entity.User, bool) {
	u, ok := ctx.Value(ctxUser).(*entity.User)
	return u, ok && u != nil
}

// TokenFromContext returns the bearer token the gate accepted.
func TokenFromContext(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(ctxToken).(string)
	return t, ok
}

// WithUser stores u as the authenticated user. Handlers behind the gate
// read it back with UserFromContext.
func WithUser(ctx context.Context, u *entity.User) context.Context {
	return context.WithValue(ctx, ctxUser, u)
}
