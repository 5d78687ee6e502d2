package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pliu/chatd/internal/apperr"
	"github.com/pliu/chatd/internal/models"
)

type contextKey string

const UserKey contextKey = "user"

// Authenticator resolves a bearer access token to its user.
type Authenticator interface {
	CurrentUser(ctx context.Context, accessToken string) (*models.User, error)
}

// AuthMiddleware rejects requests without a valid bearer access token and
// stores the resolved user in the request context.
func AuthMiddleware(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				unauthorized(w, "Not authenticated")
				return
			}

			user, err := a.CurrentUser(r.Context(), token)
			if err != nil {
				if apperr.Status(err) == http.StatusUnauthorized {
					unauthorized(w, err.Error())
					return
				}
				writeError(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			ctx := context.WithValue(r.Context(), UserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext returns the user stored by AuthMiddleware.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(UserKey).(*models.User)
	return user, ok && user != nil
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeError(w, http.StatusUnauthorized, msg)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
