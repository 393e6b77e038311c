package identity

import (
	"context"
	"net/http"
	"strings"

	"github.com/fleetops/fleetwatch/internal/pkg/httputil"
)

type contextKey string

const actorKey contextKey = "actor"

// Middleware extracts the acting user from an Authorization bearer token.
// Requests without a token pass through anonymously; a present but invalid
// token is rejected with 401.
func Middleware(verifier *TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			tokenString, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				httputil.Error(w, http.StatusUnauthorized, "invalid authorization header")
				return
			}

			userID, err := verifier.Verify(tokenString)
			if err != nil {
				httputil.Error(w, http.StatusUnauthorized, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), actorKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ActorFromContext returns the verified acting user ID, if any.
func ActorFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(actorKey).(int64)
	return id, ok
}
