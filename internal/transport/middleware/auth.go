package middleware

import (
	"net/http"

	"github.com/frahmantamala/muamalati/internal"
	"github.com/frahmantamala/muamalati/pkg/logger"
)

// UserContext adds the authenticated caller to the request logger. It must run after authentication.
func UserContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := internal.ActorFromContext(r.Context())
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		ctx := logger.With(r.Context(), "user_id", actor.ID, "role", string(actor.Role))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
