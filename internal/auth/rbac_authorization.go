package auth

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/muamalati/internal"
	"github.com/frahmantamala/muamalati/internal/core/user"
	"github.com/frahmantamala/muamalati/internal/transport"
)

// RBACAuthorization gates routes on the caller's role before any handler runs.
type RBACAuthorization struct {
	*transport.BaseHandler
}

func NewRBACAuthorization(logger *slog.Logger) *RBACAuthorization {
	return &RBACAuthorization{BaseHandler: transport.NewBaseHandler(logger)}
}

func (ra *RBACAuthorization) RequireRoles(roles ...user.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := internal.ActorFromContext(r.Context())
			if !ok {
				ra.Logger.WarnContext(r.Context(), "authorization check failed: actor not found in context")
				ra.WriteAppError(w, r, internal.ErrMissingToken)
				return
			}

			if !actor.Is(roles...) {
				ra.Logger.WarnContext(r.Context(), "access denied: role not permitted",
					"user_id", actor.ID,
					"role", actor.Role,
					"required_roles", roles)
				ra.WriteAppError(w, r, internal.ErrForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (ra *RBACAuthorization) RequireStaff() func(http.Handler) http.Handler {
	return ra.RequireRoles(user.RoleEmployee, user.RoleSupervisor, user.RoleAdmin)
}

func (ra *RBACAuthorization) RequireCitizen() func(http.Handler) http.Handler {
	return ra.RequireRoles(user.RoleCitizen)
}
