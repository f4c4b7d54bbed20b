package rbac

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/fin-control/fin-control/internal/shared"
)

// CompanyHeader carries the explicit company selection on every request.
// There is no server-side "selected company" state.
const CompanyHeader = "X-Company-ID"

// RoleSource looks up role assignments for a user.
type RoleSource interface {
	RolesFor(ctx context.Context, userID int64) (Role, CompanyRoles, error)
}

// Middleware wires capability checks into HTTP handlers.
type Middleware struct {
	Source RoleSource
	Logger *slog.Logger
}

// Require ensures the current user holds the capability for the company
// named by the X-Company-ID header (or company_id query parameter). The
// resolved actor is stored in the request context for handlers.
func (m Middleware) Require(module Module, action Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := shared.CurrentUserID(r.Context())
			if !ok {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			global, companyRoles, err := m.Source.RolesFor(r.Context(), userID)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("rbac roles lookup", slog.Int64("user_id", userID), slog.Any("error", err))
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			companyID := companyFromRequest(r)
			effective := EffectiveRole(global, companyRoles, companyID)
			if !Allowed(effective, module, action) {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			actor := Actor{UserID: userID, CompanyID: companyID, Role: effective}
			next.ServeHTTP(w, r.WithContext(ContextWithActor(r.Context(), actor)))
		})
	}
}

func companyFromRequest(r *http.Request) uuid.UUID {
	raw := r.Header.Get(CompanyHeader)
	if raw == "" {
		raw = r.URL.Query().Get("company_id")
	}
	if raw == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil
	}
	return id
}
