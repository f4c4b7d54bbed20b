package companies

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/fin-control/fin-control/internal/platform/httpx"
	"github.com/fin-control/fin-control/internal/rbac"
	"github.com/fin-control/fin-control/internal/shared"
)

// Handler manages company endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	rbac     rbac.Middleware
	roles    rbac.RoleSource
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware, roles rbac.RoleSource) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New(), rbac: rbac, roles: roles}
}

// MountRoutes registers company routes.
func (h *Handler) MountRoutes(r chi.Router) {
	// Listing works without a company selection; membership filters the result.
	r.Get("/", h.list)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ModuleCompanies, rbac.ActionView))
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ModuleCompanies, rbac.ActionCreate))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ModuleCompanies, rbac.ActionEdit))
		r.Put("/{id}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ModuleCompanies, rbac.ActionDelete))
		r.Delete("/{id}", h.delete)
	})
}

type companyResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	TaxID     string    `json:"tax_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toResponse(c *Company) companyResponse {
	return companyResponse{ID: c.ID.String(), Name: c.Name, TaxID: c.TaxID, CreatedAt: c.CreatedAt}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	userID, ok := shared.CurrentUserID(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "not signed in")
		return
	}
	global, _, err := h.roles.RolesFor(r.Context(), userID)
	if err != nil {
		h.logger.Error("lookup roles", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	list, err := h.service.ListForUser(r.Context(), userID, global == rbac.RoleAdmin)
	if err != nil {
		h.logger.Error("list companies", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]companyResponse, 0, len(list))
	for i := range list {
		out = append(out, toResponse(&list[i]))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid company id")
		return
	}
	c, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "company not found")
			return
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(c))
}

type companyRequest struct {
	Name  string `json:"name" validate:"required"`
	TaxID string `json:"tax_id"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req companyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actor, _ := rbac.ActorFromContext(r.Context())
	c, err := h.service.Create(r.Context(), actor.UserID, req.Name, req.TaxID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(c))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid company id")
		return
	}
	var req companyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actor, _ := rbac.ActorFromContext(r.Context())
	if err := h.service.Update(r.Context(), actor.UserID, &Company{ID: id, Name: req.Name, TaxID: req.TaxID}); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "company not found")
			return
		}
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid company id")
		return
	}
	actor, _ := rbac.ActorFromContext(r.Context())
	if err := h.service.Delete(r.Context(), actor.UserID, id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "company not found")
			return
		}
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
