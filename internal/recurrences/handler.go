package recurrences

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fin-control/fin-control/internal/platform/httpx"
	"github.com/fin-control/fin-control/internal/rbac"
	"github.com/fin-control/fin-control/internal/shared"
)

// Handler manages recurring template endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	rbac     rbac.Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New(), rbac: mw}
}

// MountRoutes registers recurrence routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ModuleRecurrences, rbac.ActionView))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ModuleRecurrences, rbac.ActionCreate))
		r.Post("/", h.create)
		r.Post("/process", h.process)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ModuleRecurrences, rbac.ActionEdit))
		r.Put("/{id}", h.update)
		r.Post("/{id}/activate", h.setActive(true))
		r.Post("/{id}/deactivate", h.setActive(false))
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ModuleRecurrences, rbac.ActionDelete))
		r.Delete("/{id}", h.delete)
	})
}

type templateRequest struct {
	Description  string          `json:"description" validate:"required"`
	Type         string          `json:"type" validate:"required,oneof=payable receivable"`
	Amount       decimal.Decimal `json:"amount" validate:"required"`
	EntityID     string          `json:"entity_id" validate:"omitempty,uuid4"`
	CostCenterID string          `json:"cost_center_id" validate:"omitempty,uuid4"`
	Frequency    string          `json:"frequency" validate:"required,oneof=daily weekly monthly yearly"`
	Interval     int             `json:"interval" validate:"required,min=1"`
	NextDueDate  time.Time       `json:"next_due_date" validate:"required"`
}

type templateResponse struct {
	ID           string    `json:"id"`
	CompanyID    string    `json:"company_id"`
	Description  string    `json:"description"`
	Type         string    `json:"type"`
	Amount       string    `json:"amount"`
	EntityID     string    `json:"entity_id,omitempty"`
	CostCenterID string    `json:"cost_center_id,omitempty"`
	Frequency    string    `json:"frequency"`
	Interval     int       `json:"interval"`
	NextDueDate  time.Time `json:"next_due_date"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

func toTemplateResponse(t *Template) templateResponse {
	resp := templateResponse{
		ID:          t.ID.String(),
		CompanyID:   t.CompanyID.String(),
		Description: t.Description,
		Type:        t.Type,
		Amount:      t.Amount.String(),
		Frequency:   string(t.Frequency),
		Interval:    t.Interval,
		NextDueDate: t.NextDueDate,
		Active:      t.Active,
		CreatedAt:   t.CreatedAt,
	}
	if t.EntityID != uuid.Nil {
		resp.EntityID = t.EntityID.String()
	}
	if t.CostCenterID != uuid.Nil {
		resp.CostCenterID = t.CostCenterID.String()
	}
	return resp
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor, _ := rbac.ActorFromContext(r.Context())
	onlyActive := r.URL.Query().Get("active") == "true"
	list, err := h.service.List(r.Context(), actor.CompanyID, onlyActive)
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]templateResponse, 0, len(list))
	for i := range list {
		out = append(out, toTemplateResponse(&list[i]))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := h.resolve(w, r)
	if !ok {
		return
	}
	t, err := h.service.Get(r.Context(), actor.CompanyID, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toTemplateResponse(t))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	req, actor, ok := h.decode(w, r)
	if !ok {
		return
	}
	t, err := req.toTemplate(actor.CompanyID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid uuid in payload")
		return
	}
	created, err := h.service.Create(r.Context(), actor.UserID, t)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toTemplateResponse(created))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid template id")
		return
	}
	req, actor, ok := h.decode(w, r)
	if !ok {
		return
	}
	t, err := req.toTemplate(actor.CompanyID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid uuid in payload")
		return
	}
	t.ID = id
	if err := h.service.Update(r.Context(), actor.UserID, t); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, actor, ok := h.resolve(w, r)
		if !ok {
			return
		}
		if err := h.service.SetActive(r.Context(), actor.UserID, actor.CompanyID, id, active); err != nil {
			h.respondError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := h.resolve(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), actor.UserID, actor.CompanyID, id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// process runs a materialization pass on demand, outside the daily cron.
func (h *Handler) process(w http.ResponseWriter, r *http.Request) {
	created, err := h.service.ProcessDue(r.Context(), time.Now())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int{"created": created})
}

func (req *templateRequest) toTemplate(companyID uuid.UUID) (*Template, error) {
	t := &Template{
		CompanyID:   companyID,
		Description: req.Description,
		Type:        req.Type,
		Amount:      req.Amount,
		Frequency:   Frequency(req.Frequency),
		Interval:    req.Interval,
		NextDueDate: req.NextDueDate,
	}
	if req.EntityID != "" {
		id, err := uuid.Parse(req.EntityID)
		if err != nil {
			return nil, err
		}
		t.EntityID = id
	}
	if req.CostCenterID != "" {
		id, err := uuid.Parse(req.CostCenterID)
		if err != nil {
			return nil, err
		}
		t.CostCenterID = id
	}
	return t, nil
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (*templateRequest, rbac.Actor, bool) {
	var req templateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return nil, rbac.Actor{}, false
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return nil, rbac.Actor{}, false
	}
	actor, _ := rbac.ActorFromContext(r.Context())
	return &req, actor, true
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) (uuid.UUID, rbac.Actor, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid template id")
		return uuid.Nil, rbac.Actor{}, false
	}
	actor, _ := rbac.ActorFromContext(r.Context())
	return id, actor, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "template not found")
	case errors.Is(err, ErrInvalidFrequency), errors.Is(err, ErrInvalidInterval):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("recurrences handler", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
