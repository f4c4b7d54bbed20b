package costcenters

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

// Handler manages cost center endpoints.
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

// MountRoutes registers cost center routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ModuleCostCenters, rbac.ActionView))
		r.Get("/", h.list)
		r.Get("/usage", h.usage)
		r.Get("/{id}", h.get)
		r.Get("/{id}/available", h.available)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ModuleCostCenters, rbac.ActionCreate))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ModuleCostCenters, rbac.ActionEdit))
		r.Put("/{id}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ModuleCostCenters, rbac.ActionDelete))
		r.Delete("/{id}", h.delete)
	})
}

type costCenterRequest struct {
	Name           string          `json:"name" validate:"required"`
	ParentID       string          `json:"parent_id" validate:"omitempty,uuid4"`
	Budget         decimal.Decimal `json:"budget"`
	BudgetYear     int             `json:"budget_year" validate:"required,min=2000"`
	AllowedUserIDs []int64         `json:"allowed_user_ids"`
	ApproverEmail  string          `json:"approver_email" validate:"omitempty,email"`
	ReleaserEmail  string          `json:"releaser_email" validate:"omitempty,email"`
}

type costCenterResponse struct {
	ID             string    `json:"id"`
	CompanyID      string    `json:"company_id"`
	Name           string    `json:"name"`
	ParentID       string    `json:"parent_id,omitempty"`
	Budget         string    `json:"budget"`
	BudgetYear     int       `json:"budget_year"`
	AllowedUserIDs []int64   `json:"allowed_user_ids,omitempty"`
	ApproverEmail  string    `json:"approver_email,omitempty"`
	ReleaserEmail  string    `json:"releaser_email,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func toCostCenterResponse(c *CostCenter) costCenterResponse {
	resp := costCenterResponse{
		ID:             c.ID.String(),
		CompanyID:      c.CompanyID.String(),
		Name:           c.Name,
		Budget:         c.Budget.String(),
		BudgetYear:     c.BudgetYear,
		AllowedUserIDs: c.AllowedUserIDs,
		ApproverEmail:  c.ApproverEmail,
		ReleaserEmail:  c.ReleaserEmail,
		CreatedAt:      c.CreatedAt,
	}
	if c.ParentID != uuid.Nil {
		resp.ParentID = c.ParentID.String()
	}
	return resp
}

type usageResponse struct {
	CostCenter costCenterResponse `json:"cost_center"`
	Payables   string             `json:"payables_allocated"`
	Receivables string            `json:"receivables_allocated"`
	Available  string             `json:"available"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor, _ := rbac.ActorFromContext(r.Context())
	year := shared.QueryInt(r.URL.Query(), "budget_year")
	list, err := h.service.List(r.Context(), actor.CompanyID, year)
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]costCenterResponse, 0, len(list))
	for i := range list {
		out = append(out, toCostCenterResponse(&list[i]))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) usage(w http.ResponseWriter, r *http.Request) {
	actor, _ := rbac.ActorFromContext(r.Context())
	year := shared.QueryInt(r.URL.Query(), "budget_year")
	if year == 0 {
		year = time.Now().Year()
	}
	report, err := h.service.UsageReport(r.Context(), actor.CompanyID, year)
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]usageResponse, 0, len(report))
	for i := range report {
		u := &report[i]
		out = append(out, usageResponse{
			CostCenter:  toCostCenterResponse(&u.CostCenter),
			Payables:    u.Totals.Payables.String(),
			Receivables: u.Totals.Receivables.String(),
			Available:   u.Available.String(),
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := h.resolve(w, r)
	if !ok {
		return
	}
	c, err := h.service.Get(r.Context(), actor.CompanyID, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toCostCenterResponse(c))
}

func (h *Handler) available(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := h.resolve(w, r)
	if !ok {
		return
	}
	available, err := h.service.Available(r.Context(), actor.CompanyID, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"available": available.String()})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	req, actor, ok := h.decode(w, r)
	if !ok {
		return
	}
	c, err := req.toCostCenter(actor.CompanyID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid parent_id")
		return
	}
	created, err := h.service.Create(r.Context(), actor.UserID, c)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toCostCenterResponse(created))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid cost center id")
		return
	}
	req, actor, ok := h.decode(w, r)
	if !ok {
		return
	}
	c, err := req.toCostCenter(actor.CompanyID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid parent_id")
		return
	}
	c.ID = id
	if err := h.service.Update(r.Context(), actor.UserID, c); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
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

func (req *costCenterRequest) toCostCenter(companyID uuid.UUID) (*CostCenter, error) {
	c := &CostCenter{
		CompanyID:      companyID,
		Name:           req.Name,
		Budget:         req.Budget,
		BudgetYear:     req.BudgetYear,
		AllowedUserIDs: req.AllowedUserIDs,
		ApproverEmail:  req.ApproverEmail,
		ReleaserEmail:  req.ReleaserEmail,
	}
	if req.ParentID != "" {
		id, err := uuid.Parse(req.ParentID)
		if err != nil {
			return nil, err
		}
		c.ParentID = id
	}
	return c, nil
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (*costCenterRequest, rbac.Actor, bool) {
	var req costCenterRequest
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
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid cost center id")
		return uuid.Nil, rbac.Actor{}, false
	}
	actor, _ := rbac.ActorFromContext(r.Context())
	return id, actor, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "cost center not found")
	case errors.Is(err, ErrParentNotFound), errors.Is(err, ErrCyclicParent):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrHasChildren):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error("costcenters handler", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
