package stats

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fin-control/fin-control/internal/platform/httpx"
	"github.com/fin-control/fin-control/internal/rbac"
	"github.com/fin-control/fin-control/internal/shared"
)

// Handler serves company balance endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers stats routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ModuleReports, rbac.ActionView))
		r.Get("/{companyID}/balance", h.balance)
		r.Post("/{companyID}/recalculate", h.recalculate)
	})
}

type balanceResponse struct {
	CompanyID      string `json:"company_id"`
	CurrentBalance string `json:"current_balance"`
}

func (h *Handler) balance(w http.ResponseWriter, r *http.Request) {
	companyID, err := uuid.Parse(chi.URLParam(r, "companyID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid company id")
		return
	}
	balance, err := h.service.Balance(r.Context(), companyID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			// No stats row yet means no paid transactions recorded.
			httpx.JSON(w, http.StatusOK, balanceResponse{CompanyID: companyID.String(), CurrentBalance: "0"})
			return
		}
		h.logger.Error("read balance", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, balanceResponse{CompanyID: companyID.String(), CurrentBalance: balance.String()})
}

func (h *Handler) recalculate(w http.ResponseWriter, r *http.Request) {
	companyID, err := uuid.Parse(chi.URLParam(r, "companyID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid company id")
		return
	}
	balance, err := h.service.Recalculate(r.Context(), companyID)
	if err != nil {
		h.logger.Error("recalculate balance", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, balanceResponse{CompanyID: companyID.String(), CurrentBalance: balance.String()})
}
