package batches

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fin-control/fin-control/internal/platform/httpx"
)

// PublicHandler serves the unauthenticated token page: the releaser reads
// the batch and confirms or refuses, no login involved.
type PublicHandler struct {
	logger  *slog.Logger
	service *Service
}

// NewPublicHandler builds a PublicHandler instance.
func NewPublicHandler(logger *slog.Logger, service *Service) *PublicHandler {
	return &PublicHandler{logger: logger, service: service}
}

// MountRoutes registers the token routes, mounted at /authorize-batch.
func (h *PublicHandler) MountRoutes(r chi.Router) {
	r.Get("/{token}", h.get)
	r.Post("/{token}/confirm", h.confirm)
	r.Post("/{token}/reject", h.reject)
}

func (h *PublicHandler) get(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.GetByToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPublicBatchResponse(b))
}

func (h *PublicHandler) confirm(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.AuthorizeByToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPublicBatchResponse(b))
}

func (h *PublicHandler) reject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
			return
		}
	}
	b, err := h.service.RejectAuthorizationByToken(r.Context(), chi.URLParam(r, "token"), req.Reason)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPublicBatchResponse(b))
}

func (h *PublicHandler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidToken):
		httpx.Problem(w, http.StatusNotFound, "Not Found", ErrInvalidToken.Error())
	case errors.Is(err, ErrNotAwaiting):
		httpx.Problem(w, http.StatusConflict, "Conflict", "batch is not awaiting authorization")
	default:
		h.logger.Error("batch token handler", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
