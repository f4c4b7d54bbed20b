package batches

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fin-control/fin-control/internal/platform/httpx"
)

func newPublicServer(f *fixture) *httptest.Server {
	r := chi.NewRouter()
	h := NewPublicHandler(slog.Default(), f.svc)
	r.Route("/authorize-batch", h.MountRoutes)
	return httptest.NewServer(r)
}

func TestTokenPageUnknownToken(t *testing.T) {
	f := newFixture()
	srv := newPublicServer(f)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/authorize-batch/bogus")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	var problem httpx.ProblemDetail
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&problem))
	assert.Equal(t, "Link inválido ou expirado", problem.Detail)
}

func TestTokenPageConfirmFlow(t *testing.T) {
	f := newFixture()
	srv := newPublicServer(f)
	defer srv.Close()

	companyID := uuid.New()
	b := f.pendingBatch(t, companyID, 800)
	approved, err := f.svc.Approve(context.Background(), 2, companyID, b.ID, nil, nil, "")
	require.NoError(t, err)

	resp, err := http.Get(srv.URL + "/authorize-batch/" + approved.Token)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page publicBatchResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	assert.Equal(t, string(StatusPendingAuthorization), page.Status)
	assert.Equal(t, "800", page.Total)

	confirm, err := http.Post(srv.URL+"/authorize-batch/"+approved.Token+"/confirm", "application/json", nil)
	require.NoError(t, err)
	defer confirm.Body.Close()
	require.Equal(t, http.StatusOK, confirm.StatusCode)

	// the link is one-shot
	again, err := http.Post(srv.URL+"/authorize-batch/"+approved.Token+"/confirm", "application/json", nil)
	require.NoError(t, err)
	defer again.Body.Close()
	assert.Equal(t, http.StatusConflict, again.StatusCode)
}

func TestTokenPageExpiredLink(t *testing.T) {
	f := newFixture()
	srv := newPublicServer(f)
	defer srv.Close()

	companyID := uuid.New()
	b := f.pendingBatch(t, companyID, 800)
	approved, err := f.svc.Approve(context.Background(), 2, companyID, b.ID, nil, nil, "")
	require.NoError(t, err)

	f.repo.now = func() time.Time { return time.Now().Add(10 * 24 * time.Hour) }

	resp, err := http.Get(srv.URL + "/authorize-batch/" + approved.Token)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
