package shared_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/fin-control/fin-control/internal/shared"
	_ "github.com/fin-control/fin-control/testing"
)

func newSessionManager(t *testing.T) *shared.SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)
}

func TestSessionRoundTrip(t *testing.T) {
	sm := newSessionManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)

	sess.SetUser("42")
	sess.Set("company", "acme")

	res := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, res, req, sess))

	cookies := res.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "test_session", cookies[0].Name)

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(cookies[0])
	loaded, err := sm.Load(ctx, next)
	require.NoError(t, err)
	require.Equal(t, "42", loaded.User())
	require.Equal(t, "acme", loaded.Get("company"))
}

func TestSessionDestroyClearsCookieAndStore(t *testing.T) {
	sm := newSessionManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	sess.SetUser("42")

	res := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, res, req, sess))
	cookie := res.Result().Cookies()[0]

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(cookie)
	loaded, err := sm.Load(ctx, next)
	require.NoError(t, err)
	sm.Destroy(loaded)

	out := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, out, next, loaded))
	expired := out.Result().Cookies()[0]
	require.Equal(t, -1, expired.MaxAge)

	fresh := httptest.NewRequest(http.MethodGet, "/", nil)
	fresh.AddCookie(cookie)
	reloaded, err := sm.Load(ctx, fresh)
	require.NoError(t, err)
	require.Empty(t, reloaded.User())
}

func TestSessionFlashPopsOnce(t *testing.T) {
	sm := newSessionManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "lote enviado"})

	msg := sess.PopFlash()
	require.NotNil(t, msg)
	require.Equal(t, "lote enviado", msg.Message)
	require.Nil(t, sess.PopFlash())

	res := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, res, req, sess))
}

func TestCSRFTokenVerifies(t *testing.T) {
	sm := newSessionManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)

	csrf := shared.NewCSRFManager("csrfsecret")
	token, err := csrf.EnsureToken(ctx, sess)
	require.NoError(t, err)
	require.NoError(t, csrf.VerifyToken(ctx, sess, token))
	require.Error(t, csrf.VerifyToken(ctx, sess, "forged"))
}
