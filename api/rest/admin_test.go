package rest_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/stealthguard/api/rest"
	"github.com/kasuganosora/stealthguard/config"
	"github.com/kasuganosora/stealthguard/game/world"
	mw "github.com/kasuganosora/stealthguard/middleware"
	"github.com/kasuganosora/stealthguard/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "test-key"

var testSec = config.SecurityConfig{JWTSecret: "rest-test-secret", JWTTTL: time.Hour}

func newAdminRouter(t *testing.T, keyHash string) (*gin.Engine, *world.WorldManager) {
	t.Helper()
	wm := newWorld(t)
	sched := scheduler.New(nopLogger())
	t.Cleanup(sched.Stop)
	h := rest.NewAdminHandler(wm, sched, nopLogger())
	tok := rest.NewTokenHandler(testSec)

	r := gin.New()
	adminG := r.Group("/api/admin", rest.AdminAuth(keyHash))
	adminG.GET("/metrics", h.Metrics)
	adminG.GET("/scheduler", h.ListSchedulerTasks)
	adminG.POST("/token", tok.Issue)
	adminG.POST("/levels/:name/start", h.StartLevel)
	adminG.DELETE("/levels/:name", h.StopLevel)
	adminG.POST("/levels/:name/meow", h.Meow)
	adminG.POST("/levels/:name/blind", h.Blind)
	adminG.POST("/levels/:name/reset", h.Reset)
	adminG.POST("/levels/:name/targets/:index", h.MoveTarget)
	return r, wm
}

func keyed() []string { return []string{rest.AdminKeyHeader, testKey} }

// ---- AdminAuth ----

func TestAdminAuth_NoKey_Disabled(t *testing.T) {
	r, _ := newAdminRouter(t, "")
	w := doGet(r, "/api/admin/metrics")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAdminAuth_WrongKey(t *testing.T) {
	r, _ := newAdminRouter(t, adminHash(t, testKey))
	w := doGet(r, "/api/admin/metrics", rest.AdminKeyHeader, "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminAuth_MissingHeader(t *testing.T) {
	r, _ := newAdminRouter(t, adminHash(t, testKey))
	w := doGet(r, "/api/admin/metrics")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminAuth_CorrectKey(t *testing.T) {
	r, _ := newAdminRouter(t, adminHash(t, testKey))
	w := doGet(r, "/api/admin/metrics", keyed()...)
	assert.Equal(t, http.StatusOK, w.Code)
}

// ---- Metrics ----

func TestMetrics_Structure(t *testing.T) {
	r, wm := newAdminRouter(t, adminHash(t, testKey))
	_, err := wm.GetOrCreate("hall")
	require.NoError(t, err)

	w := doGet(r, "/api/admin/metrics", keyed()...)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(1), resp["active_levels"])
	assert.Equal(t, float64(1), resp["guards"])
	assert.Equal(t, map[string]interface{}{"patrol": float64(1)}, resp["guard_modes"])
	assert.Contains(t, resp, "scheduler_tasks")
}

func TestListSchedulerTasks(t *testing.T) {
	r, _ := newAdminRouter(t, adminHash(t, testKey))
	w := doGet(r, "/api/admin/scheduler", keyed()...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"tasks":[]}`, w.Body.String())
}

// ---- Level control ----

func TestStartStopLevel(t *testing.T) {
	r, wm := newAdminRouter(t, adminHash(t, testKey))

	w := doSend(r, http.MethodPost, "/api/admin/levels/hall/start", "", keyed()...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotNil(t, wm.Get("hall"))

	w = doSend(r, http.MethodDelete, "/api/admin/levels/hall", "", keyed()...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, wm.Get("hall"))

	w = doSend(r, http.MethodDelete, "/api/admin/levels/hall", "", keyed()...)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStartLevel_Unknown(t *testing.T) {
	r, _ := newAdminRouter(t, adminHash(t, testKey))
	w := doSend(r, http.MethodPost, "/api/admin/levels/nowhere/start", "", keyed()...)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMeow_StartsInvestigation(t *testing.T) {
	r, wm := newAdminRouter(t, adminHash(t, testKey))
	l, err := wm.GetOrCreate("hall")
	require.NoError(t, err)

	w := doSend(r, http.MethodPost, "/api/admin/levels/hall/meow", `{"x":0.5,"y":1.5}`, keyed()...)
	require.Equal(t, http.StatusOK, w.Code)

	l.Tick()
	gs := l.GuardSnapshots()[0]
	assert.Equal(t, "investigate", gs.Mode)
	assert.True(t, gs.Meowed)
	assert.InDelta(t, 1.5, gs.TargetY, 1e-9)
}

func TestMeow_Validation(t *testing.T) {
	r, wm := newAdminRouter(t, adminHash(t, testKey))
	_, err := wm.GetOrCreate("hall")
	require.NoError(t, err)

	w := doSend(r, http.MethodPost, "/api/admin/levels/hall/meow", `{"x":1}`, keyed()...)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doSend(r, http.MethodPost, "/api/admin/levels/idle/meow", `{"x":1,"y":1}`, keyed()...)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBlind(t *testing.T) {
	r, wm := newAdminRouter(t, adminHash(t, testKey))
	l, err := wm.GetOrCreate("hall")
	require.NoError(t, err)

	w := doSend(r, http.MethodPost, "/api/admin/levels/hall/blind", "", keyed()...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true,"cameras":1,"ticks":180}`, w.Body.String())
	assert.True(t, l.Snapshot().Cameras[0].Blinded)
}

func TestMoveTarget_TripsCamera(t *testing.T) {
	r, wm := newAdminRouter(t, adminHash(t, testKey))
	l, err := wm.GetOrCreate("hall")
	require.NoError(t, err)

	w := doSend(r, http.MethodPost, "/api/admin/levels/hall/targets/0", `{"x":2.5,"y":0.5,"active":true}`, keyed()...)
	require.Equal(t, http.StatusOK, w.Code)

	l.Tick()
	gs := l.GuardSnapshots()[0]
	assert.Equal(t, "chase", gs.Mode)
	assert.True(t, gs.CameraAlerted)
}

func TestMoveTarget_Errors(t *testing.T) {
	r, wm := newAdminRouter(t, adminHash(t, testKey))
	_, err := wm.GetOrCreate("hall")
	require.NoError(t, err)

	w := doSend(r, http.MethodPost, "/api/admin/levels/hall/targets/x", `{"x":1,"y":1}`, keyed()...)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doSend(r, http.MethodPost, "/api/admin/levels/hall/targets/7", `{"x":1,"y":1}`, keyed()...)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReset(t *testing.T) {
	r, wm := newAdminRouter(t, adminHash(t, testKey))
	l, err := wm.GetOrCreate("hall")
	require.NoError(t, err)
	l.Tick()
	require.Equal(t, uint64(1), l.TickCount())

	w := doSend(r, http.MethodPost, "/api/admin/levels/hall/reset", "", keyed()...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, uint64(0), l.TickCount())
}

// ---- Token ----

func TestIssueToken(t *testing.T) {
	r, _ := newAdminRouter(t, adminHash(t, testKey))

	w := doSend(r, http.MethodPost, "/api/admin/token", `{"observer":"ops","level":"hall","ttl":"5m"}`, keyed()...)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Token     string `json:"token"`
		ExpiresAt int64  `json:"expires_at"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	claims, err := mw.ParseToken(resp.Token, testSec.JWTSecret)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Observer)
	assert.True(t, claims.CanWatch("hall"))
	assert.False(t, claims.CanWatch("idle"))
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), claims.ExpiresAt.Time, 5*time.Second)
}

func TestIssueToken_TTLCapped(t *testing.T) {
	r, _ := newAdminRouter(t, adminHash(t, testKey))

	w := doSend(r, http.MethodPost, "/api/admin/token", `{"observer":"ops","ttl":"999h"}`, keyed()...)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	claims, err := mw.ParseToken(resp.Token, testSec.JWTSecret)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestIssueToken_BadRequest(t *testing.T) {
	r, _ := newAdminRouter(t, adminHash(t, testKey))

	w := doSend(r, http.MethodPost, "/api/admin/token", `{}`, keyed()...)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doSend(r, http.MethodPost, "/api/admin/token", `{"observer":"ops","ttl":"soon"}`, keyed()...)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
