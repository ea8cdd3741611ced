package rest_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/stealthguard/cache"
	"github.com/kasuganosora/stealthguard/game/ai"
	"github.com/kasuganosora/stealthguard/game/world"
	"github.com/kasuganosora/stealthguard/resource"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func nopLogger() *zap.Logger { return zap.NewNop() }

// hallDef is a 3x2 level with one wall tile and a single guard.
func hallDef() *resource.LevelDef {
	return &resource.LevelDef{
		Name:         "hall",
		Bounds:       resource.Bounds{Width: 3, Height: 2},
		Scale:        resource.Point{X: 1, Y: 1},
		CellsPerUnit: 1,
		Walls:        []resource.Box{{Center: resource.Point{X: 1.5, Y: 0.5}, Half: resource.Point{X: 0.5, Y: 0.5}}},
		Guards: []resource.GuardDef{
			{ID: "g1", Position: resource.Point{X: 0.5, Y: 0.5}, Force: 1},
		},
		Targets: []resource.TargetDef{
			{Name: "gar", Position: resource.Point{X: 2.5, Y: 1.5}},
		},
		Cameras: []resource.CameraDef{
			{ID: "cam", Position: resource.Point{X: 2.5, Y: 0.5}, Radius: 0.5},
		},
	}
}

// newWorld returns a manager knowing "hall" and "idle"; neither is started.
// The hour-long tick keeps running levels still unless a test ticks them.
func newWorld(t *testing.T) *world.WorldManager {
	t.Helper()
	res := resource.NewLoader("")
	res.Add(hallDef())
	idle := hallDef()
	idle.Name = "idle"
	res.Add(idle)
	wm := world.NewWorldManager(res, world.LevelConfig{Params: ai.DefaultParams(), TickInterval: time.Hour}, nil, nopLogger())
	t.Cleanup(wm.StopAll)
	return wm
}

func newCache(t *testing.T) cache.Cache {
	t.Helper()
	c, _, err := cache.Open(cache.CacheConfig{})
	require.NoError(t, err)
	return c
}

func adminHash(t *testing.T, key string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func doGet(r http.Handler, path string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func doSend(r http.Handler, method, path, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
