package integration

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	apirest "github.com/kasuganosora/stealthguard/api/rest"
	"github.com/kasuganosora/stealthguard/api/sse"
	apiws "github.com/kasuganosora/stealthguard/api/ws"
	"github.com/kasuganosora/stealthguard/audit"
	"github.com/kasuganosora/stealthguard/cache"
	"github.com/kasuganosora/stealthguard/config"
	"github.com/kasuganosora/stealthguard/game/ai"
	"github.com/kasuganosora/stealthguard/game/world"
	mw "github.com/kasuganosora/stealthguard/middleware"
	"github.com/kasuganosora/stealthguard/resource"
	"github.com/kasuganosora/stealthguard/scheduler"
	"github.com/kasuganosora/stealthguard/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// AdminKey is the plain admin key accepted by every test server.
const AdminKey = "integration-admin"

// LevelDir holds the shipped level files.
const LevelDir = "../data/levels"

// TestServer wraps a real HTTP server with all subsystems wired together.
type TestServer struct {
	DB     *gorm.DB
	Cache  cache.Cache
	PubSub cache.PubSub
	WM     *world.WorldManager
	Res    *resource.ResourceLoader
	Audit  *audit.Service
	Sched  *scheduler.Scheduler
	Server *httptest.Server
	URL    string // http://127.0.0.1:<port>
	WSURL  string // ws://127.0.0.1:<port>/ws
	Sec    config.SecurityConfig
}

// NewTestServer creates a fully wired server for integration testing.
// It mirrors the dependency wiring in main.go with fast ticks and flushes.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	// ---- Infrastructure ----
	db := testutil.SetupTestDB(t)
	c, pubsub := testutil.SetupTestCache(t)
	logger := zap.NewNop()

	sec := config.SecurityConfig{
		JWTSecret:      "integration-test-secret",
		JWTTTL:         time.Hour,
		RateLimitRPS:   1000,
		RateLimitBurst: 2000,
		AllowedOrigins: []string{}, // allow all origins
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(AdminKey), bcrypt.MinCost)
	require.NoError(t, err)

	auditSvc := audit.New(db, audit.Options{BatchSize: 10, FlushInterval: 20 * time.Millisecond}, logger)
	t.Cleanup(func() { auditSvc.Stop(context.Background()) })
	sinks := world.MultiSink{
		world.NewPubSubSink(pubsub, logger),
		world.NewRecentAlertsSink(c, 50, logger),
		auditSvc,
	}

	res := resource.NewLoader(LevelDir)
	require.NoError(t, res.Load(), "load levels from %s", LevelDir)

	wm := world.NewWorldManager(res, world.LevelConfig{
		Params:       ai.DefaultParams(),
		TickInterval: 5 * time.Millisecond,
	}, sinks, logger)
	t.Cleanup(wm.StopAll)

	sched := scheduler.New(logger)
	t.Cleanup(sched.Stop)
	sched.AddTicker(scheduler.TaskSnapshotCache, 20*time.Millisecond, scheduler.SnapshotCache(wm, c, logger))
	sched.AddTicker(scheduler.TaskGridDump, 20*time.Millisecond, scheduler.GridDump(wm, c, logger))

	// ---- WS Router ----
	wsRouter := apiws.NewRouter(logger)
	apiws.NewLevelHandlers(wm, logger).RegisterHandlers(wsRouter)

	// ---- Gin HTTP Server ----
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	r := gin.New()
	r.Use(mw.TraceID(), mw.Recovery(logger))
	r.Use(mw.RateLimit(ctx, rate.Limit(sec.RateLimitRPS), sec.RateLimitBurst))

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok", "levels": wm.ActiveLevelCount()})
	})

	// ---- REST API routes (mirrors main.go) ----
	levelH := apirest.NewLevelHandler(wm, c, auditSvc, logger)
	adminH := apirest.NewAdminHandler(wm, sched, logger)
	tokenH := apirest.NewTokenHandler(sec)

	api := r.Group("/api")
	{
		levelsG := api.Group("/levels")
		levelsG.GET("", levelH.List)
		levelsG.GET("/:name", levelH.Snapshot)
		levelsG.GET("/:name/grid", levelH.Grid)
		levelsG.GET("/:name/guards", levelH.Guards)
		levelsG.GET("/:name/alerts", levelH.Alerts)

		adminG := api.Group("/admin")
		adminG.Use(mw.IPWhitelist(nil), apirest.AdminAuth(string(hash)))
		adminG.GET("/metrics", adminH.Metrics)
		adminG.GET("/scheduler", adminH.ListSchedulerTasks)
		adminG.POST("/token", tokenH.Issue)
		adminG.POST("/levels/:name/start", adminH.StartLevel)
		adminG.DELETE("/levels/:name", adminH.StopLevel)
		adminG.POST("/levels/:name/meow", adminH.Meow)
		adminG.POST("/levels/:name/blind", adminH.Blind)
		adminG.POST("/levels/:name/reset", adminH.Reset)
		adminG.POST("/levels/:name/targets/:index", adminH.MoveTarget)
	}

	// ---- Observer streams ----
	observer := mw.ObserverAuth(sec)
	wsH := apiws.NewHandler(sec, wm, wsRouter, 10*time.Millisecond, logger)
	r.GET("/ws", observer, wsH.ServeWS)
	sseH := sse.NewHandler(pubsub, logger)
	r.GET("/sse", observer, sseH.ServeSSE)

	// ---- Start server ----
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	url := server.URL

	return &TestServer{
		DB:     db,
		Cache:  c,
		PubSub: pubsub,
		WM:     wm,
		Res:    res,
		Audit:  auditSvc,
		Sched:  sched,
		Server: server,
		URL:    url,
		WSURL:  "ws" + strings.TrimPrefix(url, "http") + "/ws",
		Sec:    sec,
	}
}

// --- HTTP helpers ---

func (ts *TestServer) do(t *testing.T, method, path string, body interface{}, admin bool) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.Header.Set(apirest.AdminKeyHeader, AdminKey)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// Get sends an unauthenticated GET request.
func (ts *TestServer) Get(t *testing.T, path string) *http.Response {
	t.Helper()
	return ts.do(t, http.MethodGet, path, nil, false)
}

// Admin sends a request carrying the admin key.
func (ts *TestServer) Admin(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()
	return ts.do(t, method, path, body, true)
}

// ReadJSON reads and decodes a JSON response body into the given target.
func ReadJSON(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, target), "body: %s", string(data))
}

// StartLevel starts a level through the admin API.
func (ts *TestServer) StartLevel(t *testing.T, name string) *world.Level {
	t.Helper()
	resp := ts.Admin(t, http.MethodPost, "/api/admin/levels/"+name+"/start", nil)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	l := ts.WM.Get(name)
	require.NotNil(t, l)
	return l
}

// Token issues an observer token through the admin API.
func (ts *TestServer) Token(t *testing.T, observer, level string) string {
	t.Helper()
	resp := ts.Admin(t, http.MethodPost, "/api/admin/token", map[string]string{
		"observer": observer,
		"level":    level,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Token string `json:"token"`
	}
	ReadJSON(t, resp, &out)
	require.NotEmpty(t, out.Token)
	return out.Token
}

// Guards fetches the guard snapshots of a level.
func (ts *TestServer) Guards(t *testing.T, level string) (live bool, guards []world.GuardSnapshot) {
	t.Helper()
	resp := ts.Get(t, "/api/levels/"+level+"/guards")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Live   bool                  `json:"live"`
		Guards []world.GuardSnapshot `json:"guards"`
	}
	ReadJSON(t, resp, &out)
	return out.Live, out.Guards
}

// --- SSE client ---

// SSEClient reads server-sent events from /sse.
type SSEClient struct {
	resp   *http.Response
	events chan [2]string
}

// ConnectSSE opens the alert stream and waits for the connected event.
func (ts *TestServer) ConnectSSE(t *testing.T, token, level string) *SSEClient {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	url := ts.URL + "/sse?token=" + token
	if level != "" {
		url += "&level=" + level
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	t.Cleanup(func() { resp.Body.Close() })

	sc := &SSEClient{resp: resp, events: make(chan [2]string, 256)}
	go sc.readLoop()
	event, _ := sc.Next(t, 2*time.Second)
	require.Equal(t, "connected", event)
	return sc
}

func (sc *SSEClient) readLoop() {
	defer close(sc.events)
	s := bufio.NewScanner(sc.resp.Body)
	var event, data string
	for s.Scan() {
		line := s.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && event != "":
			sc.events <- [2]string{event, data}
			event, data = "", ""
		}
	}
}

// Next returns the next event name and data.
func (sc *SSEClient) Next(t *testing.T, timeout time.Duration) (string, string) {
	t.Helper()
	select {
	case ev, ok := <-sc.events:
		require.True(t, ok, "sse stream closed")
		return ev[0], ev[1]
	case <-time.After(timeout):
		t.Fatal("timed out waiting for sse event")
		return "", ""
	}
}

// NextAlert returns the first alert satisfying match.
func (sc *SSEClient) NextAlert(t *testing.T, timeout time.Duration, match func(world.Alert) bool) world.Alert {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		event, data := sc.Next(t, time.Until(deadline))
		if event != "alert" {
			continue
		}
		a, err := world.ParseAlert(data)
		require.NoError(t, err)
		if match(a) {
			return a
		}
	}
	t.Fatal("timed out waiting for matching alert")
	return world.Alert{}
}

// --- WebSocket client ---

// WSClient wraps a gorilla/websocket connection for integration testing.
// Uses a background readLoop to avoid gorilla/websocket's SetReadDeadline bug.
type WSClient struct {
	Conn   *websocket.Conn
	t      *testing.T
	seq    uint64
	readCh chan readResult
}

type readResult struct {
	data []byte
	err  error
}

// ConnectWS dials the WS endpoint with the given token and query.
func (ts *TestServer) ConnectWS(t *testing.T, token, level string) *WSClient {
	t.Helper()
	url := ts.WSURL + "?token=" + token
	if level != "" {
		url += "&level=" + level
	}
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	require.NoError(t, err, "WS dial failed")
	t.Cleanup(func() { conn.Close() })
	wc := &WSClient{Conn: conn, t: t, readCh: make(chan readResult, 256)}
	go wc.readLoop()
	return wc
}

func (wc *WSClient) readLoop() {
	for {
		_, data, err := wc.Conn.ReadMessage()
		wc.readCh <- readResult{data, err}
		if err != nil {
			return
		}
	}
}

// Send writes a JSON message packet to the WebSocket.
func (wc *WSClient) Send(msgType string, payload interface{}) {
	wc.t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(wc.t, err)
	pkt := apiws.Packet{Seq: atomic.AddUint64(&wc.seq, 1), Type: msgType, Payload: raw}
	require.NoError(wc.t, wc.Conn.WriteJSON(pkt))
}

// RecvType reads packets until one with the given type arrives.
func (wc *WSClient) RecvType(msgType string, timeout time.Duration) apiws.Packet {
	wc.t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case res := <-wc.readCh:
			require.NoError(wc.t, res.err, "WS recv failed while waiting for %q", msgType)
			var pkt apiws.Packet
			require.NoError(wc.t, json.Unmarshal(res.data, &pkt))
			if pkt.Type == msgType {
				return pkt
			}
		case <-deadline:
			wc.t.Fatalf("timed out waiting for message type %q", msgType)
			return apiws.Packet{}
		}
	}
}
