package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	apirest "github.com/kasuganosora/stealthguard/api/rest"
	"github.com/kasuganosora/stealthguard/api/sse"
	apiws "github.com/kasuganosora/stealthguard/api/ws"
	"github.com/kasuganosora/stealthguard/audit"
	"github.com/kasuganosora/stealthguard/cache"
	"github.com/kasuganosora/stealthguard/config"
	dbadapter "github.com/kasuganosora/stealthguard/db"
	"github.com/kasuganosora/stealthguard/game/world"
	mw "github.com/kasuganosora/stealthguard/middleware"
	"github.com/kasuganosora/stealthguard/model"
	"github.com/kasuganosora/stealthguard/resource"
	"github.com/kasuganosora/stealthguard/scheduler"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	// Warn loudly if admin endpoints will be disabled.
	if cfg.Server.AdminKeyHash == "" {
		logger.Warn("server.admin_key_hash is not set; admin endpoints are disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	logger.Info("DB initialized", zap.String("mode", cfg.Database.Mode))

	// ---- Cache / PubSub ----
	cacheConfig := cache.CacheConfig{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		RedisPrefix:     cfg.Cache.RedisPrefix,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
		LocalPubSubBuf:  cfg.Cache.LocalPubSubBuf,
	}
	c, pubsub, err := cache.Open(cacheConfig)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	logger.Info("Cache initialized", zap.Bool("redis", cfg.Cache.RedisAddr != ""))

	// ---- Alert sinks ----
	sinks := world.MultiSink{
		world.NewPubSubSink(pubsub, logger),
		world.NewRecentAlertsSink(c, cfg.Game.RecentAlerts, logger),
	}
	var history apirest.AlertHistory
	if cfg.Audit.Enabled {
		auditSvc := audit.New(db, audit.Options{
			BatchSize:     cfg.Audit.BatchSize,
			FlushInterval: cfg.Audit.FlushInterval,
		}, logger)
		defer auditSvc.Stop(context.Background())
		sinks = append(sinks, auditSvc)
		history = auditSvc
	}

	// ---- Levels ----
	res := resource.NewLoader(cfg.Game.LevelDir)
	if err := res.Load(); err != nil {
		log.Fatalf("levels: %v", err)
	}
	logger.Info("Levels loaded", zap.Strings("levels", res.Names()))

	wm := world.NewWorldManager(res, world.LevelConfig{
		Params:       cfg.Guard,
		TickInterval: cfg.Game.TickInterval(),
	}, sinks, logger)
	defer wm.StopAll()
	for _, name := range cfg.Game.StartLevels {
		if _, err := wm.GetOrCreate(name); err != nil {
			log.Fatalf("start level %s: %v", name, err)
		}
	}

	// ---- Periodic Scheduler Tasks ----
	sched := scheduler.New(logger)
	defer sched.Stop()
	sched.AddTicker(scheduler.TaskSnapshotCache, cfg.Game.SnapshotInterval, scheduler.SnapshotCache(wm, c, logger))
	sched.AddTicker(scheduler.TaskGridDump, cfg.Game.GridDumpInterval, scheduler.GridDump(wm, c, logger))

	// ---- WS Router ----
	wsRouter := apiws.NewRouter(logger)
	apiws.NewLevelHandlers(wm, logger).RegisterHandlers(wsRouter)

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.RateLimit(ctx, rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok", "levels": wm.ActiveLevelCount()})
	})

	levelH := apirest.NewLevelHandler(wm, c, history, logger)
	adminH := apirest.NewAdminHandler(wm, sched, logger)
	tokenH := apirest.NewTokenHandler(cfg.Security)

	api := r.Group("/api")
	{
		levelsG := api.Group("/levels")
		levelsG.GET("", levelH.List)
		levelsG.GET("/:name", levelH.Snapshot)
		levelsG.GET("/:name/grid", levelH.Grid)
		levelsG.GET("/:name/guards", levelH.Guards)
		levelsG.GET("/:name/alerts", levelH.Alerts)

		adminG := api.Group("/admin")
		adminG.Use(mw.IPWhitelist(cfg.Security.AdminIPs), apirest.AdminAuth(cfg.Server.AdminKeyHash))
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
	observer := mw.ObserverAuth(cfg.Security)
	wsH := apiws.NewHandler(cfg.Security, wm, wsRouter, cfg.Game.StreamInterval, logger)
	r.GET("/ws", observer, wsH.ServeWS)
	sseH := sse.NewHandler(pubsub, logger)
	r.GET("/sse", observer, sseH.ServeSSE)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return logAlerts(gctx, pubsub, logger)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped", zap.Error(err))
	}
	logger.Info("shutting down")
}

// logAlerts consumes the alert bus and logs every guard transition until
// ctx is cancelled. With Redis this sees alerts from every instance.
func logAlerts(ctx context.Context, ps cache.PubSub, logger *zap.Logger) error {
	msgs, unsub, err := ps.Subscribe(ctx, world.AlertChannel)
	if err != nil {
		return fmt.Errorf("subscribe alerts: %w", err)
	}
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			a, err := world.ParseAlert(msg.Payload)
			if err != nil {
				logger.Warn("malformed alert", zap.Error(err))
				continue
			}
			logger.Info("guard alert",
				zap.String("level", a.Level),
				zap.String("guard_id", a.GuardID),
				zap.String("from", a.From),
				zap.String("to", a.To),
				zap.String("cause", a.Cause),
				zap.Bool("camera", a.Camera),
				zap.Uint64("tick", a.Tick))
		}
	}
}
