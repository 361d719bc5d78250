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
	apirest "github.com/kasuganosora/sentrysim/api/rest"
	"github.com/kasuganosora/sentrysim/api/sse"
	"github.com/kasuganosora/sentrysim/audit"
	"github.com/kasuganosora/sentrysim/cache"
	"github.com/kasuganosora/sentrysim/config"
	dbadapter "github.com/kasuganosora/sentrysim/db"
	"github.com/kasuganosora/sentrysim/game/world"
	mw "github.com/kasuganosora/sentrysim/middleware"
	"github.com/kasuganosora/sentrysim/model"
	"github.com/kasuganosora/sentrysim/plugin/hook"
	"github.com/kasuganosora/sentrysim/resource"
	"github.com/kasuganosora/sentrysim/scheduler"
	"go.uber.org/zap"
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

	if cfg.Security.AdminKeyHash == "" {
		logger.Warn("security.admin_key_hash is not set; no operator tokens can be issued")
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

	// ---- Combat log ----
	auditSvc := audit.New(db, audit.Options{
		BufferSize:    cfg.Audit.BufferSize,
		BatchSize:     cfg.Audit.BatchSize,
		FlushInterval: cfg.Audit.FlushInterval,
	}, logger)
	defer auditSvc.Stop(context.Background())

	// ---- Cache / PubSub ----
	cacheConfig := cache.CacheConfig{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
		LocalPubSubBuf:  cfg.Cache.LocalPubSubBuf,
	}
	c, err := cache.NewCache(cacheConfig)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	pubsub, err := cache.NewPubSub(cacheConfig)
	if err != nil {
		log.Fatalf("pubsub: %v", err)
	}
	logger.Info("Cache initialized", zap.Bool("redis", cfg.Cache.RedisAddr != ""))

	// ---- Arena definitions ----
	res := resource.NewLoader(cfg.Sim.ArenasDir)
	if err := res.Load(); err != nil {
		logger.Warn("arena definitions load warning", zap.Error(err))
	} else {
		logger.Info("arena definitions loaded", zap.Strings("names", res.Names()))
	}

	// ---- Hooks ----
	hooks := hook.NewCenter(logger)
	hooks.Register(hook.OnMatchOver, 100, "match_log", func(_ context.Context, _ string, data any) (any, error) {
		if ev, ok := data.(*hook.MatchEvent); ok {
			logger.Info("match over",
				zap.String("arena_id", ev.Arena),
				zap.String("outcome", ev.Outcome),
				zap.Int("kills", ev.Kills))
		}
		return data, nil
	})

	// ---- Arenas ----
	recorder := world.NewRecorder(db, c, pubsub, logger)
	defer recorder.Stop()
	wm := world.NewManager(res, cfg, world.Deps{
		Hooks:  hooks,
		Audit:  auditSvc,
		Sink:   recorder,
		Logger: logger,
	})
	defer wm.StopAll()
	for _, name := range cfg.Sim.Autostart {
		a, err := wm.Create(name, "player")
		if err != nil {
			logger.Error("autostart failed", zap.String("definition", name), zap.Error(err))
			continue
		}
		logger.Info("arena autostarted", zap.String("definition", name), zap.String("arena_id", a.ID()))
	}

	// ---- Handlers ----
	rankH := apirest.NewRankingHandler(db, c, logger)

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()
	if cfg.Sim.RankingRefresh > 0 {
		sched.Every("ranking_rebuild", cfg.Sim.RankingRefresh, func() {
			rctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			if _, err := rankH.Rebuild(rctx); err != nil {
				logger.Warn("ranking rebuild failed", zap.Error(err))
			}
		})
	}
	sched.Every("arena_reap", time.Minute, func() {
		if n := wm.Reap(cfg.Sim.ReapAfter); n > 0 {
			logger.Info("reaped finished arenas", zap.Int("count", n))
		}
	})
	if cfg.Sim.ReloadInterval > 0 {
		sched.Every("definitions_reload", cfg.Sim.ReloadInterval, func() {
			if err := res.Load(); err != nil {
				logger.Warn("arena definitions reload failed", zap.Error(err))
			}
		})
	}

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.RateLimit(ctx, rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))

	apirest.Handlers{
		Auth:    apirest.NewAuthHandler(c, cfg.Security, logger),
		Arena:   apirest.NewArenaHandler(wm, res, logger),
		History: apirest.NewHistoryHandler(db, c, auditSvc, logger),
		Ranking: rankH,
		Admin:   apirest.NewAdminHandler(wm, sched, auditSvc, logger),
	}.Register(r, cfg.Security, c)

	// ---- SSE ----
	sseH := sse.NewHandler(pubsub, c, cfg.Security, logger)
	r.GET("/sse", sseH.ServeSSE)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
}
