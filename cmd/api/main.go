package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"prospection_backend/internal/prospection"
	"prospection_backend/internal/prospection/sources"
	"prospection_backend/platform/cache"
	"prospection_backend/platform/config"
	"prospection_backend/platform/httpkit"
	"prospection_backend/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, backend := newStore(cfg)
	log.Info("cache store selected", "backend", backend)

	module := prospection.New(cfg, store, log)

	engine := newEngine(cfg, log, backend)
	module.Handler.RegisterRoutes(engine)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// newStore selects the cache backend: Redis when configured, the in-process
// map otherwise.
func newStore(cfg *config.Config) (cache.Store, string) {
	if cfg.GetRedisAddr() != "" {
		return cache.NewRedis(cfg.GetRedisAddr(), cfg.GetRedisPassword(), cfg.GetRedisDB()), "redis"
	}
	return cache.NewMemory(), "memory"
}

func newEngine(cfg *config.Config, log *logger.Logger, cacheBackend string) *gin.Engine {
	if cfg.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(newCORS(cfg))
	engine.Use(httpkit.RequestID())
	engine.Use(httpkit.RequestTimer(log))

	engine.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":          "ok",
			"cache":           cacheBackend,
			"enabled_sources": enabledSourceNames(cfg),
		})
	})

	return engine
}

func newCORS(cfg *config.Config) gin.HandlerFunc {
	corsCfg := cors.DefaultConfig()
	if cfg.GetCORSAllowAll() {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.GetCORSOrigins()
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization", "X-Request-ID")
	return cors.New(corsCfg)
}

// enabledSourceNames lists the sources the pipeline will consult, for the
// health endpoint.
func enabledSourceNames(cfg *config.Config) []string {
	all := []string{
		sources.SourceRecherche,
		sources.SourceSirene,
		sources.SourceBAN,
		sources.SourceBDNB,
		sources.SourceBDTopo,
		sources.SourceRNB,
		sources.SourceDPE,
		sources.SourceGeorisques,
		sources.SourcePappers,
	}

	enabledSet := cfg.GetEnabledSources()
	var enabled []string
	for _, name := range all {
		if len(enabledSet) > 0 && !enabledSet[name] {
			continue
		}
		switch name {
		case sources.SourceSirene:
			if !cfg.IsSireneEnabled() {
				continue
			}
		case sources.SourcePappers:
			if !cfg.IsPappersEnabled() {
				continue
			}
		}
		enabled = append(enabled, name)
	}
	sort.Strings(enabled)
	return enabled
}
