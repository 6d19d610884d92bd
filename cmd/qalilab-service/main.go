// cmd/qalilab-service/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"qalilab/internal/descriptor"
	"qalilab/internal/generate"
	"qalilab/internal/lifecycle"
	"qalilab/internal/tracker"
	"qalilab/internal/web"
	"qalilab/pkg/config"
	"qalilab/pkg/db"
	"qalilab/pkg/logger"
	"qalilab/pkg/middleware"
	"qalilab/pkg/tenants"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)

	pool := db.MustConnect(cfg, log)
	rdb := db.MustRedis(cfg, log)

	var store tenants.Store
	if pool != nil {
		if err := tenants.EnsureSchema(context.Background(), pool); err != nil {
			log.Fatalw("schema", "err", err)
		}
		store = tenants.NewPostgresStore(pool, log)
	} else {
		store = tenants.NewMemoryStore(log)
	}

	builder := generate.NewBuilder()
	if cfg.PromptsFile != "" {
		b, err := generate.LoadTemplates(cfg.PromptsFile)
		if err != nil {
			log.Warnw("prompt templates", "path", cfg.PromptsFile, "err", err)
		} else {
			builder = b
		}
	}

	gen := generate.NewClient(cfg)
	types := tracker.NewTypeCache(rdb)
	jira := tracker.NewBasicClient(cfg, types, log)
	factory := tracker.NewFactory(cfg, store, types, log)
	app := web.NewApp(cfg, log, builder, gen, jira, factory, store)

	r := chi.NewRouter()
	r.Use(middleware.RequestID())
	r.Use(middleware.Recover(log))
	r.Use(middleware.Tracing(cfg))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.Write([]byte("ok")) })
	descriptor.RegisterRoutes(r, cfg, log)
	lifecycle.RegisterRoutes(r, store, log)
	app.RegisterRoutes(r)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	go func() {
		log.Infow("qalilab-service listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("ListenAndServe", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	fmt.Println("qalilab-service stopped")
}
