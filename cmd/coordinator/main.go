// Command coordinator is the archiveflow coordinator process: it serves
// the public and internal REST surface described in spec.md §6, backed by
// the Context Store, Agent Registry, and Message Router constructed here
// and nowhere else, per the explicit-wiring-value design note.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"goa.design/clue/log"

	"github.com/archiveflow/coordinator/agentregistry"
	"github.com/archiveflow/coordinator/config"
	"github.com/archiveflow/coordinator/contextstore"
	"github.com/archiveflow/coordinator/restapi"
	"github.com/archiveflow/coordinator/router"
	"github.com/archiveflow/coordinator/telemetry"
	"github.com/archiveflow/coordinator/workflow"
)

func main() {
	format := log.FormatJSON
	if log.IsTerminal() {
		format = log.FormatTerminal
	}
	ctx := log.Context(context.Background(), log.WithFormat(format))

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf(ctx, err, "configuration error")
	}

	bundle := telemetry.NewClueBundle()

	cache, err := contextstore.NewRedisCache(cfg.CacheURL)
	if err != nil {
		log.Fatalf(ctx, err, "constructing cache client")
	}
	if err := cache.Ping(ctx); err != nil {
		log.Print(ctx, log.KV{K: "warn", V: "cache unreachable at startup, health will report unhealthy"})
	}
	files := contextstore.NewFileStore(cfg.SessionBasePath)
	store := contextstore.New(cache, files, cfg.CacheSessionTTL)

	registry := agentregistry.New(agentregistry.WithLogger(bundle.Logger))

	rt := router.New(router.Config{
		ConnectTimeout: 10 * time.Second,
		ReadTimeout:    60 * time.Second,
		WriteTimeout:   60 * time.Second,
	})

	engine := workflow.New(store, registry, rt, bundle.Logger)

	handler := restapi.NewServer(restapi.Deps{
		Engine:     engine,
		Store:      store,
		Registry:   registry,
		Logger:     bundle.Logger,
		OutputBase: cfg.OutputBasePath,
	})

	addr := net.JoinHostPort(cfg.BindHost, fmt.Sprintf("%d", cfg.BindPort))
	srv := &http.Server{Addr: addr, Handler: handler}

	errc := make(chan error, 1)
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errc <- fmt.Errorf("%s", <-c)
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Print(ctx, log.KV{K: "bind", V: addr})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	log.Printf(ctx, "exiting (%v)", <-errc)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Print(ctx, log.KV{K: "shutdown_error", V: err.Error()})
	}
	rt.Close()
	if err := cache.Close(); err != nil {
		log.Print(ctx, log.KV{K: "cache_close_error", V: err.Error()})
	}

	wg.Wait()
	log.Printf(ctx, "exited")
}
