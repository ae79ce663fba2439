package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	httpadapter "github.com/aretw0/cohort/pkg/adapters/http"
	"github.com/aretw0/cohort/pkg/adapters/mcp"
	"github.com/aretw0/cohort/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Serve runs the HTTP API on addr (the configured address when empty) until
// ctx is cancelled.
func (a *App) Serve(ctx context.Context, addr string) error {
	if addr == "" {
		addr = a.Config.HTTP.Addr
	}
	store, closeStore, err := a.OpenStore()
	if err != nil {
		return err
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	handler := httpadapter.NewHandler(
		a.NewRunner(store, metrics.Hooks()),
		httpadapter.WithMetrics(metrics, reg),
		httpadapter.WithLogger(a.Logger),
	)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		a.Logger.Info("cohort server listening", "address", addr, "store", a.Config.Store.Backend)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		a.printSystemMessage("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("graceful shutdown did not complete: %w", err)
		}
		return nil
	}
}

// ServeMCP runs the MCP server over stdio or, with transport "sse", on addr.
func (a *App) ServeMCP(ctx context.Context, transport, addr string) error {
	store, closeStore, err := a.OpenStore()
	if err != nil {
		return err
	}
	defer closeStore()

	srv := mcp.NewServer(a.NewRunner(store))
	switch transport {
	case "", "stdio":
		a.Logger.Info("starting cohort MCP server (stdio)")
		return srv.ServeStdio()
	case "sse":
		if addr == "" {
			addr = a.Config.HTTP.Addr
		}
		err := srv.ServeSSE(ctx, addr)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	default:
		return fmt.Errorf("unknown transport %q (supported: stdio, sse)", transport)
	}
}
