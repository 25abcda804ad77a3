package ops

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skuforge/catalog-engine/pkg/logger"
)

// Pinger is a named dependency whose health the /healthz endpoint reports.
type Pinger struct {
	Name string
	Ping func(context.Context) error
}

// NewHandler builds the operational HTTP surface every worker binary serves:
// liveness, dependency readiness and Prometheus metrics.
func NewHandler(serviceName string, gatherer prometheus.Gatherer, pingers ...Pinger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 5*time.Second)
		defer cancel()

		status := http.StatusOK
		deps := map[string]string{}
		for _, p := range pingers {
			if err := p.Ping(ctx); err != nil {
				deps[p.Name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			deps[p.Name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"service":      serviceName,
			"status":       http.StatusText(status),
			"dependencies": deps,
		})
	})

	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return r
}

// Serve runs the operational server until the context is canceled, then
// shuts it down gracefully. Errors are logged, never fatal: losing the ops
// surface must not take the worker down.
func Serve(ctx context.Context, addr string, handler http.Handler, logg *logger.Logger) {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "ops server shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "ops server stopped", err)
	}
}
