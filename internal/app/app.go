// Package app wires configuration, collaborators and transports into a
// runnable checkout service.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/iliamunaev/checkout-pipeline/internal/checkout"
	"github.com/iliamunaev/checkout-pipeline/internal/config"
	promMetrics "github.com/iliamunaev/checkout-pipeline/internal/metrics/prometheus"
	"github.com/iliamunaev/checkout-pipeline/internal/middleware"
	"github.com/iliamunaev/checkout-pipeline/internal/service/charge"
	"github.com/iliamunaev/checkout-pipeline/internal/service/tokenizer"
	"github.com/iliamunaev/checkout-pipeline/internal/service/tracker"
	"github.com/iliamunaev/checkout-pipeline/internal/tracing"
	httptransport "github.com/iliamunaev/checkout-pipeline/internal/transport/http"
)

// App is a wired checkout service.
type App struct {
	Machine  *checkout.Machine
	Handler  http.Handler
	Registry *prometheus.Registry
	Tracker  *tracker.Tracker

	tp *sdktrace.TracerProvider
}

// New validates cfg and builds the service. tpOpts configure the trace
// provider, e.g. to attach a span exporter.
func New(cfg config.Config, logger *slog.Logger, tpOpts ...sdktrace.TracerProviderOption) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	mt := promMetrics.New(promMetrics.Config{Namespace: "checkout", Registry: reg})

	tp := sdktrace.NewTracerProvider(tpOpts...)
	tracer := tracing.NewOTelTracer(tracing.Config{ServiceName: "checkout", TracerProvider: tp})

	tr := &tracker.Tracker{}
	m := checkout.New(
		checkout.Product{Name: cfg.Product.Name, Price: cfg.Product.Price},
		tokenizer.New(tokenizer.Config{Delay: cfg.Tokenizer.Delay.Duration, Fail: cfg.Tokenizer.Fail}, tr),
		charge.New(charge.Config{Delay: cfg.Charge.Delay.Duration, Decline: cfg.Charge.Decline}, tr),
		checkout.WithLogger(logger),
		checkout.WithMetrics(mt),
		checkout.WithTracer(tracer),
	)

	mux := http.NewServeMux()
	httptransport.New(m, cfg.RequestTimeout.Duration).Register(mux)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return &App{
		Machine:  m,
		Handler:  middleware.Logging(logger, mux),
		Registry: reg,
		Tracker:  tr,
		tp:       tp,
	}, nil
}

// Close stops the machine and flushes pending spans.
func (a *App) Close(ctx context.Context) error {
	a.Machine.Close()
	if err := a.tp.Shutdown(ctx); err != nil {
		return fmt.Errorf("app: trace provider shutdown: %w", err)
	}
	return nil
}
