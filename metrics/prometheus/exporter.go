package prometheus

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/AltairaLabs/speechkit/logger"
	"github.com/AltairaLabs/speechkit/telemetry"
)

const defaultReadHeaderTimeout = 10 * time.Second

// Exporter serves /metrics and a /health endpoint.
type Exporter struct {
	addr     string
	registry *prometheus.Registry
	tp       trace.TracerProvider

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	stopped  bool
}

// NewExporter creates an exporter with the speechkit collectors and the Go
// runtime and process collectors registered.
func NewExporter(addr string) *Exporter {
	reg := prometheus.NewRegistry()
	reg.MustRegister(allMetrics...)
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewExporterWithRegistry(addr, reg)
}

// NewExporterWithRegistry creates an exporter over a caller-owned registry.
func NewExporterWithRegistry(addr string, registry *prometheus.Registry) *Exporter {
	return &Exporter{addr: addr, registry: registry}
}

// WithTracerProvider traces exporter requests on tp.
func (e *Exporter) WithTracerProvider(tp trace.TracerProvider) *Exporter {
	e.tp = tp
	return e
}

// Registry returns the underlying registry.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// MustRegister adds collectors to the registry. It panics on conflicts.
func (e *Exporter) MustRegister(cs ...prometheus.Collector) {
	e.registry.MustRegister(cs...)
}

// Handler returns the exporter routes.
func (e *Exporter) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return telemetry.InstrumentHandler(mux, "metrics-exporter", e.tp)
}

// Listen binds the configured address. Calling it again is a no-op.
func (e *Exporter) Listen() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return http.ErrServerClosed
	}
	if e.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", e.addr)
	if err != nil {
		return err
	}
	e.listener = ln
	e.server = &http.Server{
		Handler:           e.Handler(),
		ReadHeaderTimeout: defaultReadHeaderTimeout,
	}
	return nil
}

// Addr returns the bound address, or the configured one before Listen.
func (e *Exporter) Addr() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listener != nil {
		return e.listener.Addr().String()
	}
	return e.addr
}

// Start listens if needed and serves until Shutdown. It returns
// http.ErrServerClosed after a graceful shutdown, including one that came
// before Start.
func (e *Exporter) Start() error {
	if err := e.Listen(); err != nil {
		return err
	}

	e.mu.Lock()
	srv, ln := e.server, e.listener
	e.mu.Unlock()
	if srv == nil {
		return http.ErrServerClosed
	}

	logger.Info("metrics exporter listening", "addr", ln.Addr().String())
	return srv.Serve(ln)
}

// Shutdown gracefully stops the exporter.
func (e *Exporter) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopped = true
	if e.server == nil {
		return nil
	}
	err := e.server.Shutdown(ctx)
	_ = e.listener.Close() // not yet served
	e.server, e.listener = nil, nil
	return err
}
