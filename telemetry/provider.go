// Package telemetry wires speechkit into OpenTelemetry: an OTLP/HTTP tracer
// provider, W3C and X-Ray propagation, and server instrumentation for the
// HTTP endpoints the CLI exposes.
package telemetry

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/contrib/propagators/aws/xray"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.30.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	ScopeName    = "github.com/AltairaLabs/speechkit"
	ScopeVersion = "0.1.0"

	DefaultShutdownTimeout = 5 * time.Second
)

// ErrNoEndpoint is returned by NewTracerProvider for an empty endpoint.
var ErrNoEndpoint = errors.New("tracing endpoint is required")

// Tracer returns the speechkit tracer from tp, or from the global provider
// when tp is nil.
func Tracer(tp trace.TracerProvider) trace.Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer(ScopeName, trace.WithInstrumentationVersion(ScopeVersion))
}

// StdoutEndpoint selects the pretty-printing stdout exporter instead of OTLP.
const StdoutEndpoint = "stdout"

// Settings describe where spans go and how the service identifies itself.
type Settings struct {
	// Endpoint is a full OTLP/HTTP URL such as
	// http://collector:4318/v1/traces, or StdoutEndpoint.
	Endpoint       string
	Writer         io.Writer // stdout exporter destination, default os.Stderr
	ServiceName    string
	ServiceVersion string
	// SampleRatio in (0,1) samples that fraction of root spans; anything else
	// samples everything.
	SampleRatio float64
}

func (s Settings) sampler() sdktrace.Sampler {
	if s.SampleRatio > 0 && s.SampleRatio < 1 {
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(s.SampleRatio))
	}
	return sdktrace.ParentBased(sdktrace.AlwaysSample())
}

func (s Settings) exporter(ctx context.Context) (sdktrace.SpanExporter, error) {
	if s.Endpoint == StdoutEndpoint {
		w := s.Writer
		if w == nil {
			w = os.Stderr
		}
		return stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	}
	return otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(s.Endpoint))
}

// NewTracerProvider builds a batching provider exporting to s.Endpoint. The
// caller owns it and must Shutdown it.
func NewTracerProvider(ctx context.Context, s Settings) (*sdktrace.TracerProvider, error) {
	if s.Endpoint == "" {
		return nil, ErrNoEndpoint
	}
	exp, err := s.exporter(ctx)
	if err != nil {
		return nil, err
	}

	attrs := []attribute.KeyValue{semconv.ServiceName(s.ServiceName)}
	if s.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(s.ServiceVersion))
	}
	// schemaless so the merge never conflicts with the SDK's default schema
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(attrs...))
	if err != nil {
		return nil, err
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(s.sampler()),
	), nil
}

// Shutdown flushes and stops tp. Without a deadline on ctx the wait is
// capped at DefaultShutdownTimeout.
func Shutdown(ctx context.Context, tp *sdktrace.TracerProvider) error {
	if tp == nil {
		return nil
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultShutdownTimeout)
		defer cancel()
	}
	return tp.Shutdown(ctx)
}

// Propagator carries W3C trace context, W3C baggage and AWS X-Ray headers.
func Propagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
		xray.Propagator{},
	)
}

// SetupPropagation installs Propagator globally.
func SetupPropagation() {
	otel.SetTextMapPropagator(Propagator())
}

// InstrumentHandler wraps h so each request becomes a server span named
// operation. A nil tp uses the global provider.
func InstrumentHandler(h http.Handler, operation string, tp trace.TracerProvider) http.Handler {
	var opts []otelhttp.Option
	if tp != nil {
		opts = append(opts, otelhttp.WithTracerProvider(tp))
	}
	return otelhttp.NewHandler(h, operation, opts...)
}
