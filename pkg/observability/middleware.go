package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	metricsPath       = "/metrics"
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 2 * time.Second
)

type statusWriter struct {
	http.ResponseWriter

	statusCode int
}

func (sw *statusWriter) WriteHeader(code int) {
	if sw.statusCode == 0 {
		sw.statusCode = code
	}

	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(buf []byte) (int, error) {
	if sw.statusCode == 0 {
		sw.statusCode = http.StatusOK
	}

	n, err := sw.ResponseWriter.Write(buf)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}

	return n, nil
}

// HTTPMiddleware wraps next with a server span named "METHOD /path".
func HTTPMiddleware(tracer trace.Tracer, next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		ctx, span := tracer.Start(req.Context(), req.Method+" "+req.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPRequestMethodKey.String(req.Method),
				attribute.String("http.target", req.URL.Path),
			),
		)
		defer span.End()

		sw := &statusWriter{ResponseWriter: rw}
		next.ServeHTTP(sw, req.WithContext(ctx))

		span.SetAttributes(semconv.HTTPResponseStatusCode(sw.statusCode))

		if sw.statusCode >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(sw.statusCode))
		}
	})
}

// ErrPrometheusDisabled is returned when serving metrics without a handler.
var ErrPrometheusDisabled = errors.New("prometheus exporter is not enabled")

// MetricsServer serves the Prometheus handler on /metrics.
type MetricsServer struct {
	srv    *http.Server
	ln     net.Listener
	logger *slog.Logger
}

// StartMetricsServer listens on addr and serves p.MetricsHandler in the
// background until ctx is done or Close is called.
func StartMetricsServer(ctx context.Context, addr string, p Providers) (*MetricsServer, error) {
	if p.MetricsHandler == nil {
		return nil, ErrPrometheusDisabled
	}

	var lc net.ListenConfig

	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle(metricsPath, HTTPMiddleware(p.Tracer, p.MetricsHandler))

	ms := &MetricsServer{
		srv:    &http.Server{Handler: mux, ReadHeaderTimeout: readHeaderTimeout},
		ln:     ln,
		logger: p.Logger,
	}

	go func() {
		serveErr := ms.srv.Serve(ln)
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			ms.logger.Error("metrics server stopped", "error", serveErr)
		}
	}()

	go func() {
		<-ctx.Done()
		ms.Close()
	}()

	ms.logger.Info("serving metrics", "addr", ln.Addr().String(), "path", metricsPath)

	return ms, nil
}

// Addr returns the bound address.
func (ms *MetricsServer) Addr() string {
	return ms.ln.Addr().String()
}

// Close shuts the server down.
func (ms *MetricsServer) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	_ = ms.srv.Shutdown(ctx) //nolint:errcheck // best-effort shutdown.
}
