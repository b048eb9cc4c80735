package source

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/rubyhl/pkg/cache"
	"github.com/Sumatoshi-tech/rubyhl/pkg/lvar"
	"github.com/Sumatoshi-tech/rubyhl/pkg/observability"
	"github.com/Sumatoshi-tech/rubyhl/pkg/safeconv"
	"github.com/Sumatoshi-tech/rubyhl/pkg/textutil"
)

// Result is the outcome of one extraction. Columns are parser columns
// (0-based); callers rebase at their output boundary.
type Result struct {
	Backend     string
	Occurrences []lvar.Occurrence
	Warnings    []string
	Lines       int
	Duration    time.Duration
}

// Service runs a Provider and the extractor with tracing and metrics.
// It is safe for concurrent use.
type Service struct {
	provider     Provider
	tracer       trace.Tracer
	metrics      *observability.ExtractionMetrics
	logger       *slog.Logger
	cache        *cache.LRU
	maxFileSize  int64
	followCallee bool
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithTracer sets the tracer used for extraction spans.
func WithTracer(tracer trace.Tracer) ServiceOption {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithMetrics records every extraction into m.
func WithMetrics(m *observability.ExtractionMetrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMaxFileSize rejects sources larger than n bytes. Zero disables the limit.
func WithMaxFileSize(n int64) ServiceOption {
	return func(s *Service) { s.maxFileSize = n }
}

// WithCache reuses results for sources seen before.
func WithCache(c *cache.LRU) ServiceOption {
	return func(s *Service) { s.cache = c }
}

// WithCalleeRecursion is passed through to the extractor.
func WithCalleeRecursion(enabled bool) ServiceOption {
	return func(s *Service) { s.followCallee = enabled }
}

// NewService creates a Service over provider.
func NewService(provider Provider, opts ...ServiceOption) *Service {
	s := &Service{
		provider: provider,
		tracer:   nooptrace.NewTracerProvider().Tracer("rubyhl"),
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Backend names the tree source in use.
func (s *Service) Backend() string { return s.provider.Name() }

// Extract parses src and returns its local variable occurrences together with
// the extractor's diagnostics.
func (s *Service) Extract(ctx context.Context, src []byte) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "rubyhl.extract", trace.WithAttributes(
		attribute.String("backend", s.provider.Name()),
		attribute.Int("bytes", len(src)),
	))
	defer span.End()

	start := time.Now()
	res := Result{Backend: s.provider.Name()}

	if s.maxFileSize > 0 && int64(len(src)) > s.maxFileSize {
		err := fmt.Errorf("%w: %s > %s", ErrTooLarge,
			humanize.IBytes(safeconv.MustUint64(len(src))), humanize.IBytes(safeconv.MustUint64(s.maxFileSize)))

		return res, s.fail(ctx, span, res, start, err)
	}

	if textutil.IsBinary(src) {
		return res, s.fail(ctx, span, res, start, ErrBinary)
	}

	res.Lines = textutil.CountLines(src)

	key := cache.KeyOf(res.Backend, src)
	if entry, ok := s.cache.Get(key); ok {
		res.Occurrences = entry.Occurrences
		res.Warnings = entry.Warnings

		span.SetAttributes(attribute.Bool("cached", true))

		return s.done(ctx, span, res, start, len(src)), nil
	}

	tree, err := s.provider.Tree(ctx, src)
	if err != nil {
		return res, s.fail(ctx, span, res, start, err)
	}

	collector := &lvar.Collector{}
	extractor := lvar.New(lvar.WithWarner(collector), lvar.WithCalleeRecursion(s.followCallee))

	res.Occurrences = extractor.Extract(tree)
	res.Warnings = collector.Messages()

	s.cache.Put(key, int64(len(src)), cache.Entry{
		Occurrences: res.Occurrences,
		Warnings:    res.Warnings,
		Lines:       res.Lines,
	})

	return s.done(ctx, span, res, start, len(src)), nil
}

// done finishes a successful extraction: span attributes, metrics and the debug log.
func (s *Service) done(ctx context.Context, span trace.Span, res Result, start time.Time, size int) Result {
	res.Duration = time.Since(start)

	span.SetAttributes(
		attribute.Int("occurrences", len(res.Occurrences)),
		attribute.Int("warnings", len(res.Warnings)),
	)

	s.metrics.Record(ctx, observability.Extraction{
		Backend:     res.Backend,
		Status:      observability.StatusOK,
		Duration:    res.Duration,
		Occurrences: len(res.Occurrences),
		Warnings:    len(res.Warnings),
	})

	s.logger.DebugContext(ctx, "extracted",
		"backend", res.Backend,
		"size", humanize.IBytes(safeconv.MustUint64(size)),
		"lines", res.Lines,
		"occurrences", len(res.Occurrences),
		"warnings", len(res.Warnings),
		"elapsed", res.Duration)

	return res
}

func (s *Service) fail(ctx context.Context, span trace.Span, res Result, start time.Time, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	s.metrics.Record(ctx, observability.Extraction{
		Backend:  res.Backend,
		Status:   observability.StatusError,
		Duration: time.Since(start),
	})

	return err
}
