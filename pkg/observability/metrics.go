package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricExtractionsTotal   = "rubyhl.extractions.total"
	metricExtractionDuration = "rubyhl.extraction.duration.seconds"
	metricOccurrencesTotal   = "rubyhl.occurrences.total"
	metricWarningsTotal      = "rubyhl.warnings.total"
	metricInflight           = "rubyhl.inflight.requests"

	attrBackend = "backend"
	attrStatus  = "status"
	attrOp      = "op"

	// StatusOK marks a successful extraction.
	StatusOK = "ok"
	// StatusError marks an extraction whose tree source failed.
	StatusError = "error"
)

// durationBuckets spans in-process tree-sitter parses (sub-millisecond) up to
// slow ruby subprocess starts.
var durationBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// Extraction describes one finished extraction.
type Extraction struct {
	Backend     string
	Status      string
	Duration    time.Duration
	Occurrences int
	Warnings    int
}

// ExtractionMetrics holds the instruments recorded per extraction.
type ExtractionMetrics struct {
	extractions metric.Int64Counter
	duration    metric.Float64Histogram
	occurrences metric.Int64Counter
	warnings    metric.Int64Counter
	inflight    metric.Int64UpDownCounter
}

// NewExtractionMetrics creates the instruments from mt.
func NewExtractionMetrics(mt metric.Meter) (*ExtractionMetrics, error) {
	extractions, err := mt.Int64Counter(metricExtractionsTotal,
		metric.WithDescription("Total number of extractions"),
		metric.WithUnit("{extraction}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricExtractionsTotal, err)
	}

	duration, err := mt.Float64Histogram(metricExtractionDuration,
		metric.WithDescription("Parse plus extraction time in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricExtractionDuration, err)
	}

	occurrences, err := mt.Int64Counter(metricOccurrencesTotal,
		metric.WithDescription("Local variable occurrences reported"),
		metric.WithUnit("{occurrence}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricOccurrencesTotal, err)
	}

	warnings, err := mt.Int64Counter(metricWarningsTotal,
		metric.WithDescription("Unsupported AST diagnostics emitted"),
		metric.WithUnit("{warning}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricWarningsTotal, err)
	}

	inflight, err := mt.Int64UpDownCounter(metricInflight,
		metric.WithDescription("Requests being served by the LSP or MCP server"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricInflight, err)
	}

	return &ExtractionMetrics{
		extractions: extractions,
		duration:    duration,
		occurrences: occurrences,
		warnings:    warnings,
		inflight:    inflight,
	}, nil
}

// Record records one finished extraction. A nil receiver is a no-op.
func (em *ExtractionMetrics) Record(ctx context.Context, ex Extraction) {
	if em == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrBackend, ex.Backend),
		attribute.String(attrStatus, ex.Status),
	)

	em.extractions.Add(ctx, 1, attrs)
	em.duration.Record(ctx, ex.Duration.Seconds(), attrs)

	backend := metric.WithAttributes(attribute.String(attrBackend, ex.Backend))

	if ex.Occurrences > 0 {
		em.occurrences.Add(ctx, int64(ex.Occurrences), backend)
	}

	if ex.Warnings > 0 {
		em.warnings.Add(ctx, int64(ex.Warnings), backend)
	}
}

// TrackInflight increments the in-flight gauge for op and returns the
// matching decrement. A nil receiver returns a no-op.
func (em *ExtractionMetrics) TrackInflight(ctx context.Context, op string) func() {
	if em == nil {
		return func() {}
	}

	attrs := metric.WithAttributes(attribute.String(attrOp, op))
	em.inflight.Add(ctx, 1, attrs)

	return func() {
		em.inflight.Add(ctx, -1, attrs)
	}
}
