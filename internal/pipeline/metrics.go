package pipeline

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const pipelineInstrumentationName = "github.com/fyrsmithlabs/cvsearchd/internal/pipeline"

// Metrics holds pipeline-level metrics.
type Metrics struct {
	meter          metric.Meter
	logger         *zap.Logger
	searchDuration metric.Float64Histogram
	searchErrors   metric.Int64Counter
	cacheHits      metric.Int64Counter
	chunksIngested metric.Int64Counter
}

// NewMetrics creates a new Metrics instance for the pipeline.
func NewMetrics(logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Metrics{
		meter:  otel.Meter(pipelineInstrumentationName),
		logger: logger,
	}
	m.init()
	return m
}

func (m *Metrics) init() {
	var err error

	m.searchDuration, err = m.meter.Float64Histogram(
		"cvsearchd.search.duration_seconds",
		metric.WithDescription("End-to-end search duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		m.logger.Warn("failed to create search duration histogram", zap.Error(err))
	}

	m.searchErrors, err = m.meter.Int64Counter(
		"cvsearchd.search.errors_total",
		metric.WithDescription("Total failed searches"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		m.logger.Warn("failed to create search errors counter", zap.Error(err))
	}

	m.cacheHits, err = m.meter.Int64Counter(
		"cvsearchd.search.query_cache_hits_total",
		metric.WithDescription("Total query embeddings served from the cache"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		m.logger.Warn("failed to create cache hits counter", zap.Error(err))
	}

	m.chunksIngested, err = m.meter.Int64Counter(
		"cvsearchd.ingest.chunks_total",
		metric.WithDescription("Total chunks indexed across all documents"),
		metric.WithUnit("{chunk}"),
	)
	if err != nil {
		m.logger.Warn("failed to create ingested chunks counter", zap.Error(err))
	}
}

// RecordSearch records search metrics.
func (m *Metrics) RecordSearch(ctx context.Context, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	attrs := metric.WithAttributes(attribute.String("status", status))

	if m.searchDuration != nil {
		m.searchDuration.Record(ctx, duration.Seconds(), attrs)
	}
	if err != nil && m.searchErrors != nil {
		m.searchErrors.Add(ctx, 1)
	}
}

// RecordCacheHit counts a query embedding served from the cache.
func (m *Metrics) RecordCacheHit(ctx context.Context) {
	if m.cacheHits != nil {
		m.cacheHits.Add(ctx, 1)
	}
}

// RecordIngest counts chunks indexed during document ingestion.
func (m *Metrics) RecordIngest(ctx context.Context, chunks int) {
	if m.chunksIngested != nil {
		m.chunksIngested.Add(ctx, int64(chunks))
	}
}
