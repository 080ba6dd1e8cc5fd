package observability

import (
	"context"
	"time"

	"comps-workers/internal/common/logger"
	"comps-workers/internal/comps"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Observability owns the OpenTelemetry meter provider. Instruments are
// exported through the default Prometheus registry, so they show up on
// /metrics next to the promauto collectors.
type Observability struct {
	meterProvider  *metric.MeterProvider
	meter          otelmetric.Meter
	jobCounter     otelmetric.Int64Counter
	jobDuration    otelmetric.Float64Histogram
	searchCounter  otelmetric.Int64Counter
	searchListings otelmetric.Int64Histogram
}

func New(serviceName string, log logger.Logger) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Error("failed to create prometheus exporter", map[string]interface{}{"error": err.Error()})
		return &Observability{}
	}
	return newWithReader(serviceName, exporter)
}

func newWithReader(serviceName string, reader metric.Reader) *Observability {
	provider := metric.NewMeterProvider(metric.WithReader(reader))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	jobCounter, _ := meter.Int64Counter(
		"jobs.processed",
		otelmetric.WithDescription("Number of jobs processed"),
	)

	jobDuration, _ := meter.Float64Histogram(
		"jobs.duration",
		otelmetric.WithDescription("Job processing duration"),
		otelmetric.WithUnit("ms"),
	)

	searchCounter, _ := meter.Int64Counter(
		"comps.searches",
		otelmetric.WithDescription("Comparable searches by final strategy"),
	)

	searchListings, _ := meter.Int64Histogram(
		"comps.search.listings",
		otelmetric.WithDescription("Listings returned per search"),
	)

	return &Observability{
		meterProvider:  provider,
		meter:          meter,
		jobCounter:     jobCounter,
		jobDuration:    jobDuration,
		searchCounter:  searchCounter,
		searchListings: searchListings,
	}
}

func (o *Observability) RecordJobProcessed(ctx context.Context, taskType string) {
	if o.jobCounter != nil {
		o.jobCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("taskType", taskType),
		))
	}
}

func (o *Observability) RecordJobDuration(ctx context.Context, duration time.Duration, taskType string) {
	if o.jobDuration != nil {
		o.jobDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("taskType", taskType),
		))
	}
}

// Name and Record let Observability sit in the search service sink list.
func (o *Observability) Name() string { return "otel" }

func (o *Observability) Record(ctx context.Context, result *comps.SearchResult) error {
	attrs := otelmetric.WithAttributes(attribute.String("searchStrategy", result.SearchStrategy))
	if o.searchCounter != nil {
		o.searchCounter.Add(ctx, 1, attrs)
	}
	if o.searchListings != nil {
		o.searchListings.Record(ctx, int64(len(result.Listings)), attrs)
	}
	return nil
}

func (o *Observability) Shutdown() {
	if o.meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = o.meterProvider.Shutdown(ctx)
	}
}
