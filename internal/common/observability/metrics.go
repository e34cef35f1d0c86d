// Package observability exposes OpenTelemetry prediction instruments through
// the Prometheus exporter.
package observability

import (
	"context"
	"fmt"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

type Observability struct {
	meterProvider      *metric.MeterProvider
	meter              otelmetric.Meter
	predictionCounter  otelmetric.Int64Counter
	predictionDuration otelmetric.Float64Histogram
}

// New registers the exporter with reg, or the default Prometheus registry when reg is nil.
func New(serviceName string, reg promclient.Registerer) (*Observability, error) {
	opts := []prometheus.Option{}
	if reg != nil {
		opts = append(opts, prometheus.WithRegisterer(reg))
	}
	exporter, err := prometheus.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	counter, err := meter.Int64Counter(
		"predictions.processed",
		otelmetric.WithDescription("Number of predictions processed"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"predictions.duration",
		otelmetric.WithDescription("Prediction processing duration"),
		otelmetric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &Observability{
		meterProvider:      provider,
		meter:              meter,
		predictionCounter:  counter,
		predictionDuration: duration,
	}, nil
}

// ObservePrediction records one outcome with a status of "success" or the error code.
func (o *Observability) ObservePrediction(ctx context.Context, tier, errorCode string, elapsed time.Duration) {
	status := "success"
	if errorCode != "" {
		status = errorCode
	}
	attrs := otelmetric.WithAttributes(
		attribute.String("status", status),
		attribute.String("tier", tier),
	)
	if o.predictionCounter != nil {
		o.predictionCounter.Add(ctx, 1, attrs)
	}
	if o.predictionDuration != nil {
		o.predictionDuration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
	}
}

func (o *Observability) Shutdown() {
	if o.meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = o.meterProvider.Shutdown(ctx)
	}
}
