package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/FeruzyNtillah/my-e-commerce/config"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

// AppMetrics holds the instruments recorded by handlers and use cases.
type AppMetrics struct {
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestsErrors  metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram

	OrdersCreated    metric.Int64Counter
	RevenueTotal     metric.Float64Counter
	StockRejections  metric.Int64Counter
	PaymentsTotal    metric.Int64Counter
	ReviewsSubmitted metric.Int64Counter

	serviceName string
}

// Shutdown flushes and stops the meter provider.
type Shutdown func(context.Context) error

// InitMetrics builds the OTLP/HTTP meter provider. With no endpoint configured the
// instruments are no-ops.
func InitMetrics(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*AppMetrics, Shutdown, error) {
	if cfg.OTELExporterOTLPEndpoint == "" {
		logger.Info("Metrics: no OTLP endpoint configured, using no-op meter")
		m, err := NewAppMetrics(noop.NewMeterProvider().Meter(cfg.OTELServiceName), cfg.OTELServiceName)
		return m, func(context.Context) error { return nil }, err
	}

	envRes, err := resource.New(ctx, resource.WithFromEnv())
	if err != nil {
		envRes = resource.Empty()
	}
	explicitRes, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.OTELServiceName),
		semconv.ServiceVersion(cfg.OTELServiceVersion),
		attribute.String("deployment.environment", cfg.AppEnv),
	))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create resource: %w", err)
	}
	res, err := resource.Merge(envRes, explicitRes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to merge resources: %w", err)
	}

	exporterOpts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(cfg.OTELExporterOTLPEndpoint),
		otlpmetrichttp.WithURLPath("/v1/metrics"),
	}
	if cfg.OTELExporterOTLPInsecure {
		exporterOpts = append(exporterOpts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, exporterOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))),
	)
	otel.SetMeterProvider(provider)
	logger.Infof("Metrics: exporting every 10s to %s/v1/metrics", cfg.OTELExporterOTLPEndpoint)

	m, err := NewAppMetrics(provider.Meter(cfg.OTELServiceName), cfg.OTELServiceName)
	if err != nil {
		_ = provider.Shutdown(ctx)
		return nil, nil, err
	}
	return m, provider.Shutdown, nil
}

// NewAppMetrics creates every instrument on meter.
func NewAppMetrics(meter metric.Meter, serviceName string) (*AppMetrics, error) {
	buckets := []float64{2, 4, 6, 8, 10, 50, 100, 200, 400, 800, 1000, 1400, 2000, 5000, 10000, 30000}
	m := &AppMetrics{serviceName: serviceName}
	var err error

	if m.HTTPRequestsTotal, err = meter.Int64Counter("http.server.request.count",
		metric.WithDescription("Total number of HTTP requests"), metric.WithUnit("1")); err != nil {
		return nil, fmt.Errorf("failed to create http requests counter: %w", err)
	}
	if m.HTTPRequestsErrors, err = meter.Int64Counter("http.server.request.error.count",
		metric.WithDescription("Total number of HTTP error requests"), metric.WithUnit("1")); err != nil {
		return nil, fmt.Errorf("failed to create http errors counter: %w", err)
	}
	if m.HTTPRequestDuration, err = meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"), metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(buckets...)); err != nil {
		return nil, fmt.Errorf("failed to create http duration histogram: %w", err)
	}
	if m.OrdersCreated, err = meter.Int64Counter("orders_created_total",
		metric.WithDescription("Total number of orders created"), metric.WithUnit("1")); err != nil {
		return nil, fmt.Errorf("failed to create orders counter: %w", err)
	}
	if m.RevenueTotal, err = meter.Float64Counter("revenue_total",
		metric.WithDescription("Total order value placed"), metric.WithUnit("TZS")); err != nil {
		return nil, fmt.Errorf("failed to create revenue counter: %w", err)
	}
	if m.StockRejections, err = meter.Int64Counter("stock_rejections_total",
		metric.WithDescription("Order lines rejected for missing product or stock"), metric.WithUnit("1")); err != nil {
		return nil, fmt.Errorf("failed to create stock rejections counter: %w", err)
	}
	if m.PaymentsTotal, err = meter.Int64Counter("payments_total",
		metric.WithDescription("Mobile payment attempts by provider and outcome"), metric.WithUnit("1")); err != nil {
		return nil, fmt.Errorf("failed to create payments counter: %w", err)
	}
	if m.ReviewsSubmitted, err = meter.Int64Counter("reviews_submitted_total",
		metric.WithDescription("Total number of product reviews submitted"), metric.WithUnit("1")); err != nil {
		return nil, fmt.Errorf("failed to create reviews counter: %w", err)
	}
	return m, nil
}

// Noop returns instruments that record nothing. Used by tests and tools.
func Noop() *AppMetrics {
	m, _ := NewAppMetrics(noop.NewMeterProvider().Meter("noop"), "noop")
	return m
}

// WithServiceName adds service.name to attributes.
func (m *AppMetrics) WithServiceName(attrs []attribute.KeyValue) []attribute.KeyValue {
	return append(attrs, attribute.String("service.name", m.serviceName))
}

func (m *AppMetrics) RecordOrder(ctx context.Context, method string, total float64) {
	attrs := metric.WithAttributes(m.WithServiceName([]attribute.KeyValue{
		attribute.String("payment_method", method),
	})...)
	m.OrdersCreated.Add(ctx, 1, attrs)
	m.RevenueTotal.Add(ctx, total, attrs)
}

func (m *AppMetrics) RecordStockRejection(ctx context.Context, reason string) {
	m.StockRejections.Add(ctx, 1, metric.WithAttributes(m.WithServiceName([]attribute.KeyValue{
		attribute.String("reason", reason),
	})...))
}

func (m *AppMetrics) RecordPayment(ctx context.Context, provider, outcome string) {
	m.PaymentsTotal.Add(ctx, 1, metric.WithAttributes(m.WithServiceName([]attribute.KeyValue{
		attribute.String("provider", provider),
		attribute.String("outcome", outcome),
	})...))
}

func (m *AppMetrics) RecordReview(ctx context.Context, rating int) {
	m.ReviewsSubmitted.Add(ctx, 1, metric.WithAttributes(m.WithServiceName([]attribute.KeyValue{
		attribute.Int("rating", rating),
	})...))
}

// RecordHTTPRequest records one served request.
func (m *AppMetrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, elapsed time.Duration) {
	attrs := metric.WithAttributes(m.WithServiceName([]attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
	})...)
	m.HTTPRequestsTotal.Add(ctx, 1, attrs)
	if status >= 400 {
		m.HTTPRequestsErrors.Add(ctx, 1, attrs)
	}
	m.HTTPRequestDuration.Record(ctx, float64(elapsed.Milliseconds()), attrs)
}
