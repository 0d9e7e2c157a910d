package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader sdkmetric.Reader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestRecordOrderAndRequests(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewAppMetrics(provider.Meter("test"), "storefront")
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordOrder(ctx, "Mobile Money", 110.5)
	m.RecordOrder(ctx, "Mobile Money", 20)
	m.RecordHTTPRequest(ctx, "POST", "/api/orders", 400, 5*time.Millisecond)

	got := collect(t, reader)

	orders, ok := got["orders_created_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, orders.DataPoints, 1)
	assert.Equal(t, int64(2), orders.DataPoints[0].Value)

	revenue, ok := got["revenue_total"].Data.(metricdata.Sum[float64])
	require.True(t, ok)
	assert.InDelta(t, 130.5, revenue.DataPoints[0].Value, 1e-9)

	errs, ok := got["http.server.request.error.count"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Equal(t, int64(1), errs.DataPoints[0].Value)
}

func TestNoopRecordsWithoutPanicking(t *testing.T) {
	m := Noop()
	ctx := context.Background()
	m.RecordOrder(ctx, "PayPal", 1)
	m.RecordStockRejection(ctx, "insufficient")
	m.RecordPayment(ctx, "mpesa", "success")
	m.RecordReview(ctx, 5)
	m.RecordHTTPRequest(ctx, "GET", "/api/health", 200, time.Millisecond)
}
