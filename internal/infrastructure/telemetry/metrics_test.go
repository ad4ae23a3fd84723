package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/neuronek/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zaptest"
)

func newTestMeter(t *testing.T) (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	return reader, mp
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
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

func TestNewMeterProvider_Disabled(t *testing.T) {
	mp, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{
		ServiceName: "neuronek-test",
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("test"))
	assert.NoError(t, mp.Shutdown(context.Background()))
}

func TestCounterAndHistogram(t *testing.T) {
	reader, mp := newTestMeter(t)
	meter := mp.Meter("test")
	ctx := context.Background()

	counter, err := telemetry.NewCounter(meter, "ingestions_logged", "Logged ingestions", "{ingestion}")
	require.NoError(t, err)
	counter.Inc(ctx, telemetry.AttrRoute.String("oral"))
	counter.Add(ctx, 2, telemetry.AttrRoute.String("oral"))

	hist, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:       "export_duration_seconds",
		Unit:       "s",
		Boundaries: telemetry.JobDurationBuckets,
	})
	require.NoError(t, err)
	hist.RecordDuration(ctx, 1500*time.Millisecond)

	metrics := collect(t, reader)

	sum, ok := metrics["ingestions_logged"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(3), sum.DataPoints[0].Value)

	h, ok := metrics["export_duration_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, h.DataPoints, 1)
	assert.Equal(t, uint64(1), h.DataPoints[0].Count)
	assert.Equal(t, telemetry.JobDurationBuckets, h.DataPoints[0].Bounds)
}

func TestGauge_Record(t *testing.T) {
	reader, mp := newTestMeter(t)
	gauge, err := telemetry.NewGauge(mp.Meter("test"), "active_stashes", "", "{stash}")
	require.NoError(t, err)

	gauge.Record(context.Background(), 4)
	gauge.Record(context.Background(), 7)

	g, ok := collect(t, reader)["active_stashes"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, g.DataPoints, 1)
	assert.Equal(t, int64(7), g.DataPoints[0].Value)
}
