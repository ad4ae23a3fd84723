package telemetry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/neuronek/backend/internal/infrastructure/config"
	"github.com/neuronek/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestSetup_Disabled(t *testing.T) {
	p, err := telemetry.Setup(context.Background(), config.TelemetryConfig{ServiceName: "neuronek"}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, p.Tracer.IsEnabled())
	assert.False(t, p.Meter.IsEnabled())
	assert.False(t, p.Logs.IsEnabled())
	assert.False(t, p.Profiler.IsEnabled())

	base := zap.NewNop()
	assert.Same(t, base, p.Logs.Bridge(base))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProfiler_RequiresEndpoint(t *testing.T) {
	_, err := telemetry.NewProfiler(config.TelemetryConfig{ProfilingEnabled: true}, zap.NewNop())
	assert.Error(t, err)
}

func installRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func TestStartSpan_EndSpan(t *testing.T) {
	recorder := installRecorder(t)

	ctx, span := telemetry.StartSpan(context.Background(), "journal.log_ingestion",
		telemetry.AttrSubstance.String("caffeine"))
	assert.NotEmpty(t, telemetry.TraceID(ctx))
	telemetry.EndSpan(span, nil)

	_, failed := telemetry.StartSpan(context.Background(), "journal.update_stash")
	telemetry.EndSpan(failed, errors.New("stash not found"))

	ended := recorder.Ended()
	require.Len(t, ended, 2)

	assert.Equal(t, "journal.log_ingestion", ended[0].Name())
	assert.Equal(t, codes.Unset, ended[0].Status().Code)
	assert.Contains(t, ended[0].Attributes(), telemetry.AttrSubstance.String("caffeine"))

	assert.Equal(t, codes.Error, ended[1].Status().Code)
	assert.Equal(t, "stash not found", ended[1].Status().Description)
	require.Len(t, ended[1].Events(), 1)
}

func TestTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, telemetry.TraceID(context.Background()))
}

func TestInstrumentDB(t *testing.T) {
	recorder := installRecorder(t)
	reader, mp := newTestMeter(t)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = telemetry.InstrumentDB(db, telemetry.DBConfig{
		TraceEnabled:       true,
		SlowQueryThreshold: time.Nanosecond,
		DBSystem:           "sqlite",
	}, mp.Meter("db"), zap.NewNop())
	require.NoError(t, err)

	type probe struct {
		ID   uint
		Name string
	}
	require.NoError(t, db.AutoMigrate(&probe{}))
	require.NoError(t, db.Create(&probe{Name: "lsd"}).Error)
	var got probe
	require.NoError(t, db.First(&got).Error)

	metrics := collect(t, reader)

	total, ok := metrics["db_query_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	ops := map[string]int64{}
	for _, dp := range total.DataPoints {
		op, _ := dp.Attributes.Value(telemetry.AttrDBOperation)
		ops[op.AsString()] = dp.Value
	}
	assert.Equal(t, int64(1), ops["INSERT"])
	assert.Equal(t, int64(1), ops["SELECT"])

	_, ok = metrics["db_slow_query_total"]
	assert.True(t, ok)

	pool, ok := metrics["db_pool_connections_max"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, pool.DataPoints, 1)

	assert.NotEmpty(t, recorder.Ended())
}
