package telemetry

import (
	"context"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBConfig controls database instrumentation.
type DBConfig struct {
	TraceEnabled       bool
	LogFullSQL         bool          // include bind variables in spans; development only
	SlowQueryThreshold time.Duration // default 200ms
	DBSystem           string        // postgresql or sqlite
}

type dbStartKey struct{}

type dbInstrumentation struct {
	cfg       DBConfig
	logger    *zap.Logger
	total     *Counter
	duration  *Histogram
	slowTotal *Counter
}

// InstrumentDB registers otelgorm tracing (when enabled), query count and
// latency metrics, slow query logging and connection pool gauges on db.
func InstrumentDB(db *gorm.DB, cfg DBConfig, meter metric.Meter, logger *zap.Logger) error {
	if cfg.SlowQueryThreshold <= 0 {
		cfg.SlowQueryThreshold = 200 * time.Millisecond
	}

	if cfg.TraceEnabled {
		opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBSystem)}
		if !cfg.LogFullSQL {
			opts = append(opts, otelgorm.WithoutQueryVariables())
		}
		if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
			return err
		}
	}

	in := &dbInstrumentation{cfg: cfg, logger: logger}
	var err error
	if in.total, err = NewCounter(meter, "db_query_total", "Database queries by operation", "{query}"); err != nil {
		return err
	}
	in.duration, err = NewHistogram(meter, HistogramOpts{
		Name:        "db_query_duration_seconds",
		Description: "Database query latency",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	})
	if err != nil {
		return err
	}
	if in.slowTotal, err = NewCounter(meter, "db_slow_query_total", "Queries slower than the slow query threshold", "{query}"); err != nil {
		return err
	}

	cb := db.Callback()
	processors := []struct {
		op       string
		before   func(name string, fn func(*gorm.DB)) error
		after    func(name string, fn func(*gorm.DB)) error
		gormName string
	}{
		{"INSERT", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register, "create"},
		{"SELECT", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register, "query"},
		{"UPDATE", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register, "update"},
		{"DELETE", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register, "delete"},
		{"ROW", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register, "row"},
		{"RAW", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register, "raw"},
	}
	for _, p := range processors {
		if err := p.before("telemetry:before_"+p.gormName, markStart); err != nil {
			return err
		}
		if err := p.after("telemetry:after_"+p.gormName, in.observe(p.op)); err != nil {
			return err
		}
	}

	return registerPoolGauges(db, meter)
}

func markStart(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	db.Statement.Context = context.WithValue(ctx, dbStartKey{}, time.Now())
}

func (in *dbInstrumentation) observe(op string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		start, ok := ctx.Value(dbStartKey{}).(time.Time)
		if !ok {
			return
		}
		elapsed := time.Since(start)
		in.total.Inc(ctx, AttrDBOperation.String(op))
		in.duration.RecordDuration(ctx, elapsed, AttrDBOperation.String(op))

		if elapsed < in.cfg.SlowQueryThreshold {
			return
		}
		table := db.Statement.Table
		if table == "" {
			table = "unknown"
		}
		in.slowTotal.Inc(ctx, AttrDBTable.String(table))
		in.logger.Warn("slow query",
			zap.String("operation", op),
			zap.String("table", table),
			zap.Duration("elapsed", elapsed),
			zap.Int64("rows", db.RowsAffected),
		)
		if span := trace.SpanFromContext(ctx); span.IsRecording() {
			span.SetAttributes(AttrDBTable.String(table))
			span.AddEvent("slow_query")
			if db.Error != nil {
				span.SetStatus(codes.Error, db.Error.Error())
			}
		}
	}
}

// registerPoolGauges reports database/sql pool statistics on every metric collection.
func registerPoolGauges(db *gorm.DB, meter metric.Meter) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	conns, err := meter.Int64ObservableGauge("db_pool_connections",
		metric.WithDescription("Pool connections by state"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return err
	}
	maxConns, err := meter.Int64ObservableGauge("db_pool_connections_max",
		metric.WithDescription("Maximum open connections"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return err
	}
	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := sqlDB.Stats()
		o.ObserveInt64(maxConns, int64(stats.MaxOpenConnections))
		o.ObserveInt64(conns, int64(stats.Idle), metric.WithAttributes(AttrDBState.String("idle")))
		o.ObserveInt64(conns, int64(stats.InUse), metric.WithAttributes(AttrDBState.String("in_use")))
		o.ObserveInt64(conns, int64(stats.OpenConnections), metric.WithAttributes(AttrDBState.String("open")))
		return nil
	}, conns, maxConns)
	return err
}
