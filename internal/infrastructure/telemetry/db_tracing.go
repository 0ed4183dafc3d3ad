// Package telemetry provides OpenTelemetry integration for distributed tracing.
package telemetry

import (
	"context"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled          bool          // Enable database tracing
	LogFullSQL       bool          // Include full SQL statements in spans (dev only, security risk in prod)
	SlowQueryThresh  time.Duration // Threshold for marking queries as slow (default: 200ms)
	DBSystem         string        // Database system name (default: "postgresql")
	WithoutVariables bool          // Exclude query variables from SQL statement (for security)
}

// DefaultDBTracingConfig returns the secure defaults: tracing off, no SQL
// text in spans, variables stripped.
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		Enabled:          false,
		LogFullSQL:       false,
		SlowQueryThresh:  200 * time.Millisecond,
		DBSystem:         "postgresql",
		WithoutVariables: true,
	}
}

// DBTracingPlugin wraps the otelgorm plugin and adds slow query detection
// on top of the spans otelgorm creates.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates a new database tracing plugin.
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	return &DBTracingPlugin{
		config: cfg,
		logger: logger,
	}
}

// RegisterOtelGorm registers otelgorm plus the timing callbacks on the
// given GORM instance. Registering twice on the same instance fails with
// a duplicate callback error.
func (p *DBTracingPlugin) RegisterOtelGorm(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	opts := []otelgorm.Option{
		otelgorm.WithDBName(p.config.DBSystem),
	}
	if !p.config.LogFullSQL {
		// Keep query parameters (guest names, amounts) out of spans
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}

	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	before := func(db *gorm.DB) {
		if db.Statement.Context != nil {
			db.Statement.Context = context.WithValue(db.Statement.Context, queryStartTimeKey, time.Now())
		}
	}
	after := func(db *gorm.DB) {
		p.slowQueryCallback(db)
	}
	if err := registerTimingCallbacks(db, "otel_timing", before, "otel_slow_query", after); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
		zap.String("db_system", p.config.DBSystem),
	)

	return nil
}

// slowQueryCallback runs after each operation and annotates the active
// span with row counts, table name, errors and slow query markers.
func (p *DBTracingPlugin) slowQueryCallback(db *gorm.DB) {
	if db.Statement.Context == nil {
		return
	}
	annotateQuerySpan(db, p.config.SlowQueryThresh)
}

// registerTimingCallbacks installs a before callback (start time capture)
// and an after callback (span annotation) for every GORM operation type.
func registerTimingCallbacks(db *gorm.DB, beforePrefix string, before func(*gorm.DB), afterPrefix string, after func(*gorm.DB)) error {
	cb := db.Callback()
	for _, err := range []error{
		cb.Create().Before("gorm:create").Register(beforePrefix+":before_create", before),
		cb.Query().Before("gorm:query").Register(beforePrefix+":before_query", before),
		cb.Update().Before("gorm:update").Register(beforePrefix+":before_update", before),
		cb.Delete().Before("gorm:delete").Register(beforePrefix+":before_delete", before),
		cb.Row().Before("gorm:row").Register(beforePrefix+":before_row", before),
		cb.Raw().Before("gorm:raw").Register(beforePrefix+":before_raw", before),
		cb.Create().After("gorm:create").Register(afterPrefix+":after_create", after),
		cb.Query().After("gorm:query").Register(afterPrefix+":after_query", after),
		cb.Update().After("gorm:update").Register(afterPrefix+":after_update", after),
		cb.Delete().After("gorm:delete").Register(afterPrefix+":after_delete", after),
		cb.Row().After("gorm:row").Register(afterPrefix+":after_row", after),
		cb.Raw().After("gorm:raw").Register(afterPrefix+":after_raw", after),
	} {
		if err != nil {
			return err
		}
	}
	return nil
}

// annotateQuerySpan adds query attributes to the span in the statement
// context. ErrRecordNotFound is expected lookup behavior and is not
// treated as a span error.
func annotateQuerySpan(db *gorm.DB, slowThresh time.Duration) {
	ctx := db.Statement.Context
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}

	if db.Statement.RowsAffected >= 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	}
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}

	if db.Error != nil && db.Error != gorm.ErrRecordNotFound {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	if startTime, ok := ctx.Value(queryStartTimeKey).(time.Time); ok {
		elapsed := time.Since(startTime)
		if elapsed > slowThresh {
			span.SetAttributes(attribute.Bool("db.slow_query", true))
			span.SetAttributes(attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()))
			span.AddEvent("slow_query_warning", trace.WithAttributes(
				attribute.Int64("duration_ms", elapsed.Milliseconds()),
				attribute.Int64("threshold_ms", slowThresh.Milliseconds()),
			))
		}
	}
}

// queryStartTimeKey is the context key for storing query start time.
type contextKey string

const queryStartTimeKey contextKey = "otel_query_start_time"

// WithQueryStartTime returns a context with the query start time set.
// The after callbacks use it to compute elapsed time.
func WithQueryStartTime(ctx context.Context) context.Context {
	return context.WithValue(ctx, queryStartTimeKey, time.Now())
}

// DBTracingCallback is a standalone variant of the timing callbacks for
// callers that want slow query annotation without the otelgorm plugin.
type DBTracingCallback struct {
	slowQueryThresh time.Duration
}

// NewDBTracingCallback creates a new callback for tracking query timing.
func NewDBTracingCallback(slowQueryThresh time.Duration) *DBTracingCallback {
	return &DBTracingCallback{
		slowQueryThresh: slowQueryThresh,
	}
}

// BeforeCallback sets the query start time in context.
func (c *DBTracingCallback) BeforeCallback(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartTimeKey, time.Now())
	}
}

// AfterCallback annotates the span with query attributes and slow query
// markers.
func (c *DBTracingCallback) AfterCallback(db *gorm.DB) {
	if db.Statement.Context == nil {
		return
	}
	annotateQuerySpan(db, c.slowQueryThresh)
}

// RegisterCallbacks registers the before and after callbacks on the GORM
// DB instance.
func (c *DBTracingCallback) RegisterCallbacks(db *gorm.DB) error {
	return registerTimingCallbacks(db, "query_timing", c.BeforeCallback, "query_timing", c.AfterCallback)
}
