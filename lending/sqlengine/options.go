package sqlengine

import (
	"time"

	"libcirc/lending"
)

// Option defines a functional option for configuring an Engine.
type Option func(*Engine) error

// WithDialect sets the SQL dialect the engine generates.
func WithDialect(dialect Dialect) Option {
	return func(e *Engine) error {
		switch dialect {
		case DialectPostgres, DialectSQLite:
			e.dialect = dialect
			return nil
		default:
			return ErrUnknownDialect
		}
	}
}

// WithTableNames sets the books and loans table names for the Engine.
func WithTableNames(tables TableNames) Option {
	return func(e *Engine) error {
		if tables.Books == "" || tables.Loans == "" {
			return ErrEmptyTableName
		}

		e.tables = tables

		return nil
	}
}

// WithClock sets the time source used to derive "today" for fine arithmetic
// and date validation. Tests use this to pin the calendar.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) error {
		e.clock = clock
		return nil
	}
}

// WithLogger sets the logger for the Engine.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL statements with execution timing (development use)
// Info level: Completed transitions, fines assessed, conflicts (production-safe)
// Warn level: Non-critical issues like cleanup failures
// Error level: Critical failures that cause operation failures.
func WithLogger(logger lending.Logger) Option {
	return func(e *Engine) error {
		e.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Engine.
// The contextual logger will receive log messages with context information
// including automatic trace/span correlation when tracing is enabled.
func WithContextualLogger(logger lending.ContextualLogger) Option {
	return func(e *Engine) error {
		e.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Engine.
// The collector will receive transition durations, conflict counts,
// fines assessed, and database error counts.
func WithMetrics(collector lending.MetricsCollector) Option {
	return func(e *Engine) error {
		e.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Engine.
// The collector will receive span creation for issue/return/query operations,
// context propagation, and error tracking.
func WithTracing(collector lending.TracingCollector) Option {
	return func(e *Engine) error {
		e.tracingCollector = collector
		return nil
	}
}
