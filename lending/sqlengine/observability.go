package sqlengine

import (
	"context"
	"math"
	"time"

	"libcirc/lending"
)

const (
	logMsgSQLExecuted         = "executed sql for: "
	logMsgOperation           = "circulation operation: "
	logMsgBuildQueryFailed    = "failed to build sql statement"
	logMsgDBQueryFailed       = "database query execution failed"
	logMsgDBExecFailed        = "database execution failed"
	logMsgBeginTxFailed       = "failed to begin transaction"
	logMsgCommitFailed        = "failed to commit transaction"
	logMsgCloseRowsFailed     = "failed to close database rows"
	logMsgScanRowFailed       = "failed to scan database row"
	logMsgRowsAffectedFailed  = "failed to get rows affected count"
	logMsgStatusConflict      = "book status conflict detected"
	logMsgLoanInvariantBroken = "open loan exists for a book not marked issued"

	logAttrError        = "error"
	logAttrQuery        = "query"
	logAttrDurationMS   = "duration_ms"
	logAttrBookID       = "book_id"
	logAttrLoanID       = "loan_id"
	logAttrMemberID     = "member_id"
	logAttrFine         = "fine"
	logAttrRowsAffected = "rows_affected"

	logActionIssue  = "issue"
	logActionReturn = "return"
	logActionQuery  = "query"
	logActionSchema = "schema"
)

const (
	metricTransitionDuration = "circulation_transition_duration_seconds"
	metricStatusConflicts    = "circulation_status_conflicts_total"
	metricDatabaseErrors     = "circulation_database_errors_total"
	metricFinesAssessed      = "circulation_fines_assessed_units"

	spanNameIssue  = "circulation.issue_book"
	spanNameReturn = "circulation.return_book"

	spanAttrOperation = "operation"
	spanAttrErrorType = "error_type"
	spanAttrBookID    = "book_id"
	spanAttrStatus    = "status"

	statusSuccess  = "success"
	statusError    = "error"
	statusConflict = "conflict"

	errorTypeBuildQuery   = "build_query"
	errorTypeQuery        = "query"
	errorTypeExec         = "exec"
	errorTypeBeginTx      = "begin_tx"
	errorTypeCommit       = "commit"
	errorTypeScan         = "scan"
	errorTypeRowsAffected = "rows_affected"
)

// logStatementWithDuration logs SQL statements with execution time at debug level.
func (e *Engine) logStatementWithDuration(ctx context.Context, action, sqlStatement string, duration time.Duration) {
	if e.contextualLogger != nil {
		e.contextualLogger.DebugContext(ctx, logMsgSQLExecuted+action,
			logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlStatement)
		return
	}

	if e.logger != nil {
		e.logger.Debug(logMsgSQLExecuted+action,
			logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlStatement)
	}
}

// logOperation logs operational information at info level.
func (e *Engine) logOperation(ctx context.Context, action string, args ...any) {
	if e.contextualLogger != nil {
		e.contextualLogger.InfoContext(ctx, logMsgOperation+action, args...)
		return
	}

	if e.logger != nil {
		e.logger.Info(logMsgOperation+action, args...)
	}
}

// logWarning logs non-critical issues at warn level.
func (e *Engine) logWarning(ctx context.Context, message string, args ...any) {
	if e.contextualLogger != nil {
		e.contextualLogger.WarnContext(ctx, message, args...)
		return
	}

	if e.logger != nil {
		e.logger.Warn(message, args...)
	}
}

// logError logs error information at error level.
func (e *Engine) logError(ctx context.Context, message string, err error, args ...any) {
	allArgs := append([]any{logAttrError, err.Error()}, args...)

	if e.contextualLogger != nil {
		e.contextualLogger.ErrorContext(ctx, message, allArgs...)
		return
	}

	if e.logger != nil {
		e.logger.Error(message, allArgs...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

// recordDurationMetrics records transition duration if a collector is configured.
func (e *Engine) recordDurationMetrics(ctx context.Context, operation, status string, duration time.Duration) {
	if e.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: operation,
		spanAttrStatus:    status,
	}

	if contextual, ok := e.metricsCollector.(lending.ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(ctx, metricTransitionDuration, duration, labels)
		return
	}

	e.metricsCollector.RecordDuration(metricTransitionDuration, duration, labels)
}

// recordErrorMetrics records a database error count if a collector is configured.
func (e *Engine) recordErrorMetrics(ctx context.Context, operation, errorType string) {
	if e.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: operation,
		spanAttrStatus:    statusError,
		spanAttrErrorType: errorType,
	}

	if contextual, ok := e.metricsCollector.(lending.ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, metricDatabaseErrors, labels)
		return
	}

	e.metricsCollector.IncrementCounter(metricDatabaseErrors, labels)
}

// recordConflictMetrics records a status conflict count if a collector is configured.
func (e *Engine) recordConflictMetrics(ctx context.Context, operation string) {
	if e.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: operation,
		spanAttrStatus:    statusConflict,
	}

	if contextual, ok := e.metricsCollector.(lending.ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, metricStatusConflicts, labels)
		return
	}

	e.metricsCollector.IncrementCounter(metricStatusConflicts, labels)
}

// recordFineMetrics records the assessed fine amount in whole currency units.
func (e *Engine) recordFineMetrics(ctx context.Context, fine lending.Money) {
	if e.metricsCollector == nil || fine == 0 {
		return
	}

	labels := map[string]string{spanAttrOperation: logActionReturn}
	value := float64(fine.Cents()) / 100

	if contextual, ok := e.metricsCollector.(lending.ContextualMetricsCollector); ok {
		contextual.RecordValueContext(ctx, metricFinesAssessed, value, labels)
		return
	}

	e.metricsCollector.RecordValue(metricFinesAssessed, value, labels)
}

// startSpan starts a tracing span if a collector is configured.
func (e *Engine) startSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, lending.SpanContext) {
	if e.tracingCollector == nil {
		return ctx, nil
	}

	return e.tracingCollector.StartSpan(ctx, name, attrs)
}

// finishSpan finishes a tracing span if one was started.
func (e *Engine) finishSpan(spanCtx lending.SpanContext, status string, attrs map[string]string) {
	if e.tracingCollector == nil || spanCtx == nil {
		return
	}

	e.tracingCollector.FinishSpan(spanCtx, status, attrs)
}
