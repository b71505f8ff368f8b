package observability

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Tracer returns a tracer for the given name
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// StartSpan starts a new span from context
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, name, opts...)
}

// StartServiceSpan starts a span for service operations
func StartServiceSpan(ctx context.Context, service, operation string) (context.Context, trace.Span) {
	return StartSpan(ctx, fmt.Sprintf("%s.%s", service, operation),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("service.component", service),
			Operation(operation),
		),
	)
}

// RecordError records an error on the span
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSuccess marks the span as successful
func SetSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// AddEvent adds an event to the span
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// DatabaseMetrics holds database-related metrics
type DatabaseMetrics struct {
	queryDuration metric.Float64Histogram
	queryCount    metric.Int64Counter
	errorCount    metric.Int64Counter
}

// NewDatabaseMetrics creates database metrics instruments
func NewDatabaseMetrics() (*DatabaseMetrics, error) {
	meter := otel.Meter(instrumentationName)

	queryDuration, err := meter.Float64Histogram(
		"db.query.duration",
		metric.WithDescription("Database query duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	queryCount, err := meter.Int64Counter(
		"db.query.count",
		metric.WithDescription("Total number of database queries"),
		metric.WithUnit("{queries}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"db.error.count",
		metric.WithDescription("Total number of database errors"),
		metric.WithUnit("{errors}"),
	)
	if err != nil {
		return nil, err
	}

	return &DatabaseMetrics{
		queryDuration: queryDuration,
		queryCount:    queryCount,
		errorCount:    errorCount,
	}, nil
}

// RecordQuery records a database query metrics
func (m *DatabaseMetrics) RecordQuery(ctx context.Context, system, operation string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("db.system", system),
		attribute.String("db.operation", operation),
	}

	m.queryCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.queryDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))

	if err != nil {
		m.errorCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// TraceDB wraps sql.DB with tracing
type TraceDB struct {
	db      *sql.DB
	system  string
	metrics *DatabaseMetrics
}

// NewTraceDB creates a traced database wrapper. system is the db.system
// attribute value, e.g. "sqlite" or "postgresql".
func NewTraceDB(db *sql.DB, system string) (*TraceDB, error) {
	metrics, err := NewDatabaseMetrics()
	if err != nil {
		return nil, err
	}

	return &TraceDB{
		db:      db,
		system:  system,
		metrics: metrics,
	}, nil
}

func (t *TraceDB) startSpan(ctx context.Context, name, query string) (context.Context, trace.Span) {
	return StartSpan(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", t.system),
			attribute.String("db.statement", truncateQuery(query)),
		),
	)
}

// QueryContext executes a query with tracing
func (t *TraceDB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	ctx, span := t.startSpan(ctx, "DB Query", query)
	defer span.End()

	start := time.Now()
	rows, err := t.db.QueryContext(ctx, query, args...)
	duration := time.Since(start)

	if err != nil {
		RecordError(span, err)
	} else {
		SetSuccess(span)
	}

	span.SetAttributes(attribute.Int64("db.query_duration_ms", duration.Milliseconds()))
	t.metrics.RecordQuery(ctx, t.system, "query", duration, err)

	return rows, err
}

// ExecContext executes a statement with tracing
func (t *TraceDB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	ctx, span := t.startSpan(ctx, "DB Exec", query)
	defer span.End()

	start := time.Now()
	result, err := t.db.ExecContext(ctx, query, args...)
	duration := time.Since(start)

	if err != nil {
		RecordError(span, err)
	} else {
		SetSuccess(span)
		if rowsAffected, raErr := result.RowsAffected(); raErr == nil {
			span.SetAttributes(attribute.Int64("db.rows_affected", rowsAffected))
		}
	}

	span.SetAttributes(attribute.Int64("db.query_duration_ms", duration.Milliseconds()))
	t.metrics.RecordQuery(ctx, t.system, "exec", duration, err)

	return result, err
}

// QueryRowContext executes a query that returns a single row with tracing
func (t *TraceDB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	ctx, span := t.startSpan(ctx, "DB QueryRow", query)
	// The row is scanned after we return, so the span only covers dispatch.
	row := t.db.QueryRowContext(ctx, query, args...)
	span.End()
	return row
}

// DB returns the underlying database connection
func (t *TraceDB) DB() *sql.DB {
	return t.db
}

func truncateQuery(query string) string {
	if len(query) > 500 {
		return query[:500] + "..."
	}
	return query
}

// EditorMetrics holds reorder editor metrics
type EditorMetrics struct {
	moves          metric.Int64Counter
	dragCancels    metric.Int64Counter
	commits        metric.Int64Counter
	commitDuration metric.Float64Histogram
	openSessions   metric.Int64UpDownCounter
	draftsRestored metric.Int64Counter
}

// NewEditorMetrics creates editor metrics instruments
func NewEditorMetrics() (*EditorMetrics, error) {
	meter := otel.Meter(instrumentationName)

	moves, err := meter.Int64Counter(
		"gallery_editor.moves",
		metric.WithDescription("Completed moves that changed a gallery order"),
		metric.WithUnit("{moves}"),
	)
	if err != nil {
		return nil, err
	}

	dragCancels, err := meter.Int64Counter(
		"gallery_editor.drag.cancels",
		metric.WithDescription("Drag gestures abandoned without a drop"),
		metric.WithUnit("{drags}"),
	)
	if err != nil {
		return nil, err
	}

	commits, err := meter.Int64Counter(
		"gallery_editor.commits",
		metric.WithDescription("Order commits to the gallery backend"),
		metric.WithUnit("{commits}"),
	)
	if err != nil {
		return nil, err
	}

	commitDuration, err := meter.Float64Histogram(
		"gallery_editor.commit.duration",
		metric.WithDescription("Order commit duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	openSessions, err := meter.Int64UpDownCounter(
		"gallery_editor.sessions.open",
		metric.WithDescription("Editing sessions currently open"),
		metric.WithUnit("{sessions}"),
	)
	if err != nil {
		return nil, err
	}

	draftsRestored, err := meter.Int64Counter(
		"gallery_editor.drafts.restored",
		metric.WithDescription("Unsaved orders restored when a session opened"),
		metric.WithUnit("{drafts}"),
	)
	if err != nil {
		return nil, err
	}

	return &EditorMetrics{
		moves:          moves,
		dragCancels:    dragCancels,
		commits:        commits,
		commitDuration: commitDuration,
		openSessions:   openSessions,
		draftsRestored: draftsRestored,
	}, nil
}

// RecordMove records a move applied through the given input source
func (m *EditorMetrics) RecordMove(ctx context.Context, galleryID int64, source string) {
	m.moves.Add(ctx, 1, metric.WithAttributes(
		GalleryID(galleryID),
		attribute.String("source", source),
	))
}

// RecordDragCancel records an abandoned drag
func (m *EditorMetrics) RecordDragCancel(ctx context.Context, galleryID int64) {
	m.dragCancels.Add(ctx, 1, metric.WithAttributes(GalleryID(galleryID)))
}

// RecordCommit records a commit outcome
func (m *EditorMetrics) RecordCommit(ctx context.Context, galleryID int64, duration time.Duration, success bool) {
	attrs := []attribute.KeyValue{
		GalleryID(galleryID),
		attribute.Bool("success", success),
	}
	m.commits.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.commitDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// SessionOpened increments the open session gauge
func (m *EditorMetrics) SessionOpened(ctx context.Context) {
	m.openSessions.Add(ctx, 1)
}

// SessionClosed decrements the open session gauge
func (m *EditorMetrics) SessionClosed(ctx context.Context) {
	m.openSessions.Add(ctx, -1)
}

// RecordDraftRestored records a draft reapplied on open
func (m *EditorMetrics) RecordDraftRestored(ctx context.Context, galleryID int64) {
	m.draftsRestored.Add(ctx, 1, metric.WithAttributes(GalleryID(galleryID)))
}
