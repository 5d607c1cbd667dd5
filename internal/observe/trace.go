package observe

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/MrWong99/voxpaste"

// SpanTranscribe names the span covering one utterance's transcription.
const SpanTranscribe = "session.transcribe"

// Attribute keys set on utterance spans.
const (
	AttrSessionID        = attribute.Key("session.id")
	AttrUtteranceChunks  = attribute.Key("utterance.chunks")
	AttrUtteranceSeconds = attribute.Key("utterance.seconds")
)

// Tracer is the voxpaste tracer of the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartSpan starts a span named name under ctx. End it with [EndSpan] or
// span.End().
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}

// StartUtteranceSpan starts a [SpanTranscribe] span tagged with the session
// and the size of the utterance.
func StartUtteranceSpan(ctx context.Context, sessionID string, chunks int, dur time.Duration) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanTranscribe, trace.WithAttributes(
		AttrSessionID.String(sessionID),
		AttrUtteranceChunks.Int(chunks),
		AttrUtteranceSeconds.Float64(dur.Seconds()),
	))
}

// EndSpan ends span, marking it failed when err is non-nil.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// CorrelationID is the trace id of the span in ctx, or "".
func CorrelationID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

// Logger is slog.Default() with trace_id and span_id attached when ctx
// carries a span.
func Logger(ctx context.Context) *slog.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return slog.Default()
	}
	return slog.Default().With(
		slog.String("trace_id", sc.TraceID().String()),
		slog.String("span_id", sc.SpanID().String()),
	)
}
