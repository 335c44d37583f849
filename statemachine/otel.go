package statemachine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/OneOfOne/xxhash"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "statemachine"

// startVerifyAllSpan creates the root span for a verification run.
// Uses the global tracer initialized by the telemetry package.
// The caller is responsible for calling span.End().
//
//nolint:spancheck // Span lifecycle managed by caller (factory pattern)
func startVerifyAllSpan(ctx context.Context, c *Crawler, pattern string, full bool) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "crawler.verify_all")
	addCrawlerAttributes(span, c)
	span.SetAttributes(
		attribute.String("pattern", pattern),
		attribute.Bool("full", full),
	)
	logSpanDebug(ctx, "started", "crawler.verify_all", span)

	return ctx, span
}

// startMoveSpan creates a span for a multi-step move.
// The caller is responsible for calling span.End().
//
//nolint:spancheck // Span lifecycle managed by caller (factory pattern)
func startMoveSpan(ctx context.Context, c *Crawler, target string) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "crawler.move")
	addCrawlerAttributes(span, c)
	span.SetAttributes(
		attribute.String("from", c.current.FullName()),
		attribute.String("to", target),
	)
	logSpanDebug(ctx, "started", "crawler.move", span)

	return ctx, span
}

// startStepSpan creates a span for a single transition step.
// The caller is responsible for calling span.End().
//
//nolint:spancheck // Span lifecycle managed by caller (factory pattern)
func startStepSpan(ctx context.Context, c *Crawler, from, to string) (context.Context, trace.Span) {
	spanName := "crawler.step"
	ctx, span := otel.Tracer(tracerName).Start(ctx, spanName)
	addCrawlerAttributes(span, c)
	span.SetAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
		attribute.StringSlice("history", c.history),
	)
	logSpanDebug(ctx, "started", spanName, span)

	return ctx, span
}

// endSpan records the outcome of err on span and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "completed")
	}

	span.End()
}

// addCrawlerAttributes adds crawler metadata to span.
func addCrawlerAttributes(span trace.Span, c *Crawler) {
	span.SetAttributes(
		attribute.String("crawler", c.name),
		attribute.String("run_id", c.runID),
		attribute.String("run_id_hash", hashID(c.runID)),
		attribute.Int("error_states", len(c.errorStates)),
	)
}

// hashID creates a short hash of an ID for span attributes.
func hashID(id string) string {
	if id == "" {
		return ""
	}

	return fmt.Sprintf("%016x", xxhash.ChecksumString64(id))[:8]
}

// logSpanDebug logs span creation when CRAWLER_TRACE_DEBUG is set.
func logSpanDebug(ctx context.Context, phase string, spanName string, span trace.Span) {
	if !isTraceDebug() {
		return
	}

	spanCtx := span.SpanContext()
	slog.InfoContext(ctx, "OTEL Span "+phase,
		"span_name", spanName,
		"trace_id", spanCtx.TraceID().String(),
		"span_id", spanCtx.SpanID().String(),
	)
}

func isTraceDebug() bool {
	v := os.Getenv("CRAWLER_TRACE_DEBUG")

	return v == "1" || strings.EqualFold(v, "true")
}
