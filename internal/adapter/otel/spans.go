package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "forgeshift"

// StartStageSpan starts a span for a whole pipeline stage
// (discover, export, plan, apply, sow).
func StartStageSpan(ctx context.Context, runID, stage string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, stage,
		trace.WithAttributes(
			attribute.String("run.id", runID),
		),
	)
}

// StartProjectSpan starts a span for one project within a stage.
func StartProjectSpan(ctx context.Context, projectID int64, path string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "project",
		trace.WithAttributes(
			attribute.Int64("project.id", projectID),
			attribute.String("project.path", path),
		),
	)
}

// StartActionSpan starts a span for one plan action during apply.
func StartActionSpan(ctx context.Context, actionID, actionType string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "action",
		trace.WithAttributes(
			attribute.String("action.id", actionID),
			attribute.String("action.type", actionType),
		),
	)
}
