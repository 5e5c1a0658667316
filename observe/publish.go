package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// StartPublish opens a span covering the publish of a single document.
// End the span after RecordPublish.
func (i *Instruments) StartPublish(ctx context.Context, sourceType, sourceID string) (context.Context, trace.Span) {
	return i.Tracer.Start(ctx, "pipeline.publish", trace.WithAttributes(
		AttrSourceType.String(sourceType),
		AttrSourceID.String(sourceID),
	))
}

// RecordPublish emits the publish-stage metrics and log record for one
// document.
func (i *Instruments) RecordPublish(ctx context.Context, span trace.Span, sourceType string, chunkCount int, durationMs float64, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(AttrChunkCount.Int(chunkCount))

	attrs := metric.WithAttributes(
		AttrSourceType.String(sourceType),
		attribute.String("status", status),
	)
	i.DocsPublished.Add(ctx, 1, attrs)
	i.ChunksOut.Add(ctx, int64(chunkCount), attrs)
	i.PublishDuration.Record(ctx, durationMs, attrs)

	var rec otellog.Record
	rec.SetSeverity(otellog.SeverityInfo)
	if err != nil {
		rec.SetSeverity(otellog.SeverityError)
	}
	rec.SetBody(otellog.StringValue("document publish completed"))
	rec.AddAttributes(
		otellog.String("doc.source_type", sourceType),
		otellog.Int("pipeline.chunk_count", chunkCount),
		otellog.Float64("pipeline.duration_ms", durationMs),
		otellog.String("status", status),
	)
	i.Logger.Emit(ctx, rec)
}
