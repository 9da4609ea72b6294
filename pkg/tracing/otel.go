// Copyright 2026 fanjia1024
// OpenTelemetry integration for request tracing

package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "support-chat"

// OTelConfig OpenTelemetry 配置
type OTelConfig struct {
	ServiceName    string
	ExportEndpoint string
	Insecure       bool
}

// InitTracer 初始化 OpenTelemetry tracer
func InitTracer(config OTelConfig) (*sdktrace.TracerProvider, error) {
	ctx := context.Background()

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(config.ExportEndpoint),
	}
	if config.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptrace.New(ctx, otlptracehttp.NewClient(opts...))
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(config.ServiceName),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	return tp, nil
}

// StartTurnSpan 开始一轮对话的 span
func StartTurnSpan(ctx context.Context, sessionID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "chat.turn",
		trace.WithAttributes(attribute.String("session.id", sessionID)),
	)
}

// StartGenerateSpan 开始生成调用 span
func StartGenerateSpan(ctx context.Context, provider, model string, messages int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "llm.generate",
		trace.WithAttributes(
			attribute.String("llm.provider", provider),
			attribute.String("llm.model", model),
			attribute.Int("llm.messages", messages),
		),
	)
}

// StartIngestSpan 开始文档入库 span
func StartIngestSpan(ctx context.Context, dataPath, collection string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "ingest.run",
		trace.WithAttributes(
			attribute.String("ingest.data_path", dataPath),
			attribute.String("ingest.collection", collection),
		),
	)
}

// EndSpan 结束 span，err 非空时记录错误状态
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
