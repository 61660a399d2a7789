package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ConnectionAdapter decorator which traces every call and counts the bytes read and written.
type InstrumentationDecorator struct {
	decorated    ConnectionAdapter
	tracer       trace.Tracer
	bytesRead    metric.Int64Counter
	bytesWritten metric.Int64Counter
}

// # Description
//
// Wrap the provided ConnectionAdapter in an InstrumentationDecorator.
//
// # Inputs
//
//   - decorated: Adapter to decorate. Must not be nil.
//   - tracerProvider: Tracer provider to use. If nil, global tracer provider is used.
//   - meterProvider: Meter provider to use. If nil, global meter provider is used.
//
// # Returns
//
// The decorator or an error if the byte counters could not be created.
func NewInstrumentationDecorator(
	decorated ConnectionAdapter,
	tracerProvider trace.TracerProvider,
	meterProvider metric.MeterProvider) (*InstrumentationDecorator, error) {
	if tracerProvider == nil {
		tracerProvider = otel.GetTracerProvider()
	}
	if meterProvider == nil {
		meterProvider = otel.GetMeterProvider()
	}
	meter := meterProvider.Meter(pkgName, metric.WithInstrumentationVersion(pkgVersion))
	bytesRead, err := meter.Int64Counter(metricBytesRead,
		metric.WithUnit("By"),
		metric.WithDescription("Payload bytes of the frames read from websocket connections"))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s counter: %w", metricBytesRead, err)
	}
	bytesWritten, err := meter.Int64Counter(metricBytesWritten,
		metric.WithUnit("By"),
		metric.WithDescription("Payload bytes of the frames written to websocket connections"))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s counter: %w", metricBytesWritten, err)
	}
	return &InstrumentationDecorator{
		decorated:    decorated,
		tracer:       tracerProvider.Tracer(pkgName, trace.WithInstrumentationVersion(pkgVersion)),
		bytesRead:    bytesRead,
		bytesWritten: bytesWritten,
	}, nil
}

func (decorator *InstrumentationDecorator) Dial(ctx context.Context, target url.URL) (*http.Response, error) {
	ctx, span := decorator.tracer.Start(ctx, spanDial, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(
		attribute.String(attrUrl, target.String()),
	))
	defer span.End()
	resp, err := decorator.decorated.Dial(ctx, target)
	if resp != nil {
		span.SetAttributes(attribute.Int(attrStatusCode, resp.StatusCode))
	}
	endSpan(span, err)
	return resp, err
}

func (decorator *InstrumentationDecorator) Close(ctx context.Context, code StatusCode, reason string) error {
	ctx, span := decorator.tracer.Start(ctx, spanClose, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(
		attribute.Int(attrCloseCode, int(code)),
		attribute.String(attrCloseReason, reason),
	))
	defer span.End()
	err := decorator.decorated.Close(ctx, code, reason)
	endSpan(span, err)
	return err
}

// The read span covers the whole wait for the next frame.
func (decorator *InstrumentationDecorator) Read(ctx context.Context) (MessageType, []byte, error) {
	ctx, span := decorator.tracer.Start(ctx, spanRead, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	msgType, msg, err := decorator.decorated.Read(ctx)
	if err != nil {
		closeErr := CloseError{}
		if errors.As(err, &closeErr) {
			span.SetAttributes(
				attribute.Int(attrCloseCode, int(closeErr.Code)),
				attribute.String(attrCloseReason, closeErr.Reason))
		}
		endSpan(span, err)
		return msgType, msg, err
	}
	frameAttrs := metric.WithAttributes(attribute.Int(attrMessageType, int(msgType)))
	decorator.bytesRead.Add(ctx, int64(len(msg)), frameAttrs)
	span.AddEvent(eventReceived, trace.WithAttributes(
		attribute.Int(attrMessageByteSize, len(msg)),
		attribute.Int(attrMessageType, int(msgType)),
	))
	endSpan(span, nil)
	return msgType, msg, nil
}

func (decorator *InstrumentationDecorator) Write(ctx context.Context, msgType MessageType, msg []byte) error {
	ctx, span := decorator.tracer.Start(ctx, spanWrite, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(
		attribute.Int(attrMessageByteSize, len(msg)),
		attribute.Int(attrMessageType, int(msgType)),
	))
	defer span.End()
	err := decorator.decorated.Write(ctx, msgType, msg)
	if err == nil {
		decorator.bytesWritten.Add(ctx, int64(len(msg)), metric.WithAttributes(attribute.Int(attrMessageType, int(msgType))))
	}
	endSpan(span, err)
	return err
}

// Set span status from the outcome of the decorated call.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, codes.Ok.String())
}
