package rosbridge

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names and attributes.
const (
	metricFramesReceived  = namespace + ".frames.received"
	metricFramesDiscarded = namespace + ".frames.discarded"
	metricItemsDispatched = namespace + ".items.dispatched"
	metricFramesSent      = namespace + ".frames.sent"

	attrOp     = "op"
	attrReason = "reason"
	attrKind   = "kind"
)

// Reasons used when an inbound frame or a work item is discarded.
const (
	discardEmpty         = "empty"
	discardUnparseable   = "unparseable"
	discardBinary        = "binary"
	discardUnknownOp     = "unknown_op"
	discardMissingTopic  = "missing_topic"
	discardMissingField  = "missing_service"
	discardNoSubscriber  = "no_subscriber"
	discardDecodeError   = "decode_error"
	discardUnresolved    = "unresolved"
	discardSuperseded    = "superseded"
	discardAfterShutdown = "after_shutdown"
)

// Counters recorded by a Connection.
type instruments struct {
	framesReceived  metric.Int64Counter
	framesDiscarded metric.Int64Counter
	itemsDispatched metric.Int64Counter
	framesSent      metric.Int64Counter
}

// Create the connection counters. The global meter provider is used if meterProvider is nil.
func newInstruments(meterProvider metric.MeterProvider) (*instruments, error) {
	if meterProvider == nil {
		meterProvider = otel.GetMeterProvider()
	}
	meter := meterProvider.Meter(pkgName, metric.WithInstrumentationVersion(pkgVersion))
	framesReceived, err := meter.Int64Counter(metricFramesReceived,
		metric.WithDescription("Number of frames received from the rosbridge server"))
	if err != nil {
		return nil, err
	}
	framesDiscarded, err := meter.Int64Counter(metricFramesDiscarded,
		metric.WithDescription("Number of inbound frames or work items which have been discarded"))
	if err != nil {
		return nil, err
	}
	itemsDispatched, err := meter.Int64Counter(metricItemsDispatched,
		metric.WithDescription("Number of work items delivered to subscribers and service handlers"))
	if err != nil {
		return nil, err
	}
	framesSent, err := meter.Int64Counter(metricFramesSent,
		metric.WithDescription("Number of frames sent to the rosbridge server"))
	if err != nil {
		return nil, err
	}
	return &instruments{
		framesReceived:  framesReceived,
		framesDiscarded: framesDiscarded,
		itemsDispatched: itemsDispatched,
		framesSent:      framesSent,
	}, nil
}

func (inst *instruments) received(ctx context.Context, op string) {
	inst.framesReceived.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOp, op)))
}

func (inst *instruments) discarded(ctx context.Context, reason string) {
	inst.framesDiscarded.Add(ctx, 1, metric.WithAttributes(attribute.String(attrReason, reason)))
}

func (inst *instruments) dispatched(ctx context.Context, kind string) {
	inst.itemsDispatched.Add(ctx, 1, metric.WithAttributes(attribute.String(attrKind, kind)))
}

func (inst *instruments) sent(ctx context.Context, op string) {
	inst.framesSent.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOp, op)))
}
