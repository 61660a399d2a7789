package rosbridge

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Generate a new random correlation id for CallService.
func NewCorrelationID() string {
	return uuid.New().String()
}

// # Description
//
// Call a service. The handler is recorded under the correlation id and invoked exactly once by
// Pump when the matching response arrives. Calling again with an id which is still pending
// replaces the previous handler. Handlers of calls whose response has not arrived when the
// connection is interrupted, and of all pending calls when it is disconnected, are never
// invoked. No timeout is applied to pending calls.
//
// # Inputs
//
//   - ctx: Context used to send the call_service frame.
//   - service: Name of the service (e.g. "/add_two_ints").
//   - id: Correlation id. See NewCorrelationID.
//   - args: JSON encoded service arguments. Can be nil.
//   - handler: Handler which will receive the response.
//
// # Returns
//
// ErrNotOpen if the connection is not open (nothing is recorded nor sent), ErrInvalidService,
// ErrInvalidCorrelationID or CapabilityError for invalid inputs, or the error which occurred
// while sending the frame. The handler is forgotten if the frame could not be sent.
func (c *Connection) CallService(ctx context.Context, service string, id string, args json.RawMessage, handler ServiceHandler) error {
	ctx, span := c.tracer.Start(ctx, spanCallService, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(
		attribute.String(attrService, service),
		attribute.String(attrCorrelationID, id),
	))
	defer span.End()
	if service == "" {
		return handleError(ErrInvalidService, span, codes.Error, "invalid service")
	}
	if id == "" {
		return handleError(ErrInvalidCorrelationID, span, codes.Error, "invalid correlation id")
	}
	if isNil(handler) {
		err := CapabilityError{Kind: "service_handler", Reason: "handler is nil"}
		return handleError(err, span, codes.Error, "invalid service handler")
	}
	if err := validateArgs(args); err != nil {
		return handleError(err, span, codes.Error, "invalid service arguments")
	}
	// Record under the connection lock so the call cannot be recorded after a teardown dropped
	// pending calls.
	c.mu.Lock()
	if c.state != Open {
		c.mu.Unlock()
		return handleError(ErrNotOpen, span, codes.Error, "service call dropped")
	}
	seq := c.services.record(id, handler)
	c.mu.Unlock()
	err := c.send(ctx, opCallService, callServiceFrame{Op: opCallService, Service: service, ID: id, Args: args})
	if err != nil {
		c.services.forget(id, seq)
	}
	return handlePotentialError(err, span)
}

// # Description
//
// Call a service without correlation id. The response is delivered by Pump to the handler
// registered with RegisterServiceHandler for the service or to the fallback handler. Only the
// most recent response of a service which has not been dispatched yet is delivered.
//
// # Returns
//
// ErrNotOpen if the connection is not open, ErrInvalidService if service is empty, or the error
// which occurred while sending the frame.
func (c *Connection) CallServiceUncorrelated(ctx context.Context, service string, args json.RawMessage) error {
	ctx, span := c.tracer.Start(ctx, spanCallService, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(
		attribute.String(attrService, service),
	))
	defer span.End()
	if service == "" {
		return handleError(ErrInvalidService, span, codes.Error, "invalid service")
	}
	if err := validateArgs(args); err != nil {
		return handleError(err, span, codes.Error, "invalid service arguments")
	}
	if c.State() != Open {
		return handleError(ErrNotOpen, span, codes.Error, "service call dropped")
	}
	err := c.send(ctx, opCallService, callServiceFrame{Op: opCallService, Service: service, Args: args})
	return handlePotentialError(err, span)
}

// # Description
//
// Register the handler which receives the responses without correlation id of a service. A
// handler already registered for the service is replaced.
//
// # Returns
//
// ErrInvalidService if service is empty, a CapabilityError if handler is nil or ErrClosed if the
// connection has been disconnected.
func (c *Connection) RegisterServiceHandler(service string, handler ServiceHandler) error {
	if service == "" {
		return ErrInvalidService
	}
	if isNil(handler) {
		return CapabilityError{Kind: "service_handler", Reason: "handler is nil"}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Closed {
		return ErrClosed
	}
	if _, exists := c.serviceHandlers[service]; exists {
		c.logger.Debug("replacing service handler", zap.String("service", service))
	}
	c.serviceHandlers[service] = handler
	return nil
}

// # Description
//
// Register the handler which receives the text form of the responses without correlation id of
// services which have no handler registered with RegisterServiceHandler.
//
// # Returns
//
// A CapabilityError if handler is nil or ErrClosed if the connection has been disconnected.
func (c *Connection) RegisterFallbackServiceHandler(handler ServiceTextHandler) error {
	if handler == nil {
		return CapabilityError{Kind: "service_handler", Reason: "handler is nil"}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Closed {
		return ErrClosed
	}
	c.fallbackHandler = handler
	return nil
}

// Service arguments are optional but must be valid JSON when provided.
func validateArgs(args json.RawMessage) error {
	if len(args) > 0 && !json.Valid(args) {
		return fmt.Errorf("service arguments are not valid JSON: %q", string(args))
	}
	return nil
}

// Number of service calls waiting for a response.
func (c *Connection) PendingServiceCalls() int {
	return c.services.pendingCount()
}
