package rosbridge

import (
	"context"
	"fmt"
	"reflect"

	json "github.com/goccy/go-json"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

/*************************************************************************************************/
/* TOPIC REGISTRATIONS                                                                           */
/*************************************************************************************************/

// # Description
//
// Register a subscriber for a topic. Registering the same subscriber twice for a topic is a
// no-op. When the subscriber is the first one of the topic and the connection is open, a
// subscribe frame is sent with the wire type of the subscriber. Otherwise the subscribe frame is
// sent when the connection opens.
//
// # Returns
//
// ErrInvalidTopic if topic is empty, a CapabilityError if the subscriber is nil, not comparable
// or has no wire type for the topic, ErrClosed if the connection has been disconnected or the
// error which occurred while sending the subscribe frame.
func (c *Connection) RegisterSubscriber(ctx context.Context, topic string, subscriber Subscriber) error {
	ctx, span := c.tracer.Start(ctx, spanRegister, trace.WithAttributes(
		attribute.String(attrTopic, topic),
	))
	defer span.End()
	if topic == "" {
		return handleError(ErrInvalidTopic, span, codes.Error, "invalid topic")
	}
	if err := validateSubscriber(subscriber); err != nil {
		return handleError(err, span, codes.Error, "invalid subscriber")
	}
	wireType := subscriber.WireType(topic)
	if wireType == "" {
		err := CapabilityError{Kind: "subscriber", Reason: fmt.Sprintf("no wire type for topic %s", topic)}
		return handleError(err, span, codes.Error, "invalid subscriber")
	}
	span.SetAttributes(attribute.String(attrWireType, wireType))
	c.mu.Lock()
	if c.state == Closed {
		c.mu.Unlock()
		return handleError(ErrClosed, span, codes.Error, "connection is closed")
	}
	added, first := c.registry.addSubscriber(topic, wireType, subscriber)
	open := c.state == Open
	c.mu.Unlock()
	if !added {
		c.logger.Debug("subscriber already registered", zap.String("topic", topic))
	}
	if first && open {
		err := c.send(ctx, opSubscribe, typedTopicFrame{Op: opSubscribe, Topic: topic, Type: wireType})
		return handlePotentialError(err, span)
	}
	span.SetStatus(codes.Ok, codes.Ok.String())
	return nil
}

// # Description
//
// Declare a publisher for a topic. The first declaration of a topic wins: later declarations,
// even with a different wire type, are no-ops. A newly declared topic is advertised right away
// if the connection is open, or when the connection opens.
//
// # Returns
//
// ErrInvalidTopic if topic is empty, a CapabilityError if wireType is empty, ErrClosed if the
// connection has been disconnected or the error which occurred while sending the advertise frame.
func (c *Connection) RegisterPublisher(ctx context.Context, topic string, wireType string) error {
	ctx, span := c.tracer.Start(ctx, spanRegister, trace.WithAttributes(
		attribute.String(attrTopic, topic),
		attribute.String(attrWireType, wireType),
	))
	defer span.End()
	if topic == "" {
		return handleError(ErrInvalidTopic, span, codes.Error, "invalid topic")
	}
	if wireType == "" {
		err := CapabilityError{Kind: "publisher", Reason: "wire type is empty"}
		return handleError(err, span, codes.Error, "invalid publisher")
	}
	c.mu.Lock()
	if c.state == Closed {
		c.mu.Unlock()
		return handleError(ErrClosed, span, codes.Error, "connection is closed")
	}
	added := c.registry.declarePublisher(topic, wireType)
	open := c.state == Open
	declared, _ := c.registry.publisherType(topic)
	c.mu.Unlock()
	if !added {
		c.logger.Debug("publisher already declared, keeping first declaration",
			zap.String("topic", topic),
			zap.String("type", declared),
			zap.String("ignored_type", wireType))
		span.SetStatus(codes.Ok, codes.Ok.String())
		return nil
	}
	if open {
		err := c.send(ctx, opAdvertise, typedTopicFrame{Op: opAdvertise, Topic: topic, Type: wireType})
		return handlePotentialError(err, span)
	}
	span.SetStatus(codes.Ok, codes.Ok.String())
	return nil
}

/*************************************************************************************************/
/* PUBLISH                                                                                       */
/*************************************************************************************************/

// # Description
//
// Encode the message as JSON and publish it on the topic. A topic without publisher declaration
// is first declared and advertised with the wire type of the message.
//
// # Returns
//
// ErrNotOpen if the connection is not open (the message is dropped), ErrInvalidTopic if topic is
// empty, a CapabilityError if the message is nil or has no wire type, or the error which
// occurred while encoding or sending the message.
func (c *Connection) Publish(ctx context.Context, topic string, msg Message) error {
	ctx, span := c.tracer.Start(ctx, spanPublish, trace.WithSpanKind(trace.SpanKindProducer), trace.WithAttributes(
		attribute.String(attrTopic, topic),
	))
	defer span.End()
	if topic == "" {
		return handleError(ErrInvalidTopic, span, codes.Error, "invalid topic")
	}
	if isNil(msg) {
		err := CapabilityError{Kind: "message", Reason: "message is nil"}
		return handleError(err, span, codes.Error, "invalid message")
	}
	c.mu.Lock()
	if c.state != Open {
		c.mu.Unlock()
		return handleError(ErrNotOpen, span, codes.Error, "message dropped")
	}
	wireType, declared := c.registry.publisherType(topic)
	if !declared {
		wireType = msg.WireType()
		if wireType == "" {
			c.mu.Unlock()
			err := CapabilityError{Kind: "message", Reason: fmt.Sprintf("%T has no wire type", msg)}
			return handleError(err, span, codes.Error, "invalid message")
		}
		c.registry.declarePublisher(topic, wireType)
	}
	c.mu.Unlock()
	span.SetAttributes(attribute.String(attrWireType, wireType))
	if !declared {
		c.logger.Debug("advertising undeclared topic", zap.String("topic", topic), zap.String("type", wireType))
		if err := c.send(ctx, opAdvertise, typedTopicFrame{Op: opAdvertise, Topic: topic, Type: wireType}); err != nil {
			return handleError(err, span, codes.Error, "advertise failed")
		}
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		err = fmt.Errorf("failed to encode %s message: %w", wireType, err)
		return handleError(err, span, codes.Error, "encoding failed")
	}
	err = c.send(ctx, opPublish, publishFrame{Op: opPublish, Topic: topic, Msg: payload})
	return handlePotentialError(err, span)
}

/*************************************************************************************************/
/* CAPABILITY CHECKS                                                                             */
/*************************************************************************************************/

// Subscribers are compared by identity: their dynamic type must be comparable.
func validateSubscriber(subscriber Subscriber) error {
	if isNil(subscriber) {
		return CapabilityError{Kind: "subscriber", Reason: "subscriber is nil"}
	}
	if !reflect.TypeOf(subscriber).Comparable() {
		return CapabilityError{
			Kind:   "subscriber",
			Reason: fmt.Sprintf("%T is not comparable, use a pointer", subscriber),
		}
	}
	return nil
}

// Whether v is nil or an interface holding a nil pointer, map, slice or func.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	value := reflect.ValueOf(v)
	switch value.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return value.IsNil()
	default:
		return false
	}
}
