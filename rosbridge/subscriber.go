package rosbridge

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// Message which can be published: a value encoded as JSON which exposes its wire type name
// (e.g. "geometry_msgs/Twist").
type Message interface {
	WireType() string
}

// # Description
//
// Capability a topic subscriber must provide.
//
// For each publish frame received on a topic, the pump decodes the raw message once with the
// Decode method of the first subscriber registered for the topic and then passes the decoded
// value to the Receive method of every subscriber of the topic, in registration order. Receivers
// must not mutate the decoded value as it is shared.
//
// Subscriber implementations must be comparable (pointers are the usual choice): subscribers
// are deduplicated by identity.
type Subscriber interface {
	// Wire type name the subscriber expects for the topic. Must not be empty.
	WireType(topic string) string
	// Decode the raw message received on the topic.
	Decode(topic string, raw json.RawMessage) (any, error)
	// Receive a decoded message. Called on the goroutine which runs the pump.
	Receive(topic string, msg any) error
}

// Subscriber which decodes messages into T and passes them to a callback.
type TypedSubscriber[T any] struct {
	wireType string
	callback func(topic string, msg T)
}

// # Description
//
// Factory which creates a new TypedSubscriber.
//
// # Inputs
//
//   - wireType: Wire type name of the topic messages (e.g. "sensor_msgs/Joy").
//   - callback: Function called with each decoded message.
//
// # Returns
//
// New TypedSubscriber, to be registered with Connection.RegisterSubscriber.
func NewSubscriber[T any](wireType string, callback func(topic string, msg T)) *TypedSubscriber[T] {
	return &TypedSubscriber[T]{
		wireType: wireType,
		callback: callback,
	}
}

func (s *TypedSubscriber[T]) WireType(topic string) string {
	return s.wireType
}

func (s *TypedSubscriber[T]) Decode(topic string, raw json.RawMessage) (any, error) {
	var msg T
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode %s message from topic %s: %w", s.wireType, topic, err)
	}
	return msg, nil
}

func (s *TypedSubscriber[T]) Receive(topic string, msg any) error {
	typed, ok := msg.(T)
	if !ok {
		return fmt.Errorf("subscriber for %s expects %T messages, got %T", topic, typed, msg)
	}
	if s.callback != nil {
		s.callback(topic, typed)
	}
	return nil
}
