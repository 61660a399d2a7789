package rosbridge

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// # Description
//
// Drain the work items queued so far and deliver them, in arrival order, on the calling
// goroutine:
//   - Topic messages are decoded once with the first subscriber of the topic and passed to every
//     subscriber of the topic. Messages of topics without subscriber are dropped.
//   - Responses with a correlation id are passed to the handler pending for the id, which is
//     then forgotten. Responses for unknown ids are dropped.
//   - Responses without correlation id are delivered only if they are still the most recent
//     response of their service, to the handler registered for the service or to the fallback
//     handler.
//
// Pump must be called from a single goroutine, usually once per tick of the host main loop.
// Decoding and callback errors are logged.
//
// # Returns
//
// The number of items delivered to at least one subscriber or handler.
func (c *Connection) Pump() int {
	items := c.queue.drain()
	if len(items) == 0 {
		return 0
	}
	ctx, span := c.tracer.Start(context.Background(), spanPump, trace.WithAttributes(
		attribute.String(attrURL, c.target.String()),
		attribute.Int(attrItemCount, len(items)),
	))
	defer span.End()
	dispatched := 0
	for _, item := range items {
		var delivered bool
		switch item.kind {
		case topicMessageItem:
			delivered = c.dispatchTopicMessage(ctx, item)
		case correlatedResponseItem:
			delivered = c.dispatchCorrelatedResponse(ctx, item)
		case legacyResponseItem:
			delivered = c.dispatchLegacyResponse(ctx, item)
		}
		if delivered {
			dispatched++
			c.metrics.dispatched(ctx, item.kind.String())
		}
	}
	span.SetStatus(codes.Ok, codes.Ok.String())
	return dispatched
}

func (c *Connection) dispatchTopicMessage(ctx context.Context, item *workItem) bool {
	c.mu.Lock()
	subscribers := c.registry.subscribersOf(item.topic)
	c.mu.Unlock()
	if len(subscribers) == 0 {
		c.logger.Debug("dropping message of topic without subscriber", zap.String("topic", item.topic))
		c.metrics.discarded(ctx, discardNoSubscriber)
		return false
	}
	decoded, err := subscribers[0].Decode(item.topic, item.msg)
	if err != nil {
		c.logger.Warn("failed to decode topic message", zap.String("topic", item.topic), zap.Error(err))
		c.metrics.discarded(ctx, discardDecodeError)
		return false
	}
	for _, subscriber := range subscribers {
		if err := subscriber.Receive(item.topic, decoded); err != nil {
			c.logger.Warn("subscriber failed to process message", zap.String("topic", item.topic), zap.Error(err))
		}
	}
	return true
}

func (c *Connection) dispatchCorrelatedResponse(ctx context.Context, item *workItem) bool {
	handler, ok := c.services.resolve(item.response.ID)
	if !ok {
		c.logger.Info("dropping service response without pending call",
			zap.String("service", item.response.Service),
			zap.String("id", item.response.ID))
		c.metrics.discarded(ctx, discardUnresolved)
		return false
	}
	if err := handler.HandleServiceResponse(item.response); err != nil {
		c.logger.Warn("service handler failed to process response",
			zap.String("service", item.response.Service),
			zap.String("id", item.response.ID),
			zap.Error(err))
	}
	return true
}

func (c *Connection) dispatchLegacyResponse(ctx context.Context, item *workItem) bool {
	service := item.response.Service
	if !c.services.takeLegacy(item) {
		c.logger.Debug("dropping superseded service response", zap.String("service", service))
		c.metrics.discarded(ctx, discardSuperseded)
		return false
	}
	c.mu.Lock()
	handler := c.serviceHandlers[service]
	fallback := c.fallbackHandler
	c.mu.Unlock()
	var err error
	switch {
	case handler != nil:
		err = handler.HandleServiceResponse(item.response)
	case fallback != nil:
		err = fallback(service, string(item.response.Values))
	default:
		c.logger.Info("dropping service response without handler", zap.String("service", service))
		c.metrics.discarded(ctx, discardUnresolved)
		return false
	}
	if err != nil {
		c.logger.Warn("service handler failed to process response", zap.String("service", service), zap.Error(err))
	}
	return true
}

// Number of work items waiting for the pump.
func (c *Connection) QueueLength() int {
	return c.queue.len()
}
