// Package rosbridge contains a client for the rosbridge protocol: JSON frames exchanged over a
// websocket connection to subscribe and publish to topics of a ROS message bus and to call its
// services.
//
// Frames received by the background receive loop are only classified and queued. Messages are
// decoded and user callbacks are invoked by Pump, on the goroutine of the caller, which is
// usually the main loop of the host application.
package rosbridge

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gbdevw/gorosbridge/transport"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// A connection to a rosbridge server.
type Connection struct {
	// Server URL
	target url.URL
	// Instrumented websocket connection adapter
	conn transport.ConnectionAdapter
	// Connection options
	opts ConnectionOptions
	// Logger
	logger *zap.Logger
	// Tracer
	tracer trace.Tracer
	// Counters
	metrics *instruments
	// Serializes Connect and Disconnect
	lifecycleMu sync.Mutex
	// Protects state, lastErr, sessionID, registry, serviceHandlers, fallbackHandler, the
	// receive loop cancel function and its done channel
	mu sync.Mutex
	// Lifecycle state
	state State
	// Last transport error
	lastErr error
	// ID of the current session, renewed each time the connection opens
	sessionID string
	// Subscribers and publisher declarations
	registry *topicRegistry
	// Handlers which receive the responses without correlation id, by service name
	serviceHandlers map[string]ServiceHandler
	// Handler which receives the responses without correlation id of other services
	fallbackHandler ServiceTextHandler
	// Pending service calls and responses without correlation id
	services *pendingServiceTable
	// Work items waiting for the pump
	queue *dispatchQueue
	// Serializes frame writes
	sendMu sync.Mutex
	// Cancels the receive loop of the current session
	cancelReceive context.CancelFunc
	// Closed when the receive loop of the current session exits
	receiveDone chan struct{}
}

// # Description
//
// Factory which creates a new, idle Connection.
//
// # Inputs
//
//   - target: URL of the rosbridge server (e.g. ws://localhost:9090).
//   - conn: Websocket connection adapter the connection will use. The adapter is instrumented.
//   - opts: Connection options. If nil, default options are used.
//   - logger: Logger to use. If nil, a Nop logger is used.
//   - tracerProvider: Tracer provider to use. If nil, global tracer provider is used.
//   - meterProvider: Meter provider to use. If nil, global meter provider is used.
//
// # Returns
//
// New Connection or an error if the adapter is nil or options are invalid.
func NewConnection(
	target url.URL,
	conn transport.ConnectionAdapter,
	opts *ConnectionOptions,
	logger *zap.Logger,
	tracerProvider trace.TracerProvider,
	meterProvider metric.MeterProvider) (*Connection, error) {
	if conn == nil {
		return nil, fmt.Errorf("connection adapter cannot be nil")
	}
	if opts == nil {
		opts = NewConnectionOptions()
	}
	if err := Validate(opts); err != nil {
		return nil, fmt.Errorf("invalid connection options: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if tracerProvider == nil {
		tracerProvider = otel.GetTracerProvider()
	}
	metrics, err := newInstruments(meterProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection instruments: %w", err)
	}
	decorated, err := transport.NewInstrumentationDecorator(conn, tracerProvider, meterProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to instrument connection adapter: %w", err)
	}
	return &Connection{
		target:          target,
		conn:            decorated,
		opts:            *opts,
		logger:          logger.With(zap.String("url", target.String())),
		tracer:          tracerProvider.Tracer(pkgName, trace.WithInstrumentationVersion(pkgVersion)),
		metrics:         metrics,
		state:           Idle,
		registry:        newTopicRegistry(),
		serviceHandlers: map[string]ServiceHandler{},
		services:        newPendingServiceTable(),
		queue:           newDispatchQueue(),
	}, nil
}

// URL of the rosbridge server.
func (c *Connection) URL() url.URL {
	return c.target
}

// Current lifecycle state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Last transport error: the connect failure or the read error which interrupted the connection.
// Nil once the connection opens successfully.
func (c *Connection) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

/*************************************************************************************************/
/* LIFECYCLE                                                                                     */
/*************************************************************************************************/

// # Description
//
// Open the websocket connection, send a subscribe frame for each subscribed topic and an
// advertise frame for each declared publisher (in registration order) and start the receive
// loop.
//
// The method is a no-op if the connection is already open. A connection interrupted by the
// server goes back to Idle and can be opened again: registrations are kept and replayed.
//
// # Returns
//
// Nil in case of success, ErrClosed if the connection has been disconnected or a ConnectError if
// the server could not be reached. The connection stays Idle after a failure.
func (c *Connection) Connect(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, spanConnect, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(
		attribute.String(attrURL, c.target.String()),
	))
	defer span.End()
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()
	c.mu.Lock()
	switch c.state {
	case Open:
		c.mu.Unlock()
		span.AddEvent(eventAlreadyOpen)
		span.SetStatus(codes.Ok, codes.Ok.String())
		return nil
	case Closed:
		c.mu.Unlock()
		return handleError(ErrClosed, span, codes.Error, "connection is closed")
	}
	c.state = Connecting
	previousDone := c.receiveDone
	c.mu.Unlock()
	if previousDone != nil {
		// Receive loop of an interrupted session gives up the adapter before exiting
		<-previousDone
	}
	dialCtx := ctx
	if c.opts.ConnectTimeoutMs > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, time.Duration(c.opts.ConnectTimeoutMs)*time.Millisecond)
		defer cancel()
	}
	if _, err := c.conn.Dial(dialCtx, c.target); err != nil {
		err = ConnectError{Err: err}
		c.mu.Lock()
		c.state = Idle
		c.lastErr = err
		c.mu.Unlock()
		c.logger.Warn("failed to open rosbridge connection", zap.Error(err))
		return handleError(err, span, codes.Error, "connect failed")
	}
	// Switch to Open and snapshot registrations atomically: registrations made from now on send
	// their own frames.
	receiveCtx, cancelReceive := context.WithCancel(context.Background())
	receiveDone := make(chan struct{})
	c.mu.Lock()
	sessionID := uuid.New().String()
	c.state = Open
	c.lastErr = nil
	c.sessionID = sessionID
	c.cancelReceive = cancelReceive
	c.receiveDone = receiveDone
	subscriptions := c.registry.subscriptions()
	advertisements := c.registry.advertisements()
	c.mu.Unlock()
	span.SetAttributes(attribute.String(attrSessionID, sessionID))
	go c.receive(receiveCtx, sessionID, receiveDone)
	for _, decl := range subscriptions {
		c.sendLogged(ctx, opSubscribe, typedTopicFrame{Op: opSubscribe, Topic: decl.topic, Type: decl.wireType})
	}
	for _, decl := range advertisements {
		c.sendLogged(ctx, opAdvertise, typedTopicFrame{Op: opAdvertise, Topic: decl.topic, Type: decl.wireType})
	}
	c.logger.Info("rosbridge connection opened",
		zap.String("session", sessionID),
		zap.Int("subscriptions", len(subscriptions)),
		zap.Int("advertisements", len(advertisements)))
	span.SetStatus(codes.Ok, codes.Ok.String())
	return nil
}

// # Description
//
// Send an unsubscribe frame for each subscribed topic and an unadvertise frame for each declared
// publisher, close the websocket connection, stop the receive loop and wait for it to exit. All
// registrations, pending service calls and queued work items are then dropped and the connection
// becomes Closed.
//
// The method is a no-op if the connection is not open. Once it returns, no frame is enqueued and
// Pump dispatches nothing.
//
// # Returns
//
// The error returned when closing the websocket connection, if any.
func (c *Connection) Disconnect(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, spanDisconnect, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(
		attribute.String(attrURL, c.target.String()),
	))
	defer span.End()
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()
	c.mu.Lock()
	if c.state != Open {
		c.mu.Unlock()
		span.SetStatus(codes.Ok, codes.Ok.String())
		return nil
	}
	c.state = Closing
	subscriptions := c.registry.subscriptions()
	advertisements := c.registry.advertisements()
	cancelReceive := c.cancelReceive
	receiveDone := c.receiveDone
	c.mu.Unlock()
	if c.opts.DisconnectTimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(c.opts.DisconnectTimeoutMs)*time.Millisecond)
		defer cancel()
	}
	for _, decl := range subscriptions {
		c.sendLogged(ctx, opUnsubscribe, topicFrame{Op: opUnsubscribe, Topic: decl.topic})
	}
	for _, decl := range advertisements {
		c.sendLogged(ctx, opUnadvertise, topicFrame{Op: opUnadvertise, Topic: decl.topic})
	}
	// Closing the adapter unblocks the pending read, cancellation covers adapters which only
	// watch the read context.
	closeErr := c.conn.Close(ctx, transport.GoingAway, "client disconnect")
	cancelReceive()
	<-receiveDone
	c.mu.Lock()
	c.registry.clear()
	c.serviceHandlers = map[string]ServiceHandler{}
	c.fallbackHandler = nil
	c.state = Closed
	c.mu.Unlock()
	dropped := c.services.dropAll()
	c.queue.drain()
	c.logger.Info("rosbridge connection closed", zap.Int("dropped_service_calls", dropped))
	if closeErr != nil {
		c.logger.Warn("failed to close websocket connection", zap.Error(closeErr))
	}
	return handlePotentialError(closeErr, span)
}

/*************************************************************************************************/
/* RECEIVE LOOP                                                                                  */
/*************************************************************************************************/

// Read frames until the session is canceled or the connection is interrupted.
func (c *Connection) receive(ctx context.Context, sessionID string, done chan struct{}) {
	defer close(done)
	logger := c.logger.With(zap.String("session", sessionID))
	for {
		msgType, raw, err := c.conn.Read(ctx)
		if err != nil {
			c.onReadFailure(ctx, sessionID, err, logger)
			return
		}
		if ctx.Err() != nil {
			c.metrics.discarded(ctx, discardAfterShutdown)
			return
		}
		if msgType != transport.Text {
			logger.Warn("discarding binary frame", zap.Int("length", len(raw)))
			c.metrics.discarded(ctx, discardBinary)
			continue
		}
		c.handleFrame(ctx, raw, logger)
	}
}

// Classify a frame received from the server and enqueue the matching work item.
func (c *Connection) handleFrame(ctx context.Context, raw []byte, logger *zap.Logger) {
	if len(raw) == 0 {
		logger.Warn("discarding empty frame")
		c.metrics.discarded(ctx, discardEmpty)
		return
	}
	env := inboundEnvelope{}
	if err := json.Unmarshal(raw, &env); err != nil {
		logger.Warn("discarding unparseable frame", zap.Error(err), zap.Int("length", len(raw)))
		c.metrics.discarded(ctx, discardUnparseable)
		return
	}
	c.metrics.received(ctx, receivedOp(env.Op))
	switch env.Op {
	case opPublish:
		if env.Topic == "" {
			logger.Warn("discarding publish frame without topic")
			c.metrics.discarded(ctx, discardMissingTopic)
			return
		}
		c.queue.enqueue(&workItem{kind: topicMessageItem, topic: env.Topic, msg: env.Msg})
	case opServiceResponse:
		response := ServiceResponse{
			Service: env.Service,
			Values:  env.Values,
			Result:  env.Result == nil || *env.Result,
		}
		if string(response.Values) == "null" {
			response.Values = nil
		}
		if env.ID != nil {
			response.ID = *env.ID
			c.services.markAnswered(response.ID)
			c.queue.enqueue(&workItem{kind: correlatedResponseItem, response: response})
			return
		}
		if env.Service == "" {
			logger.Warn("discarding service response without service and id")
			c.metrics.discarded(ctx, discardMissingField)
			return
		}
		item := &workItem{kind: legacyResponseItem, response: response}
		c.services.setLegacy(item)
		c.queue.enqueue(item)
	default:
		logger.Debug("discarding frame with unknown op", zap.String("op", env.Op))
		c.metrics.discarded(ctx, discardUnknownOp)
	}
}

// Bring the connection back to Idle when the server interrupts the current session.
func (c *Connection) onReadFailure(ctx context.Context, sessionID string, err error, logger *zap.Logger) {
	if ctx.Err() != nil {
		return
	}
	c.mu.Lock()
	if c.state != Open || c.sessionID != sessionID {
		// Disconnect in progress
		c.mu.Unlock()
		return
	}
	c.state = Idle
	c.lastErr = err
	c.mu.Unlock()
	// Responses received before the interruption stay deliverable
	dropped := c.services.dropUnanswered()
	logger.Warn("rosbridge connection interrupted", zap.Error(err), zap.Int("dropped_service_calls", dropped))
	closeCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	// Adapters usually drop the connection themselves when a read fails
	_ = c.conn.Close(closeCtx, transport.AbnormalClosure, "read failure")
}

/*************************************************************************************************/
/* SEND PATH                                                                                     */
/*************************************************************************************************/

// Encode and write a frame. Writes are serialized and bounded by WriteTimeoutMs.
func (c *Connection) send(ctx context.Context, op string, frame any) error {
	raw, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("failed to encode %s frame: %w", op, err)
	}
	if c.opts.WriteTimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(c.opts.WriteTimeoutMs)*time.Millisecond)
		defer cancel()
	}
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if err := c.conn.Write(ctx, transport.Text, raw); err != nil {
		return fmt.Errorf("failed to send %s frame: %w", op, err)
	}
	c.metrics.sent(ctx, op)
	return nil
}

// Send a control frame and log failures.
func (c *Connection) sendLogged(ctx context.Context, op string, frame any) {
	if err := c.send(ctx, op, frame); err != nil {
		c.logger.Warn("failed to send control frame", zap.String("op", op), zap.Error(err))
	}
}
