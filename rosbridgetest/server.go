// Package rosbridgetest provides a mock rosbridge websocket server which records the frames sent
// by clients and lets tests push frames to them.
package rosbridgetest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Frame is a JSON document received from a client, with the rosbridge fields tests usually
// assert on already extracted.
type Frame struct {
	// ID of the client session which has sent the frame
	ClientID string
	// rosbridge operation
	Op string `json:"op"`
	// Topic for subscribe, unsubscribe, advertise, unadvertise and publish ops
	Topic string `json:"topic,omitempty"`
	// Wire type for subscribe and advertise ops
	Type string `json:"type,omitempty"`
	// Service name for call_service ops
	Service string `json:"service,omitempty"`
	// Correlation id for call_service ops, if any
	ID *string `json:"id,omitempty"`
	// Message for publish ops
	Msg json.RawMessage `json:"msg,omitempty"`
	// Arguments for call_service ops
	Args json.RawMessage `json:"args,omitempty"`
	// Raw frame
	Raw []byte `json:"-"`
}

// ServiceHandler computes the values of a service response from call_service arguments. Returning
// false as second value makes the server reply with result=false.
type ServiceHandler func(args json.RawMessage) (any, bool)

// Mock rosbridge server
type Server struct {
	// Underlying http.Server
	httpServer *http.Server
	// Listener bound by Start
	listener net.Listener
	// Websocket upgrader
	upgrader websocket.Upgrader
	// Indicates that server has started
	started bool
	// Context bound to server lifetime
	serverCtx context.Context
	// Cancel function used to stop server
	cancelServerCtx context.CancelFunc
	// Internal mutex used to coordinate start/stop
	startMu sync.Mutex
	// Mutex which protects clients, frames, services and changed
	mu sync.Mutex
	// Connected client sessions
	clients map[string]*clientSession
	// Frames received from all clients, in arrival order
	frames []Frame
	// Registered service handlers
	services map[string]ServiceHandler
	// Closed and replaced each time frames or clients change
	changed chan struct{}
	// Running client sessions
	sessions sync.WaitGroup
	// Logger
	logger *zap.Logger
}

// A connected client
type clientSession struct {
	id   string
	conn *websocket.Conn
	// gorilla supports one concurrent writer only
	writeMu sync.Mutex
}

// # Description
//
// Factory which creates a new, non-started mock rosbridge server.
//
// # Inputs
//
//   - logger: Logger to use. If nil, a Nop logger is used.
func NewServer(logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	srv := &Server{
		upgrader: websocket.Upgrader{},
		clients:  map[string]*clientSession{},
		frames:   []Frame{},
		services: map[string]ServiceHandler{},
		changed:  make(chan struct{}),
		logger:   logger,
	}
	srv.httpServer = &http.Server{Handler: srv}
	return srv
}

// Start listening on an ephemeral localhost port.
func (srv *Server) Start() error {
	srv.startMu.Lock()
	defer srv.startMu.Unlock()
	if srv.started {
		return fmt.Errorf("server already started")
	}
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	srv.listener = listener
	srv.serverCtx, srv.cancelServerCtx = context.WithCancel(context.Background())
	srv.started = true
	go func() {
		err := srv.httpServer.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			srv.logger.Error("mock rosbridge server stopped", zap.Error(err))
		}
	}()
	return nil
}

// Stop the server and close all client connections.
func (srv *Server) Stop() error {
	srv.startMu.Lock()
	defer srv.startMu.Unlock()
	if !srv.started {
		return fmt.Errorf("server not started")
	}
	srv.started = false
	srv.cancelServerCtx()
	err := srv.httpServer.Close()
	srv.DropClients()
	srv.sessions.Wait()
	return err
}

// URL of the server (ws://127.0.0.1:<port>). Must be called after Start.
func (srv *Server) URL() *url.URL {
	return &url.URL{Scheme: "ws", Host: srv.listener.Addr().String()}
}

// Host and port the server listens on. Must be called after Start.
func (srv *Server) HostPort() (string, int) {
	addr := srv.listener.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port
}

// Register a handler which answers call_service requests for the provided service.
func (srv *Server) HandleService(service string, handler ServiceHandler) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	srv.services[service] = handler
}

// Frames received so far, in arrival order.
func (srv *Server) Frames() []Frame {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	return append([]Frame(nil), srv.frames...)
}

// Frames received so far with the provided op.
func (srv *Server) FramesWithOp(op string) []Frame {
	filtered := []Frame{}
	for _, frame := range srv.Frames() {
		if frame.Op == op {
			filtered = append(filtered, frame)
		}
	}
	return filtered
}

// Number of connected clients.
func (srv *Server) ClientCount() int {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	return len(srv.clients)
}

// Block until at least n frames with the provided op have been received or ctx is done.
func (srv *Server) WaitForFrames(ctx context.Context, op string, n int) ([]Frame, error) {
	return waitFor(ctx, srv, func() ([]Frame, bool) {
		frames := srv.FramesWithOp(op)
		return frames, len(frames) >= n
	})
}

// Block until exactly n clients are connected or ctx is done.
func (srv *Server) WaitForClients(ctx context.Context, n int) error {
	_, err := waitFor(ctx, srv, func() ([]Frame, bool) {
		return nil, srv.ClientCount() == n
	})
	return err
}

// Send a raw frame to every connected client.
func (srv *Server) Broadcast(msg []byte) error {
	srv.mu.Lock()
	clients := make([]*clientSession, 0, len(srv.clients))
	for _, client := range srv.clients {
		clients = append(clients, client)
	}
	srv.mu.Unlock()
	var errs []error
	for _, client := range clients {
		errs = append(errs, client.write(msg))
	}
	return errors.Join(errs...)
}

// Publish a message on a topic to every connected client.
func (srv *Server) Publish(topic string, msg any) error {
	raw, err := json.Marshal(map[string]any{"op": "publish", "topic": topic, "msg": msg})
	if err != nil {
		return err
	}
	return srv.Broadcast(raw)
}

// Abruptly drop all client connections without sending a close message.
func (srv *Server) DropClients() {
	srv.mu.Lock()
	clients := srv.clients
	srv.clients = map[string]*clientSession{}
	srv.notifyLocked()
	srv.mu.Unlock()
	for _, client := range clients {
		client.conn.Close()
	}
}

// Server handler which accepts incoming websocket connections.
func (srv *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := srv.upgrader.Upgrade(w, r, nil)
	if err != nil {
		srv.logger.Warn("failed to accept client connection", zap.Error(err))
		return
	}
	client := &clientSession{id: uuid.New().String(), conn: conn}
	srv.mu.Lock()
	srv.clients[client.id] = client
	srv.notifyLocked()
	srv.mu.Unlock()
	srv.logger.Debug("client connected", zap.String("client", client.id))
	sessionCtx, endSession := context.WithCancel(srv.serverCtx)
	srv.sessions.Add(1)
	go srv.closeWatchdog(sessionCtx, conn)
	go srv.runClientSession(client, endSession)
}

// Read client frames until the connection is closed.
func (srv *Server) runClientSession(client *clientSession, endSession context.CancelFunc) {
	defer srv.sessions.Done()
	defer func() {
		endSession()
		srv.mu.Lock()
		delete(srv.clients, client.id)
		srv.notifyLocked()
		srv.mu.Unlock()
		client.conn.Close()
	}()
	for {
		_, raw, err := client.conn.ReadMessage()
		if err != nil {
			srv.logger.Debug("client connection closed", zap.String("client", client.id), zap.Error(err))
			return
		}
		frame := Frame{}
		if err := json.Unmarshal(raw, &frame); err != nil {
			srv.logger.Warn("client sent an invalid frame", zap.String("client", client.id), zap.Error(err))
			continue
		}
		frame.ClientID = client.id
		frame.Raw = raw
		srv.mu.Lock()
		srv.frames = append(srv.frames, frame)
		handler := srv.services[frame.Service]
		srv.notifyLocked()
		srv.mu.Unlock()
		if frame.Op == "call_service" && handler != nil {
			srv.answerServiceCall(client, frame, handler)
		}
	}
}

func (srv *Server) answerServiceCall(client *clientSession, frame Frame, handler ServiceHandler) {
	values, result := handler(frame.Args)
	response := map[string]any{
		"op":      "service_response",
		"service": frame.Service,
		"values":  values,
		"result":  result,
	}
	if frame.ID != nil {
		response["id"] = *frame.ID
	}
	raw, err := json.Marshal(response)
	if err != nil {
		srv.logger.Error("failed to encode service response", zap.Error(err))
		return
	}
	if err := client.write(raw); err != nil {
		srv.logger.Warn("failed to send service response", zap.String("client", client.id), zap.Error(err))
	}
}

// Close the connection when the server stops.
func (srv *Server) closeWatchdog(ctx context.Context, conn *websocket.Conn) {
	<-ctx.Done()
	conn.Close()
}

func (srv *Server) notifyLocked() {
	close(srv.changed)
	srv.changed = make(chan struct{})
}

func (client *clientSession) write(msg []byte) error {
	client.writeMu.Lock()
	defer client.writeMu.Unlock()
	return client.conn.WriteMessage(websocket.TextMessage, msg)
}

func waitFor(ctx context.Context, srv *Server, cond func() ([]Frame, bool)) ([]Frame, error) {
	for {
		srv.mu.Lock()
		changed := srv.changed
		srv.mu.Unlock()
		if frames, ok := cond(); ok {
			return frames, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-changed:
		}
	}
}
