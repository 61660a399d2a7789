// Package connmgr contains a registry which keeps one rosbridge connection per server address,
// pumps all of them from the host main loop and disconnects them on shutdown.
package connmgr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gbdevw/gorosbridge/rosbridge"
	"github.com/gbdevw/gorosbridge/transport"
	wsnhooyr "github.com/gbdevw/gorosbridge/transport/nhooyr"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Returned by GetOrCreate once ShutdownAll has been called.
var ErrShutdown = errors.New("connection manager has been shut down")

// Creates the websocket connection adapter of a new connection.
type AdapterFactory func() transport.ConnectionAdapter

// Default adapter factory: nhooyr adapter with the default read limit.
func NhooyrAdapterFactory() transport.ConnectionAdapter {
	return wsnhooyr.NewNhooyrConnectionAdapter(nil, 0)
}

// Registry of rosbridge connections keyed by server address.
type Manager struct {
	// Protects connections, addresses, creating and shutdown
	mu sync.Mutex
	// Per-address locks serializing connection creation so exactly one connection exists per
	// address. A slow server only delays callers asking for the same address.
	creating map[string]*sync.Mutex
	// Connections by address
	connections map[string]*rosbridge.Connection
	// Addresses in creation order
	addresses []string
	// Set by ShutdownAll
	shutdown bool
	// Manager options
	opts Options
	// Adapter factory
	newAdapter AdapterFactory
	// Logger
	logger *zap.Logger
	// Tracer provider forwarded to connections
	tracerProvider trace.TracerProvider
	// Meter provider forwarded to connections
	meterProvider metric.MeterProvider
}

// # Description
//
// Factory which creates a new Manager.
//
// # Inputs
//
//   - opts: Manager options. If nil, default options are used.
//   - newAdapter: Factory used to create the adapter of each connection. If nil,
//     NhooyrAdapterFactory is used.
//   - logger: Logger to use. If nil, a Nop logger is used.
//   - tracerProvider: Tracer provider to use. If nil, global tracer provider is used.
//   - meterProvider: Meter provider to use. If nil, global meter provider is used.
//
// # Returns
//
// New Manager or an error if options are invalid.
func NewManager(
	opts *Options,
	newAdapter AdapterFactory,
	logger *zap.Logger,
	tracerProvider trace.TracerProvider,
	meterProvider metric.MeterProvider) (*Manager, error) {
	if opts == nil {
		opts = NewOptions()
	}
	if err := Validate(opts); err != nil {
		return nil, fmt.Errorf("invalid connection manager options: %w", err)
	}
	if newAdapter == nil {
		newAdapter = NhooyrAdapterFactory
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		connections:    map[string]*rosbridge.Connection{},
		addresses:      []string{},
		creating:       map[string]*sync.Mutex{},
		opts:           *opts,
		newAdapter:     newAdapter,
		logger:         logger,
		tracerProvider: tracerProvider,
		meterProvider:  meterProvider,
	}, nil
}

// Address of a rosbridge server: ws://host:port
func Address(host string, port int) string {
	return "ws://" + net.JoinHostPort(host, strconv.Itoa(port))
}

// # Description
//
// Return the open connection to the server, creating and connecting it if needed. Concurrent
// calls for the same address share one connection. A cached connection which has been
// interrupted by the server is connected again. A connection which fails to open is not cached.
// Calls for different addresses do not wait for each other.
//
// # Returns
//
// The connection, ErrShutdown once ShutdownAll has been called or the error which occurred while
// creating or connecting the connection.
func (m *Manager) GetOrCreate(ctx context.Context, host string, port int) (*rosbridge.Connection, error) {
	if host == "" || port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid rosbridge server address %s:%d", host, port)
	}
	address := Address(host, port)
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return nil, ErrShutdown
	}
	createMu, ok := m.creating[address]
	if !ok {
		createMu = &sync.Mutex{}
		m.creating[address] = createMu
	}
	m.mu.Unlock()
	createMu.Lock()
	defer createMu.Unlock()
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return nil, ErrShutdown
	}
	conn, cached := m.connections[address]
	m.mu.Unlock()
	if cached && conn.State() != rosbridge.Closed {
		if err := conn.Connect(ctx); err != nil {
			return nil, err
		}
		return conn, nil
	}
	target, err := url.Parse(address)
	if err != nil {
		return nil, fmt.Errorf("invalid rosbridge server address %s: %w", address, err)
	}
	m.logger.Info("opening rosbridge connection", zap.String("url", address))
	conn, err = rosbridge.NewConnection(*target, m.newAdapter(), m.opts.ConnectionOptions, m.logger, m.tracerProvider, m.meterProvider)
	if err != nil {
		return nil, err
	}
	if err := conn.Connect(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		// ShutdownAll ran while connecting
		if err := conn.Disconnect(ctx); err != nil {
			return nil, errors.Join(ErrShutdown, fmt.Errorf("failed to disconnect from %s: %w", address, err))
		}
		return nil, ErrShutdown
	}
	defer m.mu.Unlock()
	if !cached {
		m.addresses = append(m.addresses, address)
	}
	m.connections[address] = conn
	return conn, nil
}

// Registered connections, in creation order.
func (m *Manager) Connections() []*rosbridge.Connection {
	m.mu.Lock()
	defer m.mu.Unlock()
	conns := make([]*rosbridge.Connection, 0, len(m.addresses))
	for _, address := range m.addresses {
		conns = append(conns, m.connections[address])
	}
	return conns
}

// Call Pump on every registered connection, in creation order. Must be called from a single
// goroutine, usually once per tick of the host main loop.
//
// Returns the total number of delivered items.
func (m *Manager) PumpAll() int {
	dispatched := 0
	for _, conn := range m.Connections() {
		dispatched += conn.Pump()
	}
	return dispatched
}

// # Description
//
// Disconnect all registered connections concurrently and forget them. Later GetOrCreate calls
// fail with ErrShutdown.
//
// # Returns
//
// The errors returned by the connections Disconnect methods, joined.
func (m *Manager) ShutdownAll(ctx context.Context) error {
	m.mu.Lock()
	m.shutdown = true
	conns := make([]*rosbridge.Connection, 0, len(m.addresses))
	for _, address := range m.addresses {
		conns = append(conns, m.connections[address])
	}
	m.connections = map[string]*rosbridge.Connection{}
	m.addresses = []string{}
	m.mu.Unlock()
	if m.opts.ShutdownTimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(m.opts.ShutdownTimeoutMs)*time.Millisecond)
		defer cancel()
	}
	m.logger.Info("disconnecting rosbridge connections", zap.Int("count", len(conns)))
	errs := make([]error, len(conns))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, conn := range conns {
		i, conn := i, conn
		group.Go(func() error {
			if err := conn.Disconnect(groupCtx); err != nil {
				target := conn.URL()
				errs[i] = fmt.Errorf("failed to disconnect from %s: %w", target.String(), err)
			}
			return nil
		})
	}
	group.Wait()
	return errors.Join(errs...)
}
