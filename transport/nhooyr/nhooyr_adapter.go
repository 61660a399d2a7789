// Package wsnhooyr contains a transport.ConnectionAdapter implementation for nhooyr/websocket
// library (https://github.com/nhooyr/websocket).
package wsnhooyr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/gbdevw/gorosbridge/transport"
	"nhooyr.io/websocket"
)

// Default maximum size of a message read from the server (bytes). nhooyr defaults to 32KiB which
// is too small for common rosbridge payloads like tf trees, point clouds or occupancy grids.
const DefaultReadLimit int64 = 16 * 1024 * 1024

// Adapter for nhooyr/websocket library
type NhooyrConnectionAdapter struct {
	// Underlying websocket connection
	conn *websocket.Conn
	// Dial options to use when opening a connection
	opts *websocket.DialOptions
	// Maximum size of messages read from the server
	readLimit int64
	// Internal mutex
	mu sync.Mutex
}

// # Description
//
// Factory which creates a new NhooyrConnectionAdapter.
//
// # Inputs
//
//   - opts: Optional dial options to use when calling Dial method. Can be nil.
//   - readLimit: Maximum size of a read message (bytes). DefaultReadLimit is used if <= 0.
//
// # Returns
//
// New NhooyrConnectionAdapter
func NewNhooyrConnectionAdapter(opts *websocket.DialOptions, readLimit int64) *NhooyrConnectionAdapter {
	if readLimit <= 0 {
		readLimit = DefaultReadLimit
	}
	return &NhooyrConnectionAdapter{
		conn:      nil,
		opts:      opts,
		readLimit: readLimit,
		mu:        sync.Mutex{},
	}
}

// Dial opens a connection to the websocket server and performs a WebSocket handshake.
func (adapter *NhooyrConnectionAdapter) Dial(ctx context.Context, target url.URL) (*http.Response, error) {
	select {
	case <-ctx.Done():
		// Shortcut if context is done (timeout/cancel)
		return nil, ctx.Err()
	default:
		adapter.mu.Lock()
		defer adapter.mu.Unlock()
		if adapter.conn != nil {
			return nil, fmt.Errorf("a connection has already been established")
		}
		conn, res, err := websocket.Dial(ctx, target.String(), adapter.opts)
		if err != nil {
			return res, err
		}
		conn.SetReadLimit(adapter.readLimit)
		adapter.conn = conn
		return res, nil
	}
}

// Close sends a close message with the provided status code and reason and drops the connection.
func (adapter *NhooyrConnectionAdapter) Close(ctx context.Context, code transport.StatusCode, reason string) error {
	adapter.mu.Lock()
	conn := adapter.conn
	adapter.conn = nil
	adapter.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("close failed because no connection is up")
	}
	// Close waits for the close handshake which is completed by the concurrent reader, so it is
	// called without holding the adapter mutex.
	err := conn.Close(websocket.StatusCode(code), reason)
	if err != nil && websocket.CloseStatus(err) != -1 {
		// Peer has already closed the connection: the handshake is complete.
		return nil
	}
	return err
}

// Read a single message from the websocket server. Read blocks until a message is received
// or until connection closes.
func (adapter *NhooyrConnectionAdapter) Read(ctx context.Context) (transport.MessageType, []byte, error) {
	select {
	case <-ctx.Done():
		return -1, nil, ctx.Err()
	default:
		adapter.mu.Lock()
		conn := adapter.conn
		adapter.mu.Unlock()
		if conn == nil {
			return -1, nil, transport.CloseError{
				Code:   transport.AbnormalClosure,
				Reason: "no connection is up",
			}
		}
		nhooyrMsgType, msg, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == -1 && !errors.Is(err, io.EOF) && ctx.Err() == nil {
				// Not a closure: protocol or read limit error
				return -1, nil, err
			}
			// Drop the existing connection so a new one can be established
			adapter.dropConnection(conn)
			if status == -1 {
				return -1, nil, transport.CloseError{
					Code:   transport.AbnormalClosure,
					Reason: "websocket connection abnormal closure",
					Err:    err,
				}
			}
			return -1, nil, transport.CloseError{
				Code:   transport.StatusCode(status),
				Reason: err.Error(),
				Err:    err,
			}
		}
		if nhooyrMsgType == websocket.MessageText {
			return transport.Text, msg, nil
		}
		return transport.Binary, msg, nil
	}
}

// Write a single message to the websocket server.
func (adapter *NhooyrConnectionAdapter) Write(ctx context.Context, msgType transport.MessageType, msg []byte) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		adapter.mu.Lock()
		conn := adapter.conn
		adapter.mu.Unlock()
		if conn == nil {
			return fmt.Errorf("write failed because no connection is up")
		}
		nhooyrMsgType := websocket.MessageBinary
		if msgType == transport.Text {
			nhooyrMsgType = websocket.MessageText
		}
		return conn.Write(ctx, nhooyrMsgType, msg)
	}
}

// Unset the internal connection if it is still the provided one.
func (adapter *NhooyrConnectionAdapter) dropConnection(conn *websocket.Conn) {
	adapter.mu.Lock()
	defer adapter.mu.Unlock()
	if adapter.conn == conn {
		adapter.conn = nil
	}
}
