// Package wsgorilla contains a transport.ConnectionAdapter implementation for gorilla/websocket
// library (https://github.com/gorilla/websocket).
package wsgorilla

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gbdevw/gorosbridge/transport"
	"github.com/gorilla/websocket"
)

// Delay granted to write the close message before the underlying connection is dropped.
const closeWriteTimeout = 5 * time.Second

// Adapter for gorilla/websocket library
type GorillaConnectionAdapter struct {
	// Underlying websocket connection
	conn *websocket.Conn
	// Dialer to use when opening a connection
	dialer *websocket.Dialer
	// Headers to use when opening a connection
	requestHeader http.Header
	// Maximum size of messages read from the server. 0 means no limit.
	readLimit int64
	// Internal mutex which protects conn
	mu sync.Mutex
	// gorilla supports one concurrent writer only
	writeMu sync.Mutex
}

// # Description
//
// Factory which creates a new GorillaConnectionAdapter.
//
// # Inputs
//
//   - dialer: Optional dialer to use when using Dial method. If nil, the default dialer
//     defined by gorilla library will be used.
//   - requestHeader: Headers which will be used during Dial (Origin, Cookie, ...). Can be nil.
//   - readLimit: Maximum size of a read message (bytes). 0 disables the limit.
//
// # Returns
//
// New GorillaConnectionAdapter
func NewGorillaConnectionAdapter(dialer *websocket.Dialer, requestHeader http.Header, readLimit int64) *GorillaConnectionAdapter {
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	return &GorillaConnectionAdapter{
		conn:          nil,
		dialer:        dialer,
		requestHeader: requestHeader,
		readLimit:     readLimit,
	}
}

// Dial opens a connection to the websocket server and performs a WebSocket handshake.
func (adapter *GorillaConnectionAdapter) Dial(ctx context.Context, target url.URL) (*http.Response, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
		adapter.mu.Lock()
		defer adapter.mu.Unlock()
		if adapter.conn != nil {
			return nil, fmt.Errorf("a connection has already been established")
		}
		conn, res, err := adapter.dialer.DialContext(ctx, target.String(), adapter.requestHeader)
		if err != nil {
			return res, err
		}
		if adapter.readLimit > 0 {
			conn.SetReadLimit(adapter.readLimit)
		}
		adapter.conn = conn
		return res, nil
	}
}

// Close sends a close message and drops the underlying network connection, which unblocks a
// pending Read call.
func (adapter *GorillaConnectionAdapter) Close(ctx context.Context, code transport.StatusCode, reason string) error {
	adapter.mu.Lock()
	conn := adapter.conn
	adapter.conn = nil
	adapter.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("close failed because no connection is up")
	}
	deadline := time.Now().Add(closeWriteTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	err := conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(int(code), reason), deadline)
	if errors.Is(err, websocket.ErrCloseSent) {
		err = nil
	}
	return errors.Join(err, ignoreClosed(conn.Close()))
}

// Read a single message from the websocket server. Control frames are processed by gorilla
// handlers: pings are answered and close messages result in a transport.CloseError. Canceling
// ctx while the read is blocked closes the connection and returns ctx.Err().
func (adapter *GorillaConnectionAdapter) Read(ctx context.Context) (transport.MessageType, []byte, error) {
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
		// gorilla reads ignore contexts: canceling ctx closes the connection, as nhooyr does
		stop := context.AfterFunc(ctx, func() { conn.Close() })
		defer stop()
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			// A gorilla connection cannot be read again after an error: drop it in all cases
			adapter.dropConnection(conn)
			conn.Close()
			if ctx.Err() != nil {
				return -1, nil, ctx.Err()
			}
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				return -1, nil, transport.CloseError{
					Code:   transport.StatusCode(ce.Code),
					Reason: ce.Text,
					Err:    err,
				}
			}
			return -1, nil, transport.CloseError{
				Code:   transport.AbnormalClosure,
				Reason: err.Error(),
				Err:    err,
			}
		}
		if msgType == websocket.TextMessage {
			return transport.Text, msg, nil
		}
		return transport.Binary, msg, nil
	}
}

// Write a single message to the websocket server.
func (adapter *GorillaConnectionAdapter) Write(ctx context.Context, msgType transport.MessageType, msg []byte) error {
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
		adapter.writeMu.Lock()
		defer adapter.writeMu.Unlock()
		if deadline, ok := ctx.Deadline(); ok {
			conn.SetWriteDeadline(deadline)
			defer conn.SetWriteDeadline(time.Time{})
		}
		gorillaMsgType := websocket.BinaryMessage
		if msgType == transport.Text {
			gorillaMsgType = websocket.TextMessage
		}
		return conn.WriteMessage(gorillaMsgType, msg)
	}
}

// Unset the internal connection if it is still the provided one.
func (adapter *GorillaConnectionAdapter) dropConnection(conn *websocket.Conn) {
	adapter.mu.Lock()
	defer adapter.mu.Unlock()
	if adapter.conn == conn {
		adapter.conn = nil
	}
}

func ignoreClosed(err error) error {
	if errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
