// Package transport defines the websocket connection adapter used by a rosbridge connection and
// the types shared by its implementations.
package transport

import (
	"context"
	"net/http"
	"net/url"
)

// Interface which describes the adapter methods and behaviour that a rosbridge connection expects
// from the underlying websocket library.
//
// Adapters are assumed to be thread-safe: Write can be called concurrently with Read and Close.
// Thread safety must be ensured either by the adapter implementation or by the underlying
// websocket library.
type ConnectionAdapter interface {
	// # Description
	//
	// Dial opens a connection to the websocket server and performs a WebSocket handshake.
	//
	// # Expected behaviour
	//
	//	- Dial MUST block until websocket handshake is complete or ctx is done.
	//
	//	- Dial MUST keep the underlying websocket connection internally so it can be used by the
	//	  other adapter methods.
	//
	//	- Dial MUST return an error in case a connection has already been established and Close
	//	  method has not been called yet.
	//
	// # Returns
	//
	// The server response to websocket handshake or an error if any.
	Dial(ctx context.Context, target url.URL) (*http.Response, error)
	// # Description
	//
	// Send a close message with the provided status code and reason and drop the websocket
	// connection.
	//
	// # Expected behaviour
	//
	//	- Close MUST unblock a pending Read call.
	//	- Close MUST drop the connection even if the close message could not be sent, so Dial
	//	  can be called again.
	//	- Close MUST return an error in case there is no connection to close.
	Close(ctx context.Context, code StatusCode, reason string) error
	// # Description
	//
	// Read a single message from the websocket server. Read blocks until a message is received
	// or until connection closes.
	//
	// # Expected behaviour
	//
	//	- Read MUST NOT return control frames.
	//
	//	- Read MUST return a CloseError either if a close message is read or if connection is
	//	  closed without a close message. In the later case, the 1006 status code MUST be used.
	//	  Read MUST then drop the connection so a new one can be established.
	Read(ctx context.Context) (MessageType, []byte, error)
	// # Description
	//
	// Write a single message to the websocket server. Write blocks until message is sent or until
	// an error occurs: context timeout, cancellation, connection closed, ...
	Write(ctx context.Context, msgType MessageType, msg []byte) error
}
