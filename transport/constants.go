package transport

/*************************************************************************************************/
/* WEBSOCKET RELATED CONSTANTS                                                                   */
/*************************************************************************************************/

// RFC6455 close status codes used by rosbridge connections.
//
// RFC: https://www.rfc-editor.org/rfc/rfc6455.html#section-7.4.1
type StatusCode int

const (
	// 1000 - the purpose for which the connection was established has been fulfilled.
	NormalClosure StatusCode = 1000
	// 1001 - endpoint is going away (client disconnects, server shuts down).
	GoingAway StatusCode = 1001
	// 1002 - endpoint terminates the connection due to a protocol error.
	ProtocolError StatusCode = 1002
	// 1003 - endpoint received a type of data it cannot accept.
	UnsupportedData StatusCode = 1003
	// 1005 - reserved: no status code was present in the close frame.
	NoStatusReceived StatusCode = 1005
	// 1006 - reserved: connection was closed without a close frame.
	AbnormalClosure StatusCode = 1006
	// 1007 - message data not consistent with the message type.
	InvalidFramePayloadData StatusCode = 1007
	// 1008 - message violates the endpoint policy.
	PolicyViolation StatusCode = 1008
	// 1009 - message too big to be processed.
	MessageTooBig StatusCode = 1009
	// 1011 - server encountered an unexpected condition.
	InternalError StatusCode = 1011
)

// Websocket message types which can be exchanged. Values mimic RFC6455 frame opcodes.
//
// rosbridge exchanges JSON documents in Text messages. Binary messages are accepted on read for
// servers configured with a binary encoder but are never produced by the client.
type MessageType int

const (
	// Denotes a text message
	Text MessageType = iota + 1
	// Denotes a binary message
	Binary
)
