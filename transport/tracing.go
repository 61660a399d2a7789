package transport

// Constants used for tracing purpose
const (
	// Instrumentation library package name
	pkgName = "gorosbridge.transport"
	// Instrumentation library package version
	pkgVersion = "0.1.0"
	// Namespace used by the spans, attributes and events
	namespace = "websocket"
	// Name of the span used to instrument Dial method call
	spanDial = namespace + ".dial"
	// Name of the span used to instrument Close method call
	spanClose = namespace + ".close"
	// Name of span used to instrument Write method call
	spanWrite = namespace + ".write"
	// Name of span used to instrument Read method call
	spanRead = namespace + ".read"

	// Name of event used when a message has been received
	eventReceived = namespace + ".message.received"

	// Name of the counter of payload bytes read
	metricBytesRead = namespace + ".bytes.read"
	// Name of the counter of payload bytes written
	metricBytesWritten = namespace + ".bytes.written"

	// Name of the attribute used to provide a url
	attrUrl = "url.full"
	// Name of the attribute used to provide the HTTP status of the handshake response
	attrStatusCode = "http.response.status_code"
	// Name of the attribute used to provide a close connection code
	attrCloseCode = namespace + ".close.code"
	// Name of the attribute used to provide a close connection reason
	attrCloseReason = namespace + ".close.reason"
	// Name of the attribute used to provide the message byte size
	attrMessageByteSize = namespace + ".message.size"
	// Name of the attribute used to provide the message frame opcode
	attrMessageType = namespace + ".message.opcode"
)
