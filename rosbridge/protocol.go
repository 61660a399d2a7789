package rosbridge

import (
	json "github.com/goccy/go-json"
)

// rosbridge operations
const (
	opSubscribe       = "subscribe"
	opUnsubscribe     = "unsubscribe"
	opAdvertise       = "advertise"
	opUnadvertise     = "unadvertise"
	opPublish         = "publish"
	opCallService     = "call_service"
	opServiceResponse = "service_response"
	// Metric value for inbound ops the client does not handle
	opUnknown = "unknown"
)

// Op recorded by the received frames counter. Ops sent by the server are not trusted as metric
// values: only the handled ones are kept.
func receivedOp(op string) string {
	switch op {
	case opPublish, opServiceResponse:
		return op
	default:
		return opUnknown
	}
}

/*************************************************************************************************/
/* OUTBOUND FRAMES                                                                               */
/*************************************************************************************************/

// subscribe and advertise frames
type typedTopicFrame struct {
	Op    string `json:"op"`
	Topic string `json:"topic"`
	Type  string `json:"type"`
}

// unsubscribe and unadvertise frames
type topicFrame struct {
	Op    string `json:"op"`
	Topic string `json:"topic"`
}

type publishFrame struct {
	Op    string          `json:"op"`
	Topic string          `json:"topic"`
	Msg   json.RawMessage `json:"msg"`
}

type callServiceFrame struct {
	Op      string          `json:"op"`
	Service string          `json:"service"`
	ID      string          `json:"id,omitempty"`
	Args    json.RawMessage `json:"args,omitempty"`
}

/*************************************************************************************************/
/* INBOUND ENVELOPE                                                                              */
/*************************************************************************************************/

// Top-level fields of a frame received from the server. Payloads are kept raw: they are decoded
// by the pump, never by the receive loop.
type inboundEnvelope struct {
	Op      string          `json:"op"`
	Topic   string          `json:"topic"`
	Msg     json.RawMessage `json:"msg"`
	Service string          `json:"service"`
	ID      *string         `json:"id"`
	Values  json.RawMessage `json:"values"`
	Result  *bool           `json:"result"`
}
