package rosbridge

import (
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

/*************************************************************************************************/
/* TRACING RELATED CONSTANTS                                                                     */
/*************************************************************************************************/

// Constants used for tracing purpose.
const (
	// Package name used by library tracer and meter
	pkgName = "gorosbridge.rosbridge"
	// Package version
	pkgVersion = "0.1.0"

	// Namespace used by spans, events, attributes and metrics
	namespace = "rosbridge"

	// Name of span used to trace Connect public method
	spanConnect = namespace + ".connect"
	// Name of span used to trace Disconnect public method
	spanDisconnect = namespace + ".disconnect"
	// Name of span used to trace Publish public method
	spanPublish = namespace + ".publish"
	// Name of span used to trace CallService and CallServiceUncorrelated public methods
	spanCallService = namespace + ".call_service"
	// Name of span used to trace RegisterSubscriber and RegisterPublisher public methods
	spanRegister = namespace + ".register"
	// Name of span used to trace Pump public method
	spanPump = namespace + ".pump"

	// Event used in span to signal the connection was already open
	eventAlreadyOpen = namespace + ".already_open"

	// Attribute used to store the server URL
	attrURL = namespace + ".url"
	// Attribute used to store the connection session ID
	attrSessionID = namespace + ".session_id"
	// Attribute used to store a topic name
	attrTopic = namespace + ".topic"
	// Attribute used to store a wire type name
	attrWireType = namespace + ".type"
	// Attribute used to store a service name
	attrService = namespace + ".service"
	// Attribute used to store a correlation id
	attrCorrelationID = namespace + ".id"
	// Attribute used to store the number of items drained by the pump
	attrItemCount = namespace + ".item_count"
)

/*************************************************************************************************/
/* TRACING UTILITIES                                                                             */
/*************************************************************************************************/

// # Description
//
// Helper function which records the provided error in the provided span and sets the span status
// with the provided code and description. The function returns the provided error.
func handleError(err error, span trace.Span, code codes.Code, description string) error {
	span.RecordError(err)
	span.SetStatus(code, description)
	return err
}

// # Description
//
// If the error is not nil, the function records the input error in the provided span and set the
// span status with an error code and description. In the other case, the span status is set with
// a Ok code. The function returns the provided error in all cases.
func handlePotentialError(err error, span trace.Span) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, codes.Error.String())
		return err
	}
	span.SetStatus(codes.Ok, codes.Ok.String())
	return nil
}
