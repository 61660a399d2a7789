package rosbridge

import (
	"errors"
	"fmt"
)

/*************************************************************************************************/
/* SENTINEL ERRORS                                                                               */
/*************************************************************************************************/

var (
	// The operation has been dropped because the connection is not open. Nothing is queued or
	// retried: callers which do not care about delivery can ignore this error.
	ErrNotOpen = errors.New("rosbridge connection is not open")
	// The connection has been disconnected and cannot be used anymore.
	ErrClosed = errors.New("rosbridge connection is closed")
	// Topic name is empty.
	ErrInvalidTopic = errors.New("invalid topic name")
	// Service name is empty.
	ErrInvalidService = errors.New("invalid service name")
	// Correlation id is empty.
	ErrInvalidCorrelationID = errors.New("invalid correlation id")
)

/*************************************************************************************************/
/* CONNECT ERROR                                                                                 */
/*************************************************************************************************/

// Specific error type for errors which occur while the connection is opened.
type ConnectError struct {
	// Embedded error
	Err error
}

func (err ConnectError) Error() string {
	return fmt.Sprintf("rosbridge connection failed to open: %v", err.Err)
}

func (err ConnectError) Unwrap() error {
	return err.Err
}

/*************************************************************************************************/
/* CAPABILITY ERROR                                                                              */
/*************************************************************************************************/

// Error returned at registration time when a subscriber, a publisher declaration, a message or a
// service handler does not provide a required capability.
type CapabilityError struct {
	// Kind of the rejected registration: subscriber, publisher, message or service_handler
	Kind string
	// What is missing
	Reason string
}

func (err CapabilityError) Error() string {
	return fmt.Sprintf("invalid %s: %s", err.Kind, err.Reason)
}
