package transport

import "fmt"

// Error used by adapters to signal the websocket connection has been closed.
type CloseError struct {
	// Status code used or received when connection has been closed. AbnormalClosure (1006) is
	// used when connection has been dropped without a close message.
	Code StatusCode
	// Optional close reason.
	Reason string
	// Embedded error returned by the underlying websocket library, if any.
	Err error
}

func (err CloseError) Error() string {
	return fmt.Sprintf("connection has been closed: %d - %s", err.Code, err.Reason)
}

func (err CloseError) Unwrap() error {
	return err.Err
}
