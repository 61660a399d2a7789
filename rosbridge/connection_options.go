package rosbridge

import (
	"github.com/go-playground/validator/v10"
)

// Defines configuration options for a rosbridge connection.
//
// Use the factory function to get a new instance of the struct with nice defaults and then modify
// settings using With*** methods.
type ConnectionOptions struct {
	// Delay to open the websocket connection (milliseconds).
	//
	// Defaults to 30000 (30 seconds) - 0 disables the timeout.
	ConnectTimeoutMs int64 `validate:"gte=0"`
	// Delay to send unsubscribe/unadvertise frames and close the connection (milliseconds).
	//
	// Defaults to 10000 (10 seconds) - 0 disables the timeout.
	DisconnectTimeoutMs int64 `validate:"gte=0"`
	// Delay to write a single frame (milliseconds).
	//
	// Defaults to 5000 (5 seconds) - 0 disables the timeout.
	WriteTimeoutMs int64 `validate:"gte=0"`
}

// # Description
//
// Set opts.ConnectTimeoutMs and return the modified object. The method does not validate inputs.
//
// # ConnectTimeoutMs
//
// This option defines the maximum delay (milliseconds) to open the websocket connection. A value
// of 0 disables the timeout.
//
// Must be greater or equal to 0. Defaults to 30 seconds (= 30000).
//
// # Return
//
// The modified options.
func (opts *ConnectionOptions) WithConnectTimeoutMs(value int64) *ConnectionOptions {
	opts.ConnectTimeoutMs = value
	return opts
}

// # Description
//
// Set opts.DisconnectTimeoutMs and return the modified object. The method does not validate
// inputs.
//
// # DisconnectTimeoutMs
//
// This option defines the maximum delay (milliseconds) granted to send unsubscribe and
// unadvertise frames and to close the websocket connection. A value of 0 disables the timeout.
//
// Must be greater or equal to 0. Defaults to 10 seconds (= 10000).
//
// # Return
//
// The modified options.
func (opts *ConnectionOptions) WithDisconnectTimeoutMs(value int64) *ConnectionOptions {
	opts.DisconnectTimeoutMs = value
	return opts
}

// # Description
//
// Set opts.WriteTimeoutMs and return the modified object. The method does not validate inputs.
//
// # WriteTimeoutMs
//
// This option defines the maximum delay (milliseconds) to write a single frame. A value of 0
// disables the timeout.
//
// Must be greater or equal to 0. Defaults to 5 seconds (= 5000).
//
// # Return
//
// The modified options.
func (opts *ConnectionOptions) WithWriteTimeoutMs(value int64) *ConnectionOptions {
	opts.WriteTimeoutMs = value
	return opts
}

// # Description
//
// Factory which creates a new ConnectionOptions object with nice defaults. Settings can then be
// modified by the user by using With*** methods.
//
// # Default settings
//
//   - ConnectTimeoutMs = 30000 (30 seconds).
//   - DisconnectTimeoutMs = 10000 (10 seconds).
//   - WriteTimeoutMs = 5000 (5 seconds).
func NewConnectionOptions() *ConnectionOptions {
	return &ConnectionOptions{
		ConnectTimeoutMs:    30000,
		DisconnectTimeoutMs: 10000,
		WriteTimeoutMs:      5000,
	}
}

// # Description
//
// Helper function which validates ConnectionOptions. Options are valid if:
//   - opts is not nil
//   - opts.ConnectTimeoutMs is greater or equal to 0
//   - opts.DisconnectTimeoutMs is greater or equal to 0
//   - opts.WriteTimeoutMs is greater or equal to 0
//
// # Returns
//
// InvalidValidationError for bad values passed in and nil or ValidationErrors as error otherwise.
// You will need to assert the error if it's not nil eg. err.(validator.ValidationErrors) to access
// the array of errors.
func Validate(opts *ConnectionOptions) error {
	return validator.New().Struct(opts)
}
