package connmgr

import (
	"github.com/gbdevw/gorosbridge/rosbridge"
	"github.com/go-playground/validator/v10"
)

// Defines configuration options for a connection Manager.
//
// Use the factory function to get a new instance of the struct with nice defaults and then modify
// settings using With*** methods.
type Options struct {
	// Options used by every connection created by the manager.
	//
	// Defaults to rosbridge.NewConnectionOptions(). Must not be nil.
	ConnectionOptions *rosbridge.ConnectionOptions `validate:"required"`
	// Delay granted to ShutdownAll to disconnect all connections (milliseconds).
	//
	// Defaults to 15000 (15 seconds) - 0 disables the timeout.
	ShutdownTimeoutMs int64 `validate:"gte=0"`
}

// # Description
//
// Set opts.ConnectionOptions and return the modified object. The method does not validate inputs.
//
// # Return
//
// The modified options.
func (opts *Options) WithConnectionOptions(value *rosbridge.ConnectionOptions) *Options {
	opts.ConnectionOptions = value
	return opts
}

// # Description
//
// Set opts.ShutdownTimeoutMs and return the modified object. The method does not validate inputs.
//
// # Return
//
// The modified options.
func (opts *Options) WithShutdownTimeoutMs(value int64) *Options {
	opts.ShutdownTimeoutMs = value
	return opts
}

// # Description
//
// Factory which creates a new Options object with nice defaults.
//
// # Default settings
//
//   - ConnectionOptions = rosbridge.NewConnectionOptions().
//   - ShutdownTimeoutMs = 15000 (15 seconds).
func NewOptions() *Options {
	return &Options{
		ConnectionOptions: rosbridge.NewConnectionOptions(),
		ShutdownTimeoutMs: 15000,
	}
}

// # Description
//
// Helper function which validates Options. Options are valid if:
//   - opts is not nil
//   - opts.ConnectionOptions is not nil and valid
//   - opts.ShutdownTimeoutMs is greater or equal to 0
func Validate(opts *Options) error {
	if err := validator.New().Struct(opts); err != nil {
		return err
	}
	return rosbridge.Validate(opts.ConnectionOptions)
}
