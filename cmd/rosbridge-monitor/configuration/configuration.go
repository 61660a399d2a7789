// Package configuration loads the rosbridge-monitor configuration from defaults and ROSMON_*
// environment variables.
package configuration

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Prefix of the environment variables which override the defaults (ROSMON_HOST -> host).
const EnvPrefix = "ROSMON_"

type Configuration struct {
	// Host of the rosbridge server
	Host string `koanf:"host" validate:"required"`
	// Port of the rosbridge server
	Port int `koanf:"port" validate:"gte=1,lte=65535"`
	// Websocket library used by connections: nhooyr or gorilla
	Adapter string `koanf:"adapter" validate:"oneof=nhooyr gorilla"`
	// Delay between two pumps (milliseconds)
	PumpIntervalMs int64 `koanf:"pump_interval_ms" validate:"gt=0"`
	// Delay between two /cmd_vel publications (milliseconds) - 0 disables publishing
	CmdVelIntervalMs int64 `koanf:"cmd_vel_interval_ms" validate:"gte=0"`
	// Delay between two reconnection attempts after the server dropped the connection (milliseconds)
	ReconnectIntervalMs int64 `koanf:"reconnect_interval_ms" validate:"gt=0"`
	// Use a production logger instead of a development logger
	Production bool `koanf:"production"`
	// Indicates whether traces are exported
	TracingEnabled bool `koanf:"tracing_enabled"`
	// host:port of the OTLP HTTP tracing backend
	TracingEndpoint string `koanf:"tracing_endpoint" validate:"required_if=TracingEnabled true"`
}

// Default configuration: local rosbridge server, pump at 50Hz, /cmd_vel at 2Hz, no tracing.
func Defaults() Configuration {
	return Configuration{
		Host:                "localhost",
		Port:                9090,
		Adapter:             "nhooyr",
		PumpIntervalMs:      20,
		CmdVelIntervalMs:    500,
		ReconnectIntervalMs: 2000,
		Production:          false,
		TracingEnabled:      false,
		TracingEndpoint:     "localhost:4318",
	}
}

// # Description
//
// Load the configuration: defaults first, then ROSMON_* environment variables. The loaded
// configuration is validated.
//
// # Returns
//
// The loaded configuration or an error if it could not be loaded or is invalid.
func LoadConfiguration() (Configuration, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return Configuration{}, fmt.Errorf("failed to load defaults: %w", err)
	}
	envProvider := env.Provider(EnvPrefix, ".", func(key string) string {
		return strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Configuration{}, fmt.Errorf("failed to load environment variables: %w", err)
	}
	config := Configuration{}
	if err := k.Unmarshal("", &config); err != nil {
		return Configuration{}, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := validator.New().Struct(config); err != nil {
		return Configuration{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}
