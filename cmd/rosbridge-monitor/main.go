// rosbridge-monitor connects to a rosbridge server, logs the /joy, /fix and /tf messages and
// publishes velocity commands on /cmd_vel. It is configured with ROSMON_* environment variables.
package main

import (
	"github.com/gbdevw/gorosbridge/cmd/rosbridge-monitor/configuration"
	"github.com/gbdevw/gorosbridge/cmd/rosbridge-monitor/providers"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		fx.Provide(providers.ProvideApplicationContext),
		fx.Provide(configuration.LoadConfiguration),
		fx.Provide(providers.ProvideLogger),
		fx.Provide(providers.ProvideTracerProvider),
		fx.Provide(providers.ProvideConnectionManager),
		// Invoke forces the monitor to be built so its hooks are registered. The manager hooks are
		// registered first so connections are shut down after the monitor stopped.
		fx.Invoke(providers.ProvideMonitor),
	).Run()
}
