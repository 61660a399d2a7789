package providers

import (
	"context"

	"github.com/gbdevw/gorosbridge/cmd/rosbridge-monitor/configuration"
	"github.com/gbdevw/gorosbridge/cmd/rosbridge-monitor/monitor"
	"github.com/gbdevw/gorosbridge/connmgr"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Provide the monitor and register start/stop hooks to start/stop it
func ProvideMonitor(
	lc fx.Lifecycle,
	config configuration.Configuration,
	mgr *connmgr.Manager,
	logger *zap.Logger) (*monitor.Monitor, error) {
	mon, err := monitor.NewMonitor(mgr, monitor.Options{
		Host:                config.Host,
		Port:                config.Port,
		PumpIntervalMs:      config.PumpIntervalMs,
		CmdVelIntervalMs:    config.CmdVelIntervalMs,
		ReconnectIntervalMs: config.ReconnectIntervalMs,
	}, logger.Named("monitor"))
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return mon.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return mon.Stop(ctx)
		},
	})
	return mon, nil
}
