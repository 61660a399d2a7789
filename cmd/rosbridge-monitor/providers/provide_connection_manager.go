package providers

import (
	"context"

	"github.com/gbdevw/gorosbridge/cmd/rosbridge-monitor/configuration"
	"github.com/gbdevw/gorosbridge/connmgr"
	"github.com/gbdevw/gorosbridge/transport"
	wsgorilla "github.com/gbdevw/gorosbridge/transport/gorilla"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Provide the connection manager and register a stop hook which disconnects all connections
func ProvideConnectionManager(
	lc fx.Lifecycle,
	config configuration.Configuration,
	logger *zap.Logger,
	tracerProvider trace.TracerProvider) (*connmgr.Manager, error) {
	factory := connmgr.NhooyrAdapterFactory
	if config.Adapter == "gorilla" {
		factory = func() transport.ConnectionAdapter {
			return wsgorilla.NewGorillaConnectionAdapter(nil, nil, 0)
		}
	}
	mgr, err := connmgr.NewManager(nil, factory, logger, tracerProvider, nil)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return mgr.ShutdownAll(ctx)
		},
	})
	return mgr, nil
}
