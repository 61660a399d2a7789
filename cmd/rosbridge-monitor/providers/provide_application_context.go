package providers

import (
	"context"

	"go.uber.org/fx"
)

// Provide a context which is canceled when the application stops
func ProvideApplicationContext(lc fx.Lifecycle) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
	return ctx
}
