package providers

import (
	"github.com/gbdevw/gorosbridge/cmd/rosbridge-monitor/configuration"
	"go.uber.org/zap"
)

func ProvideLogger(config configuration.Configuration) (*zap.Logger, error) {
	if config.Production {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
