package configuration

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// Test suite for LoadConfiguration
type ConfigurationTestSuite struct {
	suite.Suite
}

func TestConfigurationTestSuite(t *testing.T) {
	suite.Run(t, new(ConfigurationTestSuite))
}

// Test defaults are used when no environment variable is set.
func (suite *ConfigurationTestSuite) TestDefaults() {
	config, err := LoadConfiguration()
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), Defaults(), config)
}

// Test environment variables override defaults.
func (suite *ConfigurationTestSuite) TestEnvironmentOverrides() {
	suite.T().Setenv("ROSMON_HOST", "robot.local")
	suite.T().Setenv("ROSMON_PORT", "9091")
	suite.T().Setenv("ROSMON_ADAPTER", "gorilla")
	suite.T().Setenv("ROSMON_CMD_VEL_INTERVAL_MS", "0")
	suite.T().Setenv("ROSMON_TRACING_ENABLED", "true")
	suite.T().Setenv("ROSMON_TRACING_ENDPOINT", "collector:4318")
	config, err := LoadConfiguration()
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), "robot.local", config.Host)
	require.Equal(suite.T(), 9091, config.Port)
	require.Equal(suite.T(), "gorilla", config.Adapter)
	require.Equal(suite.T(), int64(0), config.CmdVelIntervalMs)
	require.True(suite.T(), config.TracingEnabled)
	require.Equal(suite.T(), "collector:4318", config.TracingEndpoint)
	require.Equal(suite.T(), Defaults().PumpIntervalMs, config.PumpIntervalMs)
}

// Test invalid configurations are rejected.
func (suite *ConfigurationTestSuite) TestInvalidConfiguration() {
	suite.T().Setenv("ROSMON_ADAPTER", "stdlib")
	_, err := LoadConfiguration()
	require.Error(suite.T(), err)
	suite.T().Setenv("ROSMON_ADAPTER", "nhooyr")
	suite.T().Setenv("ROSMON_PORT", "70000")
	_, err = LoadConfiguration()
	require.Error(suite.T(), err)
	suite.T().Setenv("ROSMON_PORT", "9090")
	suite.T().Setenv("ROSMON_PUMP_INTERVAL_MS", "0")
	_, err = LoadConfiguration()
	require.Error(suite.T(), err)
}
