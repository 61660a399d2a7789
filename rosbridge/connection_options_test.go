package rosbridge

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

/*************************************************************************************************/
/* TEST SUITES                                                                                   */
/*************************************************************************************************/

// Test suite used for ConnectionOptions unit tests
type ConnectionOptionsUnitTestSuite struct {
	suite.Suite
}

// Run ConnectionOptionsUnitTestSuite test suite
func TestConnectionOptionsUnitTestSuite(t *testing.T) {
	suite.Run(t, new(ConnectionOptionsUnitTestSuite))
}

/*************************************************************************************************/
/* UNIT TESTS                                                                                    */
/*************************************************************************************************/

// Test default values and setters
func (suite *ConnectionOptionsUnitTestSuite) TestSetters() {
	opts := NewConnectionOptions()
	require.Equal(suite.T(), int64(30000), opts.ConnectTimeoutMs)
	require.Equal(suite.T(), int64(10000), opts.DisconnectTimeoutMs)
	require.Equal(suite.T(), int64(5000), opts.WriteTimeoutMs)
	opts = opts.
		WithConnectTimeoutMs(1).
		WithDisconnectTimeoutMs(2).
		WithWriteTimeoutMs(0)
	require.Equal(suite.T(), &ConnectionOptions{ConnectTimeoutMs: 1, DisconnectTimeoutMs: 2, WriteTimeoutMs: 0}, opts)
}

// Test option validation
func (suite *ConnectionOptionsUnitTestSuite) TestValidate() {
	require.NoError(suite.T(), Validate(NewConnectionOptions()))
	require.NoError(suite.T(), Validate(&ConnectionOptions{}))
	require.Error(suite.T(), Validate(nil))
	err := Validate(NewConnectionOptions().WithConnectTimeoutMs(-1).WithDisconnectTimeoutMs(-1))
	require.Error(suite.T(), err)
	validationErrs, ok := err.(validator.ValidationErrors)
	require.True(suite.T(), ok)
	require.Len(suite.T(), validationErrs, 2)
}
