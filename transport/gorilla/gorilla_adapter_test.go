package wsgorilla

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gbdevw/gorosbridge/rosbridgetest"
	"github.com/gbdevw/gorosbridge/transport"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

/*************************************************************************************************/
/* TEST SUITE                                                                                    */
/*************************************************************************************************/

type GorillaConnectionAdapterTestSuite struct {
	suite.Suite
	srv *rosbridgetest.Server
}

// Run GorillaConnectionAdapterTestSuite test suite
func TestGorillaConnectionAdapterTestSuite(t *testing.T) {
	suite.Run(t, new(GorillaConnectionAdapterTestSuite))
}

// Start a mock rosbridge server before each test
func (suite *GorillaConnectionAdapterTestSuite) SetupTest() {
	suite.srv = rosbridgetest.NewServer(nil)
	require.NoError(suite.T(), suite.srv.Start())
}

// Stop the mock rosbridge server after each test
func (suite *GorillaConnectionAdapterTestSuite) TearDownTest() {
	suite.srv.Stop()
}

/*************************************************************************************************/
/* UNIT TESTS                                                                                    */
/*************************************************************************************************/

// Test compliance with ConnectionAdapter
func (suite *GorillaConnectionAdapterTestSuite) TestInterfaceCompliance() {
	var instance any = NewGorillaConnectionAdapter(nil, nil, 0)
	_, ok := instance.(transport.ConnectionAdapter)
	require.True(suite.T(), ok)
}

// Test Dial when there is already an active connection
func (suite *GorillaConnectionAdapterTestSuite) TestDialWhenAlreadyConnected() {
	adapter := NewGorillaConnectionAdapter(nil, nil, 0)
	timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	resp, err := adapter.Dial(timeoutCtx, *suite.srv.URL())
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), resp)
	resp, err = adapter.Dial(timeoutCtx, *suite.srv.URL())
	require.Error(suite.T(), err)
	require.Nil(suite.T(), resp)
	require.NoError(suite.T(), adapter.Close(timeoutCtx, transport.NormalClosure, "bye"))
	require.NoError(suite.T(), suite.srv.WaitForClients(timeoutCtx, 0))
}

// Test Dial when there is no server
func (suite *GorillaConnectionAdapterTestSuite) TestDialWithoutPeer() {
	target := suite.srv.URL()
	suite.srv.Stop()
	adapter := NewGorillaConnectionAdapter(nil, nil, 0)
	_, err := adapter.Dial(context.Background(), *target)
	require.Error(suite.T(), err)
}

// Test Dial with a canceled context
func (suite *GorillaConnectionAdapterTestSuite) TestDialCanceled() {
	adapter := NewGorillaConnectionAdapter(nil, nil, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := adapter.Dial(ctx, *suite.srv.URL())
	require.ErrorIs(suite.T(), err, context.Canceled)
}

// Test frames written by the adapter reach the server and frames sent by the server are read
func (suite *GorillaConnectionAdapterTestSuite) TestWriteAndRead() {
	adapter := NewGorillaConnectionAdapter(nil, nil, 0)
	timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	_, err := adapter.Dial(timeoutCtx, *suite.srv.URL())
	require.NoError(suite.T(), err)
	require.NoError(suite.T(), suite.srv.WaitForClients(timeoutCtx, 1))
	// Write
	err = adapter.Write(timeoutCtx, transport.Text, []byte(`{"op":"subscribe","topic":"/chatter","type":"std_msgs/String"}`))
	require.NoError(suite.T(), err)
	frames, err := suite.srv.WaitForFrames(timeoutCtx, "subscribe", 1)
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), "/chatter", frames[0].Topic)
	require.Equal(suite.T(), "std_msgs/String", frames[0].Type)
	// Read
	require.NoError(suite.T(), suite.srv.Publish("/chatter", map[string]string{"data": "hello"}))
	msgType, msg, err := adapter.Read(timeoutCtx)
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), transport.Text, msgType)
	require.JSONEq(suite.T(), `{"op":"publish","topic":"/chatter","msg":{"data":"hello"}}`, string(msg))
	require.NoError(suite.T(), adapter.Close(timeoutCtx, transport.NormalClosure, "bye"))
}

// Test Read returns a CloseError when the server drops the connection and that a new connection
// can be established afterwards
func (suite *GorillaConnectionAdapterTestSuite) TestReadAfterRemoteDrop() {
	adapter := NewGorillaConnectionAdapter(nil, nil, 0)
	timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	_, err := adapter.Dial(timeoutCtx, *suite.srv.URL())
	require.NoError(suite.T(), err)
	require.NoError(suite.T(), suite.srv.WaitForClients(timeoutCtx, 1))
	suite.srv.DropClients()
	_, _, err = adapter.Read(timeoutCtx)
	closeErr := new(transport.CloseError)
	require.True(suite.T(), errors.As(err, closeErr))
	require.Equal(suite.T(), transport.AbnormalClosure, closeErr.Code)
	// Connection has been dropped: Close fails and Dial succeeds
	require.Error(suite.T(), adapter.Close(timeoutCtx, transport.NormalClosure, "bye"))
	_, err = adapter.Dial(timeoutCtx, *suite.srv.URL())
	require.NoError(suite.T(), err)
	require.NoError(suite.T(), adapter.Close(timeoutCtx, transport.NormalClosure, "bye"))
}

// Test Close unblocks a pending Read
func (suite *GorillaConnectionAdapterTestSuite) TestCloseUnblocksRead() {
	adapter := NewGorillaConnectionAdapter(nil, nil, 0)
	timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	_, err := adapter.Dial(timeoutCtx, *suite.srv.URL())
	require.NoError(suite.T(), err)
	readErr := make(chan error, 1)
	go func() {
		_, _, err := adapter.Read(timeoutCtx)
		readErr <- err
	}()
	time.Sleep(100 * time.Millisecond)
	require.NoError(suite.T(), adapter.Close(timeoutCtx, transport.GoingAway, "bye"))
	select {
	case err := <-readErr:
		require.Error(suite.T(), err)
	case <-timeoutCtx.Done():
		suite.FailNow("pending read has not been unblocked by Close")
	}
}

// Test canceling the context of a pending read unblocks it and drops the connection
func (suite *GorillaConnectionAdapterTestSuite) TestReadCanceled() {
	adapter := NewGorillaConnectionAdapter(nil, nil, 0)
	timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	_, err := adapter.Dial(timeoutCtx, *suite.srv.URL())
	require.NoError(suite.T(), err)
	readCtx, cancelRead := context.WithCancel(timeoutCtx)
	readErr := make(chan error, 1)
	go func() {
		_, _, err := adapter.Read(readCtx)
		readErr <- err
	}()
	time.Sleep(100 * time.Millisecond)
	cancelRead()
	select {
	case err := <-readErr:
		require.ErrorIs(suite.T(), err, context.Canceled)
	case <-timeoutCtx.Done():
		suite.FailNow("pending read has not been unblocked by context cancellation")
	}
	require.Error(suite.T(), adapter.Write(timeoutCtx, transport.Text, []byte("{}")))
	require.NoError(suite.T(), suite.srv.WaitForClients(timeoutCtx, 0))
}

// Test Write and Close fail when no connection is up
func (suite *GorillaConnectionAdapterTestSuite) TestWithoutConnection() {
	adapter := NewGorillaConnectionAdapter(nil, nil, 0)
	require.Error(suite.T(), adapter.Write(context.Background(), transport.Text, []byte("{}")))
	require.Error(suite.T(), adapter.Close(context.Background(), transport.NormalClosure, ""))
	_, _, err := adapter.Read(context.Background())
	require.ErrorAs(suite.T(), err, new(transport.CloseError))
}
