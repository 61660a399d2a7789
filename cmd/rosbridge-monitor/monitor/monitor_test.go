package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/gbdevw/gorosbridge/connmgr"
	"github.com/gbdevw/gorosbridge/msgs/geometrymsgs"
	"github.com/gbdevw/gorosbridge/msgs/sensormsgs"
	"github.com/gbdevw/gorosbridge/msgs/stdmsgs"
	"github.com/gbdevw/gorosbridge/msgs/tfmsgs"
	"github.com/gbdevw/gorosbridge/rosbridgetest"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"
)

// Test suite which runs a Monitor against a mock rosbridge server
type MonitorTestSuite struct {
	suite.Suite
	srv     *rosbridgetest.Server
	mgr     *connmgr.Manager
	monitor *Monitor
}

func TestMonitorTestSuite(t *testing.T) {
	suite.Run(t, new(MonitorTestSuite))
}

func (suite *MonitorTestSuite) SetupTest() {
	suite.srv = rosbridgetest.NewServer(zaptest.NewLogger(suite.T()))
	suite.srv.HandleService(TopicsService, func(args json.RawMessage) (any, bool) {
		return map[string]any{
			"topics": []string{JoyTopic, FixTopic},
			"types":  []string{sensormsgs.JoyType, sensormsgs.NavSatFixType},
		}, true
	})
	require.NoError(suite.T(), suite.srv.Start())
	mgr, err := connmgr.NewManager(nil, nil, zaptest.NewLogger(suite.T()), nil, nil)
	require.NoError(suite.T(), err)
	suite.mgr = mgr
	host, port := suite.srv.HostPort()
	monitor, err := NewMonitor(mgr, Options{
		Host:                host,
		Port:                port,
		PumpIntervalMs:      5,
		CmdVelIntervalMs:    20,
		ReconnectIntervalMs: 20,
	}, zaptest.NewLogger(suite.T()))
	require.NoError(suite.T(), err)
	suite.monitor = monitor
}

func (suite *MonitorTestSuite) TearDownTest() {
	suite.monitor.Stop(context.Background())
	suite.mgr.ShutdownAll(context.Background())
	suite.srv.Stop()
}

// Test NewMonitor rejects invalid inputs.
func (suite *MonitorTestSuite) TestNewMonitorInvalidInputs() {
	_, err := NewMonitor(nil, Options{PumpIntervalMs: 1, ReconnectIntervalMs: 1}, nil)
	require.Error(suite.T(), err)
	_, err = NewMonitor(suite.mgr, Options{PumpIntervalMs: 0, ReconnectIntervalMs: 1}, nil)
	require.Error(suite.T(), err)
	_, err = NewMonitor(suite.mgr, Options{PumpIntervalMs: 1, ReconnectIntervalMs: 1, CmdVelIntervalMs: -1}, nil)
	require.Error(suite.T(), err)
}

// Test Start fails when the server cannot be reached.
func (suite *MonitorTestSuite) TestStartWithoutServer() {
	require.NoError(suite.T(), suite.srv.Stop())
	require.Error(suite.T(), suite.monitor.Start(context.Background()))
}

// Test the monitor subscribes, advertises, lists topics, receives messages and publishes commands.
func (suite *MonitorTestSuite) TestMonitor() {
	require.NoError(suite.T(), suite.monitor.Start(context.Background()))
	require.Error(suite.T(), suite.monitor.Start(context.Background()))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	subscribes, err := suite.srv.WaitForFrames(ctx, "subscribe", 3)
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), JoyTopic, subscribes[0].Topic)
	require.Equal(suite.T(), sensormsgs.JoyType, subscribes[0].Type)
	require.Equal(suite.T(), FixTopic, subscribes[1].Topic)
	require.Equal(suite.T(), TFTopic, subscribes[2].Topic)
	require.Equal(suite.T(), tfmsgs.TFMessageType, subscribes[2].Type)
	advertises, err := suite.srv.WaitForFrames(ctx, "advertise", 1)
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), CmdVelTopic, advertises[0].Topic)
	require.Equal(suite.T(), geometrymsgs.TwistType, advertises[0].Type)
	// Messages
	require.NoError(suite.T(), suite.srv.Publish(JoyTopic, sensormsgs.Joy{Axes: []float32{0.5}, Buttons: []int32{1}}))
	require.NoError(suite.T(), suite.srv.Publish(FixTopic, sensormsgs.NavSatFix{Latitude: 50.8, Longitude: 4.35}))
	require.NoError(suite.T(), suite.srv.Publish(TFTopic, tfmsgs.TFMessage{Transforms: []geometrymsgs.TransformStamped{{
		Header:       stdmsgs.Header{FrameID: "map"},
		ChildFrameID: "base_link",
		Transform:    geometrymsgs.Transform{Rotation: geometrymsgs.IdentityQuaternion()},
	}}}))
	require.Eventually(suite.T(), func() bool {
		stats := suite.monitor.Stats()
		return stats.Joy == 1 && stats.Fix == 1 && stats.TF == 1 && stats.Responses == 1
	}, 5*time.Second, 10*time.Millisecond)
	// Commands
	suite.monitor.SetCmdVel(geometrymsgs.Twist{Linear: geometrymsgs.Vector3{X: 0.25}})
	require.Eventually(suite.T(), func() bool {
		for _, frame := range suite.srv.FramesWithOp("publish") {
			cmd := geometrymsgs.Twist{}
			if frame.Topic == CmdVelTopic && json.Unmarshal(frame.Msg, &cmd) == nil && cmd.Linear.X == 0.25 {
				return true
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)
	require.Positive(suite.T(), suite.monitor.Stats().Published)
	require.NoError(suite.T(), suite.monitor.Stop(context.Background()))
}

// Test the monitor reconnects and subscribes again after the server dropped the connection.
func (suite *MonitorTestSuite) TestReconnect() {
	require.NoError(suite.T(), suite.monitor.Start(context.Background()))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := suite.srv.WaitForFrames(ctx, "subscribe", 3)
	require.NoError(suite.T(), err)
	suite.srv.DropClients()
	_, err = suite.srv.WaitForFrames(ctx, "subscribe", 6)
	require.NoError(suite.T(), err)
	require.NoError(suite.T(), suite.srv.WaitForClients(ctx, 1))
	require.NoError(suite.T(), suite.srv.Publish(JoyTopic, sensormsgs.Joy{}))
	require.Eventually(suite.T(), func() bool {
		return suite.monitor.Stats().Joy == 1
	}, 5*time.Second, 10*time.Millisecond)
}
