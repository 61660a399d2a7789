// Package monitor contains the main loop of rosbridge-monitor: it logs the joystick, GPS and tf
// messages received from a rosbridge server and publishes velocity commands.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gbdevw/gorosbridge/connmgr"
	"github.com/gbdevw/gorosbridge/msgs/geometrymsgs"
	"github.com/gbdevw/gorosbridge/msgs/sensormsgs"
	"github.com/gbdevw/gorosbridge/msgs/tfmsgs"
	"github.com/gbdevw/gorosbridge/rosbridge"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

// Topics and service used by the monitor
const (
	JoyTopic      = "/joy"
	FixTopic      = "/fix"
	TFTopic       = "/tf"
	CmdVelTopic   = "/cmd_vel"
	TopicsService = "/rosapi/topics"
)

// Counters of received messages
type Stats struct {
	Joy       int64
	Fix       int64
	TF        int64
	Responses int64
	Published int64
}

// Monitor options, all delays in milliseconds
type Options struct {
	Host                string
	Port                int
	PumpIntervalMs      int64
	CmdVelIntervalMs    int64
	ReconnectIntervalMs int64
}

type Monitor struct {
	mgr    *connmgr.Manager
	opts   Options
	logger *zap.Logger
	conn   *rosbridge.Connection
	// Counters are updated by the loop goroutine and read by Stats
	joy       atomic.Int64
	fix       atomic.Int64
	tf        atomic.Int64
	responses atomic.Int64
	published atomic.Int64
	// Last velocity command, guarded by cmdMu
	cmdMu  sync.Mutex
	cmdVel geometrymsgs.Twist
	// Loop management
	cancel context.CancelFunc
	done   chan struct{}
}

// # Description
//
// Factory which creates a new Monitor. The monitor does nothing until Start is called.
//
// # Inputs
//
//   - mgr: Connection manager used to get the connection to the rosbridge server.
//   - opts: Monitor options.
//   - logger: Logger used to print received messages. A Nop logger is used if nil.
func NewMonitor(mgr *connmgr.Manager, opts Options, logger *zap.Logger) (*Monitor, error) {
	if mgr == nil {
		return nil, fmt.Errorf("connection manager is nil")
	}
	if opts.PumpIntervalMs <= 0 || opts.ReconnectIntervalMs <= 0 || opts.CmdVelIntervalMs < 0 {
		return nil, fmt.Errorf("invalid monitor intervals: pump=%d reconnect=%d cmd_vel=%d",
			opts.PumpIntervalMs, opts.ReconnectIntervalMs, opts.CmdVelIntervalMs)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{mgr: mgr, opts: opts, logger: logger}, nil
}

// # Description
//
// Connect to the rosbridge server, register the subscribers and the /cmd_vel publisher, ask the
// server for its topics and start the loop which pumps the connections.
//
// # Returns
//
// An error if the connection could not be opened or the registrations failed.
func (m *Monitor) Start(ctx context.Context) error {
	if m.done != nil {
		return fmt.Errorf("monitor already started")
	}
	conn, err := m.mgr.GetOrCreate(ctx, m.opts.Host, m.opts.Port)
	if err != nil {
		return err
	}
	m.conn = conn
	subscribers := map[string]rosbridge.Subscriber{
		JoyTopic: rosbridge.NewSubscriber(sensormsgs.JoyType, m.onJoy),
		FixTopic: rosbridge.NewSubscriber(sensormsgs.NavSatFixType, m.onFix),
		TFTopic:  rosbridge.NewSubscriber(tfmsgs.TFMessageType, m.onTF),
	}
	for _, topic := range []string{JoyTopic, FixTopic, TFTopic} {
		if err := conn.RegisterSubscriber(ctx, topic, subscribers[topic]); err != nil {
			return fmt.Errorf("failed to subscribe %s: %w", topic, err)
		}
	}
	if err := conn.RegisterPublisher(ctx, CmdVelTopic, geometrymsgs.TwistType); err != nil {
		return fmt.Errorf("failed to advertise %s: %w", CmdVelTopic, err)
	}
	err = conn.CallService(ctx, TopicsService, rosbridge.NewCorrelationID(), nil, rosbridge.ServiceHandlerFunc(m.onTopics))
	if err != nil {
		m.logger.Warn("failed to list server topics", zap.Error(err))
	}
	loopCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.run(loopCtx)
	return nil
}

// Stop the loop and wait for it to exit. Connections are left to the connection manager.
func (m *Monitor) Stop(ctx context.Context) error {
	if m.done == nil {
		return nil
	}
	m.cancel()
	select {
	case <-m.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Set the velocity command published on /cmd_vel.
func (m *Monitor) SetCmdVel(cmd geometrymsgs.Twist) {
	m.cmdMu.Lock()
	defer m.cmdMu.Unlock()
	m.cmdVel = cmd
}

// Counters of received messages and published commands.
func (m *Monitor) Stats() Stats {
	return Stats{
		Joy:       m.joy.Load(),
		Fix:       m.fix.Load(),
		TF:        m.tf.Load(),
		Responses: m.responses.Load(),
		Published: m.published.Load(),
	}
}

// Host main loop: pump on every tick, publish on every command tick and reconnect when the
// server dropped the connection.
func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)
	pump := time.NewTicker(time.Duration(m.opts.PumpIntervalMs) * time.Millisecond)
	defer pump.Stop()
	reconnect := time.NewTicker(time.Duration(m.opts.ReconnectIntervalMs) * time.Millisecond)
	defer reconnect.Stop()
	var cmdTicks <-chan time.Time
	if m.opts.CmdVelIntervalMs > 0 {
		cmd := time.NewTicker(time.Duration(m.opts.CmdVelIntervalMs) * time.Millisecond)
		defer cmd.Stop()
		cmdTicks = cmd.C
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-pump.C:
			m.mgr.PumpAll()
		case <-cmdTicks:
			m.publishCmdVel(ctx)
		case <-reconnect.C:
			if m.conn.State() == rosbridge.Idle {
				m.logger.Info("reconnecting to rosbridge server", zap.NamedError("cause", m.conn.Err()))
				conn, err := m.mgr.GetOrCreate(ctx, m.opts.Host, m.opts.Port)
				if err != nil {
					m.logger.Warn("reconnection failed", zap.Error(err))
					continue
				}
				m.conn = conn
			}
		}
	}
}

func (m *Monitor) publishCmdVel(ctx context.Context) {
	m.cmdMu.Lock()
	cmd := m.cmdVel
	m.cmdMu.Unlock()
	if err := m.conn.Publish(ctx, CmdVelTopic, cmd); err != nil {
		m.logger.Debug("velocity command dropped", zap.Error(err))
		return
	}
	m.published.Add(1)
}

func (m *Monitor) onJoy(topic string, msg sensormsgs.Joy) {
	m.joy.Add(1)
	m.logger.Info("joystick", zap.String("topic", topic), zap.Float32s("axes", msg.Axes), zap.Int32s("buttons", msg.Buttons))
}

func (m *Monitor) onFix(topic string, msg sensormsgs.NavSatFix) {
	m.fix.Add(1)
	m.logger.Info("gps fix", zap.String("topic", topic), zap.Bool("fix", msg.HasFix()), zap.Stringer("position", msg))
}

func (m *Monitor) onTF(topic string, msg tfmsgs.TFMessage) {
	m.tf.Add(1)
	for _, transform := range msg.Transforms {
		m.logger.Info("transform",
			zap.String("frame", transform.Header.FrameID),
			zap.String("child_frame", transform.ChildFrameID),
			zap.Float64("x", transform.Transform.Translation.X),
			zap.Float64("y", transform.Transform.Translation.Y),
			zap.Float64("z", transform.Transform.Translation.Z))
	}
}

func (m *Monitor) onTopics(response rosbridge.ServiceResponse) error {
	m.responses.Add(1)
	if !response.Result {
		return fmt.Errorf("%s failed: %s", response.Service, string(response.Values))
	}
	topics := struct {
		Topics []string `json:"topics"`
		Types  []string `json:"types"`
	}{}
	if err := json.Unmarshal(response.Values, &topics); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", response.Service, err)
	}
	m.logger.Info("server topics", zap.Strings("topics", topics.Topics), zap.Strings("types", topics.Types))
	return nil
}
