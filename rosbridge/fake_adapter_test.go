package rosbridge

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/gbdevw/gorosbridge/transport"
	json "github.com/goccy/go-json"
)

// Frame written by a Connection, decoded for assertions
type sentFrame struct {
	Op      string          `json:"op"`
	Topic   string          `json:"topic"`
	Type    string          `json:"type"`
	Service string          `json:"service"`
	ID      *string         `json:"id"`
	Msg     json.RawMessage `json:"msg"`
	Args    json.RawMessage `json:"args"`
}

// In-memory ConnectionAdapter: frames pushed by tests are returned by Read and written frames
// are recorded.
type fakeAdapter struct {
	mu sync.Mutex
	// Error returned by the next Dial calls
	dialErr   error
	dials     int
	connected bool
	// Closed when the current connection is closed or dropped
	closed  chan struct{}
	inbound chan []byte
	written [][]byte
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{
		inbound: make(chan []byte, 128),
		written: [][]byte{},
	}
}

func (f *fakeAdapter) Dial(ctx context.Context, target url.URL) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dials++
	if f.dialErr != nil {
		return nil, f.dialErr
	}
	if f.connected {
		return nil, fmt.Errorf("a connection has already been established")
	}
	f.connected = true
	f.closed = make(chan struct{})
	return &http.Response{StatusCode: http.StatusSwitchingProtocols}, nil
}

func (f *fakeAdapter) Close(ctx context.Context, code transport.StatusCode, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return fmt.Errorf("close failed because no connection is up")
	}
	f.connected = false
	close(f.closed)
	return nil
}

func (f *fakeAdapter) Read(ctx context.Context) (transport.MessageType, []byte, error) {
	f.mu.Lock()
	closed := f.closed
	connected := f.connected
	f.mu.Unlock()
	if !connected {
		return -1, nil, transport.CloseError{Code: transport.AbnormalClosure, Reason: "no connection is up"}
	}
	select {
	case <-ctx.Done():
		return -1, nil, ctx.Err()
	case <-closed:
		return -1, nil, transport.CloseError{Code: transport.GoingAway, Reason: "closed"}
	case raw := <-f.inbound:
		return transport.Text, raw, nil
	}
}

func (f *fakeAdapter) Write(ctx context.Context, msgType transport.MessageType, msg []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return fmt.Errorf("write failed because no connection is up")
	}
	f.written = append(f.written, append([]byte(nil), msg...))
	return nil
}

// Queue a frame the next Read will return.
func (f *fakeAdapter) push(frame string) {
	f.inbound <- []byte(frame)
}

// Simulate the server dropping the connection.
func (f *fakeAdapter) drop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connected {
		f.connected = false
		close(f.closed)
	}
}

func (f *fakeAdapter) setDialErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dialErr = err
}

func (f *fakeAdapter) dialCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dials
}

// Written frames, decoded.
func (f *fakeAdapter) frames() []sentFrame {
	f.mu.Lock()
	defer f.mu.Unlock()
	frames := make([]sentFrame, 0, len(f.written))
	for _, raw := range f.written {
		frame := sentFrame{}
		if err := json.Unmarshal(raw, &frame); err != nil {
			panic(err)
		}
		frames = append(frames, frame)
	}
	return frames
}

// Written frames with the provided op.
func (f *fakeAdapter) framesWithOp(op string) []sentFrame {
	filtered := []sentFrame{}
	for _, frame := range f.frames() {
		if frame.Op == op {
			filtered = append(filtered, frame)
		}
	}
	return filtered
}

// Subscriber which records the decoded messages and counts Decode calls
type recordingSubscriber struct {
	mu       sync.Mutex
	wireType string
	decodes  int
	received []any
}

func (s *recordingSubscriber) WireType(topic string) string {
	return s.wireType
}

func (s *recordingSubscriber) Decode(topic string, raw json.RawMessage) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decodes++
	var msg map[string]any
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *recordingSubscriber) Receive(topic string, msg any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received = append(s.received, msg)
	return nil
}

func (s *recordingSubscriber) decodeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.decodes
}

func (s *recordingSubscriber) messages() []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]any(nil), s.received...)
}

// Subscriber whose dynamic type is not comparable
type sliceSubscriber struct {
	topics []string
}

func (s sliceSubscriber) WireType(topic string) string {
	return "std_msgs/String"
}

func (s sliceSubscriber) Decode(topic string, raw json.RawMessage) (any, error) {
	return nil, nil
}

func (s sliceSubscriber) Receive(topic string, msg any) error {
	return nil
}
