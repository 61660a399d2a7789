package transport

import (
	"context"
	"net/http"
	"net/url"

	"github.com/stretchr/testify/mock"
)

// Mock for ConnectionAdapter
type ConnectionAdapterMock struct {
	mock.Mock
}

// Factory
func NewConnectionAdapterMock() *ConnectionAdapterMock {
	return &ConnectionAdapterMock{
		Mock: mock.Mock{},
	}
}

// Mocked Dial method
func (mock *ConnectionAdapterMock) Dial(ctx context.Context, target url.URL) (*http.Response, error) {
	args := mock.Called(ctx, target)
	resp, _ := args.Get(0).(*http.Response)
	return resp, args.Error(1)
}

// Mocked Close method
func (mock *ConnectionAdapterMock) Close(ctx context.Context, code StatusCode, reason string) error {
	args := mock.Called(ctx, code, reason)
	return args.Error(0)
}

// Mocked Read method
func (mock *ConnectionAdapterMock) Read(ctx context.Context) (MessageType, []byte, error) {
	args := mock.Called(ctx)
	msg, _ := args.Get(1).([]byte)
	return MessageType(args.Int(0)), msg, args.Error(2)
}

// Mocked Write method
func (mock *ConnectionAdapterMock) Write(ctx context.Context, msgType MessageType, msg []byte) error {
	args := mock.Called(ctx, msgType, msg)
	return args.Error(0)
}
