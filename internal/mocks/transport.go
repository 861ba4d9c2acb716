package mocks

import (
	"github.com/stretchr/testify/mock"
)

// MockTransport is a mock implementation of the serial.Transport interface
type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Read(p []byte) (int, error) {
	args := m.Called(p)
	return args.Int(0), args.Error(1)
}

func (m *MockTransport) Write(p []byte) (int, error) {
	args := m.Called(p)
	return args.Int(0), args.Error(1)
}

func (m *MockTransport) Close() error {
	args := m.Called()
	return args.Error(0)
}
