// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/domain"
)

// MockSessionController implements SessionController for testing
type MockSessionController struct {
	mock.Mock
}

func (m *MockSessionController) Call(callType, callID string) domain.Call {
	args := m.Called(callType, callID)
	return args.Get(0).(domain.Call)
}

// MockCall implements Call for testing
type MockCall struct {
	mock.Mock
}

func (m *MockCall) CID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockCall) End(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockRealtimeConnector implements RealtimeConnector for testing
type MockRealtimeConnector struct {
	mock.Mock
}

func (m *MockRealtimeConnector) Connect(ctx context.Context, req domain.RealtimeConnectRequest) (domain.RealtimeSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.RealtimeSession), args.Error(1)
}

// MockRealtimeSession implements RealtimeSession for testing
type MockRealtimeSession struct {
	mock.Mock
}

func (m *MockRealtimeSession) UpdateSession(ctx context.Context, cfg domain.RealtimeSessionConfig) error {
	args := m.Called(ctx, cfg)
	return args.Error(0)
}

func (m *MockRealtimeSession) Close() error {
	args := m.Called()
	return args.Error(0)
}
