// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/domain/models"
)

// MockMeetingEventSender implements MeetingEventSender for testing
type MockMeetingEventSender struct {
	mock.Mock
}

func (m *MockMeetingEventSender) SendMeetingStarted(ctx context.Context, data models.MeetingStartedMessage) error {
	args := m.Called(ctx, data)
	return args.Error(0)
}

func (m *MockMeetingEventSender) SendMeetingSessionEndRequested(ctx context.Context, data models.MeetingSessionEndMessage) error {
	args := m.Called(ctx, data)
	return args.Error(0)
}
