// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/domain/models"
)

// MockAgentBootstrapper is a mock implementation of service.AgentBootstrapper
type MockAgentBootstrapper struct {
	mock.Mock
}

func (m *MockAgentBootstrapper) Bootstrap(ctx context.Context, meeting *models.Meeting, agent *models.Agent) error {
	args := m.Called(ctx, meeting, agent)
	return args.Error(0)
}

func (m *MockAgentBootstrapper) Detach(ctx context.Context, meetingID string) error {
	args := m.Called(ctx, meetingID)
	return args.Error(0)
}
