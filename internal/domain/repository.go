// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"

	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/domain/models"
)

// MeetingRepository defines the interface for meeting storage operations.
// This interface can be implemented by different storage backends (NATS, SQL, etc.)
type MeetingRepository interface {
	// Get returns ErrMeetingNotFound when no meeting has the given id.
	Get(ctx context.Context, meetingID string) (*models.Meeting, error)

	// ConditionalUpdate applies patch to the meeting only if cond holds for
	// its current state, as a single atomic operation. It returns the
	// updated meeting, or ErrMeetingNotFoundOrStarted when the meeting does
	// not exist or cond does not hold.
	ConditionalUpdate(ctx context.Context, meetingID string, cond models.MeetingCondition, patch models.MeetingPatch) (*models.Meeting, error)

	// Create stores a new meeting.
	Create(ctx context.Context, meeting *models.Meeting) error

	IsReady(ctx context.Context) error
}

// AgentRepository defines the interface for agent storage operations.
type AgentRepository interface {
	// Get returns ErrAgentNotFound when no agent has the given id.
	Get(ctx context.Context, agentID string) (*models.Agent, error)
	Create(ctx context.Context, agent *models.Agent) error
	IsReady(ctx context.Context) error
}
