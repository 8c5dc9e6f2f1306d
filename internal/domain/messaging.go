// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"

	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/domain/models"
)

// MeetingEventSender publishes meeting lifecycle notifications.
type MeetingEventSender interface {
	SendMeetingStarted(ctx context.Context, data models.MeetingStartedMessage) error
	SendMeetingSessionEndRequested(ctx context.Context, data models.MeetingSessionEndMessage) error
}
