// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/logging"
)

// DefaultConditionalUpdateRetries bounds how often a conditional update is
// re-evaluated after losing a revision race.
const DefaultConditionalUpdateRetries = 5

// NatsMeetingRepository is the NATS KV store repository for meetings.
type NatsMeetingRepository struct {
	base       *NatsBaseRepository[models.Meeting]
	keys       *KeyBuilder
	maxRetries int
	now        func() time.Time
}

// NewNatsMeetingRepository creates a new NATS KV store repository for meetings.
func NewNatsMeetingRepository(meetings INatsKeyValue) *NatsMeetingRepository {
	return &NatsMeetingRepository{
		base:       NewNatsBaseRepository[models.Meeting](meetings, "meeting"),
		keys:       NewKeyBuilder(""),
		maxRetries: DefaultConditionalUpdateRetries,
		now:        time.Now,
	}
}

// IsReady checks that the meetings bucket is reachable.
func (s *NatsMeetingRepository) IsReady(ctx context.Context) error {
	return s.base.Ping(ctx)
}

// Get returns the meeting with the given id.
func (s *NatsMeetingRepository) Get(ctx context.Context, meetingID string) (*models.Meeting, error) {
	meeting, err := s.base.Get(ctx, s.keys.EntityKey(meetingID))
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			return nil, domain.NewNotFoundError("meeting not found", domain.ErrMeetingNotFound)
		}
		return nil, err
	}
	return meeting, nil
}

// Create stores a new meeting, replacing any meeting with the same id.
func (s *NatsMeetingRepository) Create(ctx context.Context, meeting *models.Meeting) error {
	if meeting == nil || meeting.ID == "" {
		return domain.NewValidationError("meeting id is required", domain.ErrValidationFailed)
	}
	if !meeting.Status.IsValid() {
		return domain.NewValidationError(fmt.Sprintf("invalid meeting status %q", meeting.Status), domain.ErrValidationFailed)
	}

	now := s.now().UTC()
	if meeting.CreatedAt == nil {
		meeting.CreatedAt = &now
	}
	meeting.UpdatedAt = &now

	return s.base.Create(ctx, s.keys.EntityKey(meeting.ID), meeting)
}

// ConditionalUpdate evaluates cond against the current revision of the
// meeting and writes the patched meeting only if that revision is still
// current. Losing a revision race re-reads and re-evaluates cond, so a
// concurrent caller that already applied the patch makes cond fail here.
func (s *NatsMeetingRepository) ConditionalUpdate(ctx context.Context, meetingID string, cond models.MeetingCondition, patch models.MeetingPatch) (*models.Meeting, error) {
	key := s.keys.EntityKey(meetingID)

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		meeting, revision, err := s.base.GetWithRevision(ctx, key)
		if err != nil {
			if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
				return nil, notFoundOrStarted()
			}
			return nil, err
		}

		if !cond.Matches(meeting) {
			slog.DebugContext(ctx, "meeting condition not met",
				"meeting_id", meetingID,
				"status", meeting.Status,
			)
			return nil, notFoundOrStarted()
		}

		patch.Apply(meeting, s.now().UTC())
		if !meeting.Status.IsValid() {
			return nil, domain.NewValidationError(fmt.Sprintf("invalid meeting status %q", meeting.Status), domain.ErrValidationFailed)
		}

		_, err = s.base.Update(ctx, key, meeting, revision)
		if err == nil {
			return meeting, nil
		}

		switch {
		case errors.Is(err, domain.ErrRevisionMismatch):
			slog.DebugContext(ctx, "meeting revision changed during conditional update, retrying",
				"meeting_id", meetingID,
				"revision", revision,
				"attempt", attempt,
			)
			continue
		case domain.GetErrorType(err) == domain.ErrorTypeNotFound:
			return nil, notFoundOrStarted()
		default:
			return nil, err
		}
	}

	slog.WarnContext(ctx, "conditional update gave up after repeated revision conflicts",
		"meeting_id", meetingID,
		"attempts", s.maxRetries,
		logging.ErrKey, domain.ErrRevisionMismatch,
	)
	return nil, domain.NewConflictError("meeting has been modified", domain.ErrRevisionMismatch)
}

func notFoundOrStarted() error {
	return domain.NewNotFoundError("meeting not found or already started", domain.ErrMeetingNotFoundOrStarted)
}
