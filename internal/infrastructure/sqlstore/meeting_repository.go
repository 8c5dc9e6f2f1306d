// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"

	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/logging"
)

// MeetingRepository stores meetings in a SQL table.
type MeetingRepository struct {
	db  *bun.DB
	now func() time.Time
}

// NewMeetingRepository creates a meeting repository on db.
func NewMeetingRepository(db *bun.DB) *MeetingRepository {
	return &MeetingRepository{db: db, now: time.Now}
}

func (r *MeetingRepository) IsReady(ctx context.Context) error {
	if r == nil || r.db == nil {
		return domain.NewUnavailableError("meeting repository is not available")
	}
	if err := r.db.PingContext(ctx); err != nil {
		return domain.NewUnavailableError("meeting database is not reachable", err)
	}
	return nil
}

func (r *MeetingRepository) Get(ctx context.Context, meetingID string) (*models.Meeting, error) {
	return r.get(ctx, r.db, meetingID)
}

func (r *MeetingRepository) get(ctx context.Context, db bun.IDB, meetingID string) (*models.Meeting, error) {
	record := new(meetingRecord)
	err := db.NewSelect().Model(record).Where("?TableAlias.id = ?", meetingID).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFoundError("meeting not found", domain.ErrMeetingNotFound)
		}
		slog.ErrorContext(ctx, "error getting meeting from database", logging.ErrKey, err, "meeting_id", meetingID)
		return nil, domain.NewInternalError("failed to retrieve meeting from store", err)
	}
	return meetingToDomain(record), nil
}

func (r *MeetingRepository) Create(ctx context.Context, meeting *models.Meeting) error {
	if meeting == nil || meeting.ID == "" {
		return domain.NewValidationError("meeting id is required", domain.ErrValidationFailed)
	}
	if !meeting.Status.IsValid() {
		return domain.NewValidationError(fmt.Sprintf("invalid meeting status %q", meeting.Status), domain.ErrValidationFailed)
	}

	record := meetingFromDomain(meeting, r.now().UTC())
	if _, err := r.db.NewInsert().Model(record).Exec(ctx); err != nil {
		slog.ErrorContext(ctx, "error creating meeting in database", logging.ErrKey, err, "meeting_id", meeting.ID)
		return domain.NewInternalError("failed to create meeting in store", err)
	}
	return nil
}

// ConditionalUpdate issues a single UPDATE whose WHERE clause carries cond,
// so concurrent callers are serialized by the database. Zero affected rows
// means the meeting is missing or cond does not hold.
func (r *MeetingRepository) ConditionalUpdate(ctx context.Context, meetingID string, cond models.MeetingCondition, patch models.MeetingPatch) (*models.Meeting, error) {
	if patch.Status != nil && !patch.Status.IsValid() {
		return nil, domain.NewValidationError(fmt.Sprintf("invalid meeting status %q", *patch.Status), domain.ErrValidationFailed)
	}

	var updated *models.Meeting
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		query := tx.NewUpdate().
			Model((*meetingRecord)(nil)).
			Set("updated_at = ?", r.now().UTC()).
			Where("id = ?", meetingID)
		if patch.Status != nil {
			query = query.Set("status = ?", string(*patch.Status))
		}
		if patch.StartedAt != nil {
			query = query.Set("started_at = ?", patch.StartedAt.UTC())
		}
		if len(cond.StatusNotIn) > 0 {
			statuses := make([]string, 0, len(cond.StatusNotIn))
			for _, status := range cond.StatusNotIn {
				statuses = append(statuses, string(status))
			}
			query = query.Where("status NOT IN (?)", bun.In(statuses))
		}

		result, err := query.Exec(ctx)
		if err != nil {
			return domain.NewInternalError("failed to update meeting in store", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return domain.NewInternalError("failed to update meeting in store", err)
		}
		if rows == 0 {
			return domain.NewNotFoundError("meeting not found or already started", domain.ErrMeetingNotFoundOrStarted)
		}

		updated, err = r.get(ctx, tx, meetingID)
		return err
	})
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeInternal {
			slog.ErrorContext(ctx, "error applying conditional meeting update", logging.ErrKey, err, "meeting_id", meetingID)
		}
		return nil, err
	}
	return updated, nil
}
