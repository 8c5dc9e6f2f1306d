// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package sqlstore

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/domain/models"
)

type meetingRecord struct {
	bun.BaseModel `bun:"table:meetings,alias:m"`

	ID        string     `bun:"id,pk"`
	Name      string     `bun:"name"`
	Status    string     `bun:"status,notnull"`
	AgentID   string     `bun:"agent_id"`
	StartedAt *time.Time `bun:"started_at,nullzero"`
	CreatedAt time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type agentRecord struct {
	bun.BaseModel `bun:"table:agents,alias:a"`

	ID           string    `bun:"id,pk"`
	Name         string    `bun:"name,notnull"`
	Instructions string    `bun:"instructions,notnull"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func meetingToDomain(record *meetingRecord) *models.Meeting {
	createdAt, updatedAt := record.CreatedAt.UTC(), record.UpdatedAt.UTC()
	meeting := &models.Meeting{
		ID:        record.ID,
		Name:      record.Name,
		Status:    models.MeetingStatus(record.Status),
		AgentID:   record.AgentID,
		CreatedAt: &createdAt,
		UpdatedAt: &updatedAt,
	}
	if record.StartedAt != nil {
		startedAt := record.StartedAt.UTC()
		meeting.StartedAt = &startedAt
	}
	return meeting
}

func meetingFromDomain(meeting *models.Meeting, now time.Time) *meetingRecord {
	record := &meetingRecord{
		ID:        meeting.ID,
		Name:      meeting.Name,
		Status:    string(meeting.Status),
		AgentID:   meeting.AgentID,
		StartedAt: meeting.StartedAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if meeting.CreatedAt != nil {
		record.CreatedAt = meeting.CreatedAt.UTC()
	}
	return record
}

func agentToDomain(record *agentRecord) *models.Agent {
	createdAt, updatedAt := record.CreatedAt.UTC(), record.UpdatedAt.UTC()
	return &models.Agent{
		ID:           record.ID,
		Name:         record.Name,
		Instructions: record.Instructions,
		CreatedAt:    &createdAt,
		UpdatedAt:    &updatedAt,
	}
}
