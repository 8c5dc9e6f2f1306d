// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"time"
)

// MeetingStatus is the lifecycle status of a meeting.
type MeetingStatus string

// Meeting statuses. No other value is permitted.
const (
	MeetingStatusUpcoming   MeetingStatus = "upcoming"
	MeetingStatusActive     MeetingStatus = "active"
	MeetingStatusProcessing MeetingStatus = "processing"
	MeetingStatusCompleted  MeetingStatus = "completed"
	MeetingStatusCancelled  MeetingStatus = "cancelled"
)

// MeetingStatuses lists every valid status in lifecycle order.
var MeetingStatuses = []MeetingStatus{
	MeetingStatusUpcoming,
	MeetingStatusActive,
	MeetingStatusProcessing,
	MeetingStatusCompleted,
	MeetingStatusCancelled,
}

// IsValid reports whether s is one of the enumerated statuses.
func (s MeetingStatus) IsValid() bool {
	switch s {
	case MeetingStatusUpcoming, MeetingStatusActive, MeetingStatusProcessing,
		MeetingStatusCompleted, MeetingStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition can leave s.
func (s MeetingStatus) IsTerminal() bool {
	return s == MeetingStatusCompleted || s == MeetingStatusCancelled
}

func (s MeetingStatus) String() string {
	return string(s)
}

// Meeting is the persisted representation of a meeting that an agent joins.
type Meeting struct {
	ID        string        `json:"id"`
	Name      string        `json:"name,omitempty"`
	Status    MeetingStatus `json:"status"`
	AgentID   string        `json:"agent_id"`
	StartedAt *time.Time    `json:"started_at,omitempty"`
	CreatedAt *time.Time    `json:"created_at,omitempty"`
	UpdatedAt *time.Time    `json:"updated_at,omitempty"`
}
