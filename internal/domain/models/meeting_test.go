// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestMeetingStatus_IsValid(t *testing.T) {
	for _, status := range MeetingStatuses {
		if !status.IsValid() {
			t.Errorf("expected %q to be valid", status)
		}
	}

	for _, status := range []MeetingStatus{"", "ACTIVE", "started", "ended"} {
		if status.IsValid() {
			t.Errorf("expected %q to be invalid", status)
		}
	}
}

func TestMeetingStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status   MeetingStatus
		expected bool
	}{
		{MeetingStatusUpcoming, false},
		{MeetingStatusActive, false},
		{MeetingStatusProcessing, false},
		{MeetingStatusCompleted, true},
		{MeetingStatusCancelled, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.IsTerminal(); got != tt.expected {
				t.Errorf("expected IsTerminal() = %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestMeeting_JSONSerialization(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	meeting := Meeting{
		ID:        "m1",
		Name:      "Weekly sync",
		Status:    MeetingStatusActive,
		AgentID:   "a1",
		StartedAt: &now,
	}

	data, err := json.Marshal(meeting)
	if err != nil {
		t.Fatalf("failed to marshal meeting: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("failed to unmarshal meeting: %v", err)
	}
	if raw["status"] != "active" {
		t.Errorf("expected status %q, got %v", "active", raw["status"])
	}
	if raw["agent_id"] != "a1" {
		t.Errorf("expected agent_id %q, got %v", "a1", raw["agent_id"])
	}
	if _, ok := raw["created_at"]; ok {
		t.Errorf("expected created_at to be omitted when nil")
	}

	var unmarshaled Meeting
	if err := json.Unmarshal(data, &unmarshaled); err != nil {
		t.Fatalf("failed to unmarshal meeting: %v", err)
	}
	if unmarshaled.StartedAt == nil || !unmarshaled.StartedAt.Equal(now) {
		t.Errorf("expected started_at %v, got %v", now, unmarshaled.StartedAt)
	}
}
