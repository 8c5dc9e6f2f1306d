// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestMessagingSubjects(t *testing.T) {
	tests := []struct {
		name     string
		subject  string
		expected string
	}{
		{
			name:     "MeetingStartedSubject",
			subject:  MeetingStartedSubject,
			expected: "lfx.meeting-agent.meeting.started",
		},
		{
			name:     "MeetingSessionEndRequestedSubject",
			subject:  MeetingSessionEndRequestedSubject,
			expected: "lfx.meeting-agent.meeting.session_end_requested",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.subject != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, tt.subject)
			}
		})
	}
}

func TestMeetingStartedMessage_JSONSerialization(t *testing.T) {
	startedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	msg := MeetingStartedMessage{MeetingID: "m1", AgentID: "a1", StartedAt: startedAt}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("failed to marshal message: %v", err)
	}

	expected := `{"meeting_id":"m1","agent_id":"a1","started_at":"2026-03-01T10:00:00Z"}`
	if string(data) != expected {
		t.Errorf("expected %s, got %s", expected, string(data))
	}
}

func TestMeetingSessionEndMessage_OmitsEmptyParticipant(t *testing.T) {
	data, err := json.Marshal(MeetingSessionEndMessage{MeetingID: "m1", CallCID: "default:m1"})
	if err != nil {
		t.Fatalf("failed to marshal message: %v", err)
	}

	expected := `{"meeting_id":"m1","call_cid":"default:m1"}`
	if string(data) != expected {
		t.Errorf("expected %s, got %s", expected, string(data))
	}
}
