// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import "time"

// NATS subjects that the meeting agent service sends messages about.
const (
	// MeetingStartedSubject is the subject for meetings activated by a session start.
	// The subject is of the form: lfx.meeting-agent.meeting.started
	MeetingStartedSubject = "lfx.meeting-agent.meeting.started"

	// MeetingSessionEndRequestedSubject is the subject for calls the service asked the provider to end.
	// The subject is of the form: lfx.meeting-agent.meeting.session_end_requested
	MeetingSessionEndRequestedSubject = "lfx.meeting-agent.meeting.session_end_requested"
)

// MeetingStartedMessage is published after a meeting transitions to active.
type MeetingStartedMessage struct {
	MeetingID string    `json:"meeting_id"`
	AgentID   string    `json:"agent_id"`
	StartedAt time.Time `json:"started_at"`
}

// MeetingSessionEndMessage is published after the provider is asked to end a call.
type MeetingSessionEndMessage struct {
	MeetingID         string `json:"meeting_id"`
	CallCID           string `json:"call_cid"`
	ParticipantUserID string `json:"participant_user_id,omitempty"`
}
