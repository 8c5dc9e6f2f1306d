// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"slices"
	"time"
)

// meetingTransitions is the status DAG. cancelled is only reachable through
// record management, never through session events.
var meetingTransitions = map[MeetingStatus][]MeetingStatus{
	MeetingStatusUpcoming:   {MeetingStatusActive, MeetingStatusCancelled},
	MeetingStatusActive:     {MeetingStatusProcessing},
	MeetingStatusProcessing: {MeetingStatusCompleted},
}

// sessionStartBlocked are the statuses from which a session start must not
// activate a meeting. Any status outside this set may be activated.
var sessionStartBlocked = []MeetingStatus{
	MeetingStatusCompleted,
	MeetingStatusActive,
	MeetingStatusCancelled,
	MeetingStatusProcessing,
}

// CanTransitionTo reports whether next directly follows s in the lifecycle.
func (s MeetingStatus) CanTransitionTo(next MeetingStatus) bool {
	return slices.Contains(meetingTransitions[s], next)
}

// MeetingCondition is a predicate evaluated by the store atomically with the
// write it guards.
type MeetingCondition struct {
	// StatusNotIn matches meetings whose status is none of the listed values.
	StatusNotIn []MeetingStatus
}

// Matches evaluates the condition against m. A nil meeting never matches.
func (c MeetingCondition) Matches(m *Meeting) bool {
	if m == nil {
		return false
	}
	return !slices.Contains(c.StatusNotIn, m.Status)
}

// MeetingPatch holds the fields a conditional update sets. Nil fields are
// left untouched.
type MeetingPatch struct {
	Status    *MeetingStatus
	StartedAt *time.Time
}

// Apply writes the patch onto m and stamps UpdatedAt with now.
func (p MeetingPatch) Apply(m *Meeting, now time.Time) {
	if p.Status != nil {
		m.Status = *p.Status
	}
	if p.StartedAt != nil {
		startedAt := *p.StartedAt
		m.StartedAt = &startedAt
	}
	updatedAt := now
	m.UpdatedAt = &updatedAt
}

// SessionStartCondition is the guard for activating a meeting when its
// session starts.
func SessionStartCondition() MeetingCondition {
	return MeetingCondition{StatusNotIn: slices.Clone(sessionStartBlocked)}
}

// SessionStartPatch activates a meeting and records when it started.
func SessionStartPatch(now time.Time) MeetingPatch {
	status := MeetingStatusActive
	startedAt := now.UTC()
	return MeetingPatch{Status: &status, StartedAt: &startedAt}
}

// MeetingTransition identifies the effect an inbound event has on a meeting.
type MeetingTransition int

const (
	// TransitionNone means the event is accepted and ignored.
	TransitionNone MeetingTransition = iota
	// TransitionStartSession activates the meeting and attaches its agent.
	TransitionStartSession
	// TransitionEndSession asks the provider to end the call. The meeting
	// record is not changed.
	TransitionEndSession
)

func (t MeetingTransition) String() string {
	switch t {
	case TransitionStartSession:
		return "start_session"
	case TransitionEndSession:
		return "end_session"
	default:
		return "none"
	}
}

// PlanTransition maps an inbound event onto the transition it triggers.
func PlanTransition(event InboundEvent) MeetingTransition {
	switch event.(type) {
	case SessionStartedEvent:
		return TransitionStartSession
	case ParticipantLeftEvent:
		return TransitionEndSession
	default:
		return TransitionNone
	}
}
