// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"fmt"
	"time"
)

// Stream Video webhook event types acted upon by the service.
const (
	EventTypeCallSessionStarted         = "call.session_started"
	EventTypeCallSessionParticipantLeft = "call.session_participant_left"
)

// InboundEvent is the closed set of decoded webhook events. Only the
// variants declared in this file implement it.
type InboundEvent interface {
	EventType() string
	inboundEvent()
}

// CustomMetadata is the custom data attached to a call when it is created.
type CustomMetadata struct {
	MeetingID string         `mapstructure:"meetingId"`
	Extra     map[string]any `mapstructure:",remain"`
}

// SessionStartedEvent is sent when the first participant joins a call.
type SessionStartedEvent struct {
	SessionID string
	CallCID   string
	MeetingID string
	Custom    CustomMetadata
	CreatedAt *time.Time
}

func (SessionStartedEvent) EventType() string { return EventTypeCallSessionStarted }
func (SessionStartedEvent) inboundEvent()     {}

// ParticipantLeftEvent is sent when a participant leaves a call session.
type ParticipantLeftEvent struct {
	SessionID         string
	CallCID           string
	MeetingID         string
	ParticipantUserID string
}

func (ParticipantLeftEvent) EventType() string { return EventTypeCallSessionParticipantLeft }
func (ParticipantLeftEvent) inboundEvent()     {}

// UnhandledEvent is any event type the service accepts and ignores.
type UnhandledEvent struct {
	RawType string
}

func (e UnhandledEvent) EventType() string { return e.RawType }
func (UnhandledEvent) inboundEvent()       {}

// DecodeErrorKind classifies why a webhook body could not be decoded.
type DecodeErrorKind int

const (
	DecodeErrorMalformedJSON DecodeErrorKind = iota
	DecodeErrorMissingType
	DecodeErrorMissingCorrelationID
)

func (k DecodeErrorKind) String() string {
	switch k {
	case DecodeErrorMalformedJSON:
		return "malformed_json"
	case DecodeErrorMissingType:
		return "missing_type"
	case DecodeErrorMissingCorrelationID:
		return "missing_correlation_id"
	default:
		return "unknown"
	}
}

// DecodeError is returned by the webhook event decoder.
type DecodeError struct {
	Kind      DecodeErrorKind
	EventType string
	Err       error
}

func (e *DecodeError) Error() string {
	msg := "webhook decode error: " + e.Kind.String()
	if e.EventType != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.EventType)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
