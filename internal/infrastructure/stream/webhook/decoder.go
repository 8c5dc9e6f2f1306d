// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package webhook

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"

	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/domain/models"
)

// CallCIDDelimiter separates the call type from the call id in a call cid.
const CallCIDDelimiter = ":"

type envelope struct {
	Type json.RawMessage `json:"type"`
}

type sessionStartedPayload struct {
	SessionID string     `json:"session_id"`
	CallCID   string     `json:"call_cid"`
	CreatedAt *time.Time `json:"created_at"`
	Call      *struct {
		CID    string         `json:"cid"`
		Custom map[string]any `json:"custom"`
	} `json:"call"`
}

type participantLeftPayload struct {
	SessionID   string `json:"session_id"`
	CallCID     string `json:"call_cid"`
	Participant *struct {
		User *struct {
			ID string `json:"id"`
		} `json:"user"`
	} `json:"participant"`
}

// EventDecoder decodes Stream webhook bodies into inbound events.
type EventDecoder struct{}

// NewEventDecoder creates a new webhook event decoder
func NewEventDecoder() *EventDecoder {
	return &EventDecoder{}
}

// Decode implements domain.WebhookDecoder.
func (EventDecoder) Decode(body []byte) (models.InboundEvent, error) {
	return Decode(body)
}

// Decode parses a raw webhook body. Unknown event types decode to
// models.UnhandledEvent. Errors are always *models.DecodeError.
func Decode(body []byte) (models.InboundEvent, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &models.DecodeError{Kind: models.DecodeErrorMalformedJSON, Err: err}
	}

	eventType, ok := discriminant(env.Type)
	if !ok {
		return nil, &models.DecodeError{Kind: models.DecodeErrorMissingType}
	}

	switch eventType {
	case models.EventTypeCallSessionStarted:
		return decodeSessionStarted(body)
	case models.EventTypeCallSessionParticipantLeft:
		return decodeParticipantLeft(body)
	default:
		return models.UnhandledEvent{RawType: eventType}, nil
	}
}

// discriminant returns the event type when raw is a non-empty JSON string.
func discriminant(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var eventType string
	if err := json.Unmarshal(raw, &eventType); err != nil {
		return "", false
	}
	eventType = strings.TrimSpace(eventType)
	return eventType, eventType != ""
}

func decodeSessionStarted(body []byte) (models.InboundEvent, error) {
	var payload sessionStartedPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &models.DecodeError{
			Kind:      models.DecodeErrorMalformedJSON,
			EventType: models.EventTypeCallSessionStarted,
			Err:       err,
		}
	}

	event := models.SessionStartedEvent{
		SessionID: payload.SessionID,
		CallCID:   payload.CallCID,
		CreatedAt: payload.CreatedAt,
	}
	if payload.Call != nil {
		if event.CallCID == "" {
			event.CallCID = payload.Call.CID
		}
		custom, err := decodeCustomMetadata(payload.Call.Custom)
		if err != nil {
			return nil, &models.DecodeError{
				Kind:      models.DecodeErrorMalformedJSON,
				EventType: models.EventTypeCallSessionStarted,
				Err:       err,
			}
		}
		event.Custom = custom
		event.MeetingID = strings.TrimSpace(custom.MeetingID)
	}

	if event.MeetingID == "" {
		return nil, &models.DecodeError{
			Kind:      models.DecodeErrorMissingCorrelationID,
			EventType: models.EventTypeCallSessionStarted,
		}
	}

	return event, nil
}

func decodeCustomMetadata(custom map[string]any) (models.CustomMetadata, error) {
	var metadata models.CustomMetadata
	if len(custom) == 0 {
		return metadata, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &metadata,
		TagName: "mapstructure",
	})
	if err != nil {
		return metadata, err
	}
	if err := decoder.Decode(custom); err != nil {
		return metadata, err
	}
	return metadata, nil
}

func decodeParticipantLeft(body []byte) (models.InboundEvent, error) {
	var payload participantLeftPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &models.DecodeError{
			Kind:      models.DecodeErrorMalformedJSON,
			EventType: models.EventTypeCallSessionParticipantLeft,
			Err:       err,
		}
	}

	meetingID := MeetingIDFromCallCID(payload.CallCID)
	if meetingID == "" {
		return nil, &models.DecodeError{
			Kind:      models.DecodeErrorMissingCorrelationID,
			EventType: models.EventTypeCallSessionParticipantLeft,
		}
	}

	event := models.ParticipantLeftEvent{
		SessionID: payload.SessionID,
		CallCID:   payload.CallCID,
		MeetingID: meetingID,
	}
	if payload.Participant != nil && payload.Participant.User != nil {
		event.ParticipantUserID = payload.Participant.User.ID
	}

	return event, nil
}

// MeetingIDFromCallCID returns the second component of a "<type>:<id>" call
// cid, or "" when there is none.
func MeetingIDFromCallCID(callCID string) string {
	parts := strings.Split(callCID, CallCIDDelimiter)
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
