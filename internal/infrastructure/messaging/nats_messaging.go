// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package messaging

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/logging"
)

// INatsConn is a NATS connection interface needed for the [MessageBuilder].
type INatsConn interface {
	IsConnected() bool
	Publish(subj string, data []byte) error
}

// MessageBuilder is the builder for the message and sends it to the NATS server.
type MessageBuilder struct {
	NatsConn INatsConn
}

// Ensure that MessageBuilder implements domain.MeetingEventSender
var _ domain.MeetingEventSender = (*MessageBuilder)(nil)

// NewMessageBuilder creates a new MessageBuilder.
func NewMessageBuilder(natsConn INatsConn) *MessageBuilder {
	return &MessageBuilder{
		NatsConn: natsConn,
	}
}

// publish sends the message to the NATS server.
func (m *MessageBuilder) publish(ctx context.Context, subject string, data []byte) error {
	if m.NatsConn == nil || !m.NatsConn.IsConnected() {
		slog.WarnContext(ctx, "NATS connection not available, message not sent", "subject", subject)
		return domain.NewUnavailableError("NATS connection not available", domain.ErrServiceUnavailable)
	}

	err := m.NatsConn.Publish(subject, data)
	if err != nil {
		slog.ErrorContext(ctx, "error sending message to NATS", logging.ErrKey, err, "subject", subject)
		return err
	}
	slog.DebugContext(ctx, "sent message to NATS", "subject", subject)
	return nil
}

func (m *MessageBuilder) sendJSON(ctx context.Context, subject string, data any) error {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		slog.ErrorContext(ctx, "error marshalling data into JSON", logging.ErrKey, err, "subject", subject)
		return err
	}

	return m.publish(ctx, subject, dataBytes)
}

// SendMeetingStarted sends a message about a meeting that was activated by a session start.
func (m *MessageBuilder) SendMeetingStarted(ctx context.Context, data models.MeetingStartedMessage) error {
	return m.sendJSON(ctx, models.MeetingStartedSubject, data)
}

// SendMeetingSessionEndRequested sends a message about a call the service asked the provider to end.
func (m *MessageBuilder) SendMeetingSessionEndRequested(ctx context.Context, data models.MeetingSessionEndMessage) error {
	return m.sendJSON(ctx, models.MeetingSessionEndRequestedSubject, data)
}

// NoopEventSender drops every message. It is used when the service runs
// without a NATS connection.
type NoopEventSender struct{}

var _ domain.MeetingEventSender = NoopEventSender{}

// SendMeetingStarted implements domain.MeetingEventSender.
func (NoopEventSender) SendMeetingStarted(ctx context.Context, data models.MeetingStartedMessage) error {
	slog.DebugContext(ctx, "event publishing disabled", "subject", models.MeetingStartedSubject, "meeting_id", data.MeetingID)
	return nil
}

// SendMeetingSessionEndRequested implements domain.MeetingEventSender.
func (NoopEventSender) SendMeetingSessionEndRequested(ctx context.Context, data models.MeetingSessionEndMessage) error {
	slog.DebugContext(ctx, "event publishing disabled", "subject", models.MeetingSessionEndRequestedSubject, "meeting_id", data.MeetingID)
	return nil
}
