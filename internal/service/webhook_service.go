// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/metrics"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/pkg/constants"
)

// Public messages of webhook failures. They are returned verbatim to the provider.
const (
	MessageMissingHeaders    = "Missing signature or API key"
	MessageInvalidSignature  = "Invalid signature"
	MessageInvalidPayload    = "Invalid JSON payload"
	MessageMissingMeetingID  = "Missing meeting ID"
	MessageNotFoundOrStarted = "Meeting not found or already started"
	MessageAgentNotFound     = "Agent not found"
	MessageInternalError     = "Internal server error"
)

// StatusOK is the status of every accepted delivery
const StatusOK = "ok"

// WebhookService handles provider webhook deliveries
type WebhookService struct {
	validator    domain.WebhookValidator
	decoder      domain.WebhookDecoder
	meetings     domain.MeetingRepository
	agents       domain.AgentRepository
	controller   domain.SessionController
	bootstrapper AgentBootstrapper
	events       domain.MeetingEventSender
	metrics      *metrics.Metrics
	config       ServiceConfig
	now          func() time.Time
}

// WebhookRequest represents the webhook processing request
type WebhookRequest struct {
	Signature string
	APIKey    string
	RawBody   []byte
}

// WebhookResponse represents the webhook processing response
type WebhookResponse struct {
	Status    string
	EventType string
	// Transition is the lifecycle effect the event had
	Transition models.MeetingTransition
}

// WebhookServiceDeps are the collaborators of the WebhookService.
type WebhookServiceDeps struct {
	Validator    domain.WebhookValidator
	Decoder      domain.WebhookDecoder
	Meetings     domain.MeetingRepository
	Agents       domain.AgentRepository
	Controller   domain.SessionController
	Bootstrapper AgentBootstrapper
	Events       domain.MeetingEventSender
	Metrics      *metrics.Metrics
}

// NewWebhookService creates a new WebhookService
func NewWebhookService(deps WebhookServiceDeps, config ServiceConfig) *WebhookService {
	if config.CallType == "" {
		config.CallType = constants.DefaultCallType
	}
	if config.CallEndTimeout <= 0 {
		config.CallEndTimeout = constants.DefaultCallEndTimeout
	}
	return &WebhookService{
		validator:    deps.Validator,
		decoder:      deps.Decoder,
		meetings:     deps.Meetings,
		agents:       deps.Agents,
		controller:   deps.Controller,
		bootstrapper: deps.Bootstrapper,
		events:       deps.Events,
		metrics:      deps.Metrics,
		config:       config,
		now:          time.Now,
	}
}

// ServiceReady checks if the service is ready to process requests
func (s *WebhookService) ServiceReady() bool {
	return s.validator != nil &&
		s.decoder != nil &&
		s.meetings != nil &&
		s.agents != nil &&
		s.controller != nil &&
		s.bootstrapper != nil
}

// ProcessWebhookEvent verifies, decodes and applies one webhook delivery.
// Every failure is a *domain.DomainError whose message is the public
// response text.
func (s *WebhookService) ProcessWebhookEvent(ctx context.Context, req WebhookRequest) (resp *WebhookResponse, err error) {
	eventType := ""
	defer func() {
		s.metrics.ObserveWebhook(metricEventType(eventType), webhookOutcome(resp, err))
	}()

	if req.Signature == "" || req.APIKey == "" {
		slog.WarnContext(ctx, "webhook rejected, missing signature or api key",
			"has_signature", req.Signature != "",
			"has_api_key", req.APIKey != "",
		)
		return nil, domain.NewValidationError(MessageMissingHeaders)
	}

	if !s.validator.Verify(req.RawBody, req.Signature) {
		slog.WarnContext(ctx, "webhook rejected, invalid signature")
		return nil, domain.NewUnauthorizedError(MessageInvalidSignature, domain.ErrInvalidSignature)
	}

	event, err := s.decoder.Decode(req.RawBody)
	if err != nil {
		return nil, s.decodeFailure(ctx, err)
	}
	eventType = event.EventType()
	ctx = logging.AppendCtx(ctx, slog.String("event_type", eventType))

	transition := models.PlanTransition(event)
	switch ev := event.(type) {
	case models.SessionStartedEvent:
		err = s.handleSessionStarted(ctx, ev)
	case models.ParticipantLeftEvent:
		err = s.handleParticipantLeft(ctx, ev)
	default:
		slog.DebugContext(ctx, "ignoring unhandled webhook event")
	}
	if err != nil {
		return nil, err
	}

	return &WebhookResponse{Status: StatusOK, EventType: eventType, Transition: transition}, nil
}

func (s *WebhookService) decodeFailure(ctx context.Context, err error) error {
	var decodeErr *models.DecodeError
	if errors.As(err, &decodeErr) && decodeErr.Kind == models.DecodeErrorMissingCorrelationID {
		slog.WarnContext(ctx, "webhook rejected, missing meeting id",
			"event_type", decodeErr.EventType,
			logging.ErrKey, err,
		)
		return domain.NewValidationError(MessageMissingMeetingID, err)
	}

	slog.WarnContext(ctx, "webhook rejected, invalid payload", logging.ErrKey, err)
	return domain.NewValidationError(MessageInvalidPayload, err)
}

// handleSessionStarted activates the meeting, then attaches its agent. The
// activation stays committed whatever happens after it.
func (s *WebhookService) handleSessionStarted(ctx context.Context, event models.SessionStartedEvent) error {
	ctx = logging.AppendCtx(ctx, slog.String("meeting_id", event.MeetingID))
	if event.SessionID != "" {
		ctx = logging.AppendCtx(ctx, slog.String("session_id", event.SessionID))
	}

	meeting, err := s.meetings.ConditionalUpdate(ctx, event.MeetingID,
		models.SessionStartCondition(), models.SessionStartPatch(s.now()))
	if err != nil {
		if errors.Is(err, domain.ErrMeetingNotFoundOrStarted) {
			slog.InfoContext(ctx, "session start ignored, meeting not found or already started")
			return domain.NewNotFoundError(MessageNotFoundOrStarted, err)
		}
		slog.ErrorContext(ctx, "failed to activate meeting", logging.ErrKey, err)
		return domain.NewInternalError(MessageInternalError, err)
	}
	slog.InfoContext(ctx, "meeting activated by session start")

	agent, err := s.agents.Get(ctx, meeting.AgentID)
	if err != nil {
		if errors.Is(err, domain.ErrAgentNotFound) {
			slog.WarnContext(ctx, "meeting is active but its agent was not found", "agent_id", meeting.AgentID)
			return domain.NewNotFoundError(MessageAgentNotFound, err)
		}
		slog.ErrorContext(ctx, "failed to get meeting agent", "agent_id", meeting.AgentID, logging.ErrKey, err)
		return domain.NewInternalError(MessageInternalError, err)
	}

	s.publishMeetingStarted(ctx, meeting)

	if err := s.bootstrapper.Bootstrap(ctx, meeting, agent); err != nil {
		slog.ErrorContext(ctx, "failed to bootstrap agent session",
			"agent_id", agent.ID,
			logging.ErrKey, err,
		)
	}
	return nil
}

// handleParticipantLeft ends the call of the meeting. The meeting record is
// not changed.
func (s *WebhookService) handleParticipantLeft(ctx context.Context, event models.ParticipantLeftEvent) error {
	ctx = logging.AppendCtx(ctx, slog.String("meeting_id", event.MeetingID))

	call := s.controller.Call(s.config.CallType, event.MeetingID)
	endCtx, cancel := context.WithTimeout(ctx, s.config.CallEndTimeout)
	err := call.End(endCtx)
	cancel()
	if err != nil {
		slog.ErrorContext(ctx, "failed to end call", "call_cid", call.CID(), logging.ErrKey, err)
		return domain.NewInternalError(MessageInternalError, err)
	}
	slog.InfoContext(ctx, "call ended after participant left",
		"call_cid", call.CID(),
		"participant_user_id", event.ParticipantUserID,
	)

	if err := s.bootstrapper.Detach(ctx, event.MeetingID); err != nil {
		slog.WarnContext(ctx, "failed to close agent session", logging.ErrKey, err)
	}

	if s.events != nil {
		err := s.events.SendMeetingSessionEndRequested(ctx, models.MeetingSessionEndMessage{
			MeetingID:         event.MeetingID,
			CallCID:           call.CID(),
			ParticipantUserID: event.ParticipantUserID,
		})
		if err != nil {
			slog.WarnContext(ctx, "failed to publish session end event", logging.ErrKey, err)
		}
	}
	return nil
}

func (s *WebhookService) publishMeetingStarted(ctx context.Context, meeting *models.Meeting) {
	if s.events == nil {
		return
	}
	msg := models.MeetingStartedMessage{MeetingID: meeting.ID, AgentID: meeting.AgentID}
	if meeting.StartedAt != nil {
		msg.StartedAt = *meeting.StartedAt
	}
	if err := s.events.SendMeetingStarted(ctx, msg); err != nil {
		slog.WarnContext(ctx, "failed to publish meeting started event", logging.ErrKey, err)
	}
}

// metricEventType keeps the event_type label bounded.
func metricEventType(eventType string) string {
	switch eventType {
	case "", models.EventTypeCallSessionStarted, models.EventTypeCallSessionParticipantLeft:
		return eventType
	default:
		return "unhandled"
	}
}

func webhookOutcome(resp *WebhookResponse, err error) string {
	if err == nil {
		if resp != nil && resp.Transition == models.TransitionNone {
			return metrics.OutcomeIgnored
		}
		return metrics.OutcomeOK
	}

	switch domain.GetErrorMessage(err, "") {
	case MessageMissingHeaders:
		return metrics.OutcomeMissingHeaders
	case MessageInvalidSignature:
		return metrics.OutcomeInvalidSignature
	case MessageInvalidPayload:
		return metrics.OutcomeInvalidPayload
	case MessageMissingMeetingID:
		return metrics.OutcomeMissingMeetingID
	case MessageNotFoundOrStarted:
		return metrics.OutcomeNotFoundOrStarted
	case MessageAgentNotFound:
		return metrics.OutcomeAgentNotFound
	default:
		return metrics.OutcomeError
	}
}
