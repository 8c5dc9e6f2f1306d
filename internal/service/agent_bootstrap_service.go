// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/metrics"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/pkg/constants"
)

// AgentBootstrapper attaches agents to live calls and detaches them.
type AgentBootstrapper interface {
	Bootstrap(ctx context.Context, meeting *models.Meeting, agent *models.Agent) error
	Detach(ctx context.Context, meetingID string) error
}

// AgentBootstrapService opens a realtime session for a meeting's agent and
// pushes the agent instructions into it.
type AgentBootstrapService struct {
	connector domain.RealtimeConnector
	sessions  *AgentSessionRegistry
	config    ServiceConfig
	metrics   *metrics.Metrics
}

var _ AgentBootstrapper = (*AgentBootstrapService)(nil)

// NewAgentBootstrapService creates a new AgentBootstrapService.
func NewAgentBootstrapService(
	connector domain.RealtimeConnector,
	sessions *AgentSessionRegistry,
	config ServiceConfig,
	m *metrics.Metrics,
) *AgentBootstrapService {
	if sessions == nil {
		sessions = NewAgentSessionRegistry()
	}
	if config.BootstrapTimeout <= 0 {
		config.BootstrapTimeout = constants.DefaultAgentBootstrapTimeout
	}
	if config.CallType == "" {
		config.CallType = constants.DefaultCallType
	}
	return &AgentBootstrapService{
		connector: connector,
		sessions:  sessions,
		config:    config,
		metrics:   m,
	}
}

// ServiceReady checks if the service is ready to process requests
func (s *AgentBootstrapService) ServiceReady() bool {
	return s.connector != nil
}

type bootstrapResult struct {
	session domain.RealtimeSession
	err     error
}

// Bootstrap attaches agent to the call of meeting. The session outlives ctx:
// only the bootstrap timeout bounds the attempt. A meeting that already has
// an agent session is left alone.
func (s *AgentBootstrapService) Bootstrap(ctx context.Context, meeting *models.Meeting, agent *models.Agent) error {
	if !s.sessions.Reserve(meeting.ID) {
		slog.InfoContext(ctx, "agent session already attached to meeting, skipping bootstrap")
		s.metrics.ObserveBootstrap(metrics.OutcomeBootstrapSkipped)
		return nil
	}

	bootstrapCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.BootstrapTimeout)
	defer cancel()

	results := make(chan bootstrapResult, 1)
	go func() {
		session, err := s.open(bootstrapCtx, meeting, agent)
		results <- bootstrapResult{session: session, err: err}
	}()

	var result bootstrapResult
	select {
	case result = <-results:
	case <-bootstrapCtx.Done():
		s.sessions.Release(meeting.ID)
		// A connector that ignores its context may still deliver a session.
		go func() {
			if late := <-results; late.session != nil {
				_ = late.session.Close()
			}
		}()
		s.metrics.ObserveBootstrap(metrics.OutcomeBootstrapTimeout)
		return fmt.Errorf("%w after %s", domain.ErrBootstrapTimeout, s.config.BootstrapTimeout)
	}

	if result.err != nil {
		s.sessions.Release(meeting.ID)
		switch {
		case errors.Is(result.err, domain.ErrBootstrapConfigure):
			s.metrics.ObserveBootstrap(metrics.OutcomeBootstrapConfigure)
		case errors.Is(result.err, context.DeadlineExceeded):
			s.metrics.ObserveBootstrap(metrics.OutcomeBootstrapTimeout)
			return fmt.Errorf("%w: %w", domain.ErrBootstrapTimeout, result.err)
		default:
			s.metrics.ObserveBootstrap(metrics.OutcomeBootstrapConnect)
		}
		return result.err
	}

	if !s.sessions.Store(meeting.ID, result.session) {
		// The call ended while the agent was connecting.
		if err := result.session.Close(); err != nil {
			slog.WarnContext(ctx, "failed to close agent session of ended call", logging.ErrKey, err)
		}
		s.metrics.ObserveBootstrap(metrics.OutcomeBootstrapSkipped)
		slog.InfoContext(ctx, "call ended during agent bootstrap, session closed", "agent_id", agent.ID)
		return nil
	}
	s.metrics.ObserveBootstrap(metrics.OutcomeBootstrapSuccessful)
	slog.InfoContext(ctx, "agent attached to meeting session", "agent_id", agent.ID)
	return nil
}

func (s *AgentBootstrapService) open(ctx context.Context, meeting *models.Meeting, agent *models.Agent) (domain.RealtimeSession, error) {
	session, err := s.connector.Connect(ctx, domain.RealtimeConnectRequest{
		CallType:      s.config.CallType,
		CallID:        meeting.ID,
		Credential:    s.config.RealtimeCredential,
		ParticipantID: agent.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrBootstrapConnect, err)
	}

	err = session.UpdateSession(ctx, domain.RealtimeSessionConfig{Instructions: agent.Instructions})
	if err != nil {
		if closeErr := session.Close(); closeErr != nil {
			slog.WarnContext(ctx, "failed to close unconfigured agent session", logging.ErrKey, closeErr)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrBootstrapConfigure, err)
	}

	return session, nil
}

// Detach closes the agent session of meetingID, if there is one.
func (s *AgentBootstrapService) Detach(ctx context.Context, meetingID string) error {
	closed, err := s.sessions.Close(meetingID)
	if err != nil {
		return err
	}
	if closed {
		slog.InfoContext(ctx, "agent session detached from meeting")
	}
	return nil
}

// Shutdown closes every open agent session.
func (s *AgentBootstrapService) Shutdown() error {
	return s.sessions.CloseAll()
}
