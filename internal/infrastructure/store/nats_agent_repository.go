// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"time"

	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/domain/models"
)

// NatsAgentRepository is the NATS KV store repository for agents.
type NatsAgentRepository struct {
	base *NatsBaseRepository[models.Agent]
	keys *KeyBuilder
}

// NewNatsAgentRepository creates a new NATS KV store repository for agents.
func NewNatsAgentRepository(agents INatsKeyValue) *NatsAgentRepository {
	return &NatsAgentRepository{
		base: NewNatsBaseRepository[models.Agent](agents, "agent"),
		keys: NewKeyBuilder(""),
	}
}

func (s *NatsAgentRepository) IsReady(ctx context.Context) error {
	return s.base.Ping(ctx)
}

func (s *NatsAgentRepository) Get(ctx context.Context, agentID string) (*models.Agent, error) {
	if agentID == "" {
		return nil, domain.NewNotFoundError("agent not found", domain.ErrAgentNotFound)
	}
	agent, err := s.base.Get(ctx, s.keys.EntityKey(agentID))
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			return nil, domain.NewNotFoundError("agent not found", domain.ErrAgentNotFound)
		}
		return nil, err
	}
	return agent, nil
}

func (s *NatsAgentRepository) Create(ctx context.Context, agent *models.Agent) error {
	if agent == nil || agent.ID == "" {
		return domain.NewValidationError("agent id is required", domain.ErrValidationFailed)
	}
	now := time.Now().UTC()
	if agent.CreatedAt == nil {
		agent.CreatedAt = &now
	}
	agent.UpdatedAt = &now
	return s.base.Create(ctx, s.keys.EntityKey(agent.ID), agent)
}
