// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/uptrace/bun"

	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/logging"
)

// AgentRepository stores agents in a SQL table.
type AgentRepository struct {
	db *bun.DB
}

// NewAgentRepository creates an agent repository on db.
func NewAgentRepository(db *bun.DB) *AgentRepository {
	return &AgentRepository{db: db}
}

func (r *AgentRepository) IsReady(ctx context.Context) error {
	if r == nil || r.db == nil {
		return domain.NewUnavailableError("agent repository is not available")
	}
	if err := r.db.PingContext(ctx); err != nil {
		return domain.NewUnavailableError("agent database is not reachable", err)
	}
	return nil
}

func (r *AgentRepository) Get(ctx context.Context, agentID string) (*models.Agent, error) {
	if agentID == "" {
		return nil, domain.NewNotFoundError("agent not found", domain.ErrAgentNotFound)
	}

	record := new(agentRecord)
	err := r.db.NewSelect().Model(record).Where("?TableAlias.id = ?", agentID).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFoundError("agent not found", domain.ErrAgentNotFound)
		}
		slog.ErrorContext(ctx, "error getting agent from database", logging.ErrKey, err, "agent_id", agentID)
		return nil, domain.NewInternalError("failed to retrieve agent from store", err)
	}
	return agentToDomain(record), nil
}

func (r *AgentRepository) Create(ctx context.Context, agent *models.Agent) error {
	if agent == nil || agent.ID == "" {
		return domain.NewValidationError("agent id is required", domain.ErrValidationFailed)
	}

	now := time.Now().UTC()
	record := &agentRecord{
		ID:           agent.ID,
		Name:         agent.Name,
		Instructions: agent.Instructions,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := r.db.NewInsert().Model(record).Exec(ctx); err != nil {
		slog.ErrorContext(ctx, "error creating agent in database", logging.ErrKey, err, "agent_id", agent.ID)
		return domain.NewInternalError("failed to create agent in store", err)
	}
	return nil
}
