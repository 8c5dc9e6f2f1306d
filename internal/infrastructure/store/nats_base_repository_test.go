// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEntity for testing the base repository
type TestEntity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestNatsBaseRepository_IsReady(t *testing.T) {
	tests := []struct {
		name     string
		kvStore  INatsKeyValue
		expected bool
	}{
		{
			name:     "ready when kvStore is not nil",
			kvStore:  newMockNatsKeyValue(),
			expected: true,
		},
		{
			name:     "not ready when kvStore is nil",
			kvStore:  nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewNatsBaseRepository[TestEntity](tt.kvStore, "test")
			assert.Equal(t, tt.expected, repo.IsReady())
		})
	}
}

func TestNatsBaseRepository_Ping(t *testing.T) {
	ctx := context.Background()

	t.Run("reachable", func(t *testing.T) {
		repo := NewNatsBaseRepository[TestEntity](newMockNatsKeyValue(), "test")
		assert.NoError(t, repo.Ping(ctx))
	})

	t.Run("status error", func(t *testing.T) {
		mockKV := newMockNatsKeyValue()
		mockKV.statusError = errors.New("nats: timeout")
		repo := NewNatsBaseRepository[TestEntity](mockKV, "test")

		err := repo.Ping(ctx)
		assert.Equal(t, domain.ErrorTypeUnavailable, domain.GetErrorType(err))
	})

	t.Run("not configured", func(t *testing.T) {
		repo := NewNatsBaseRepository[TestEntity](nil, "test")
		assert.Equal(t, domain.ErrorTypeUnavailable, domain.GetErrorType(repo.Ping(ctx)))
	})
}

func TestNatsBaseRepository_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("successful get", func(t *testing.T) {
		mockKV := newMockNatsKeyValue()
		repo := NewNatsBaseRepository[TestEntity](mockKV, "test")

		entity := &TestEntity{ID: "test-1", Name: "Test Entity"}
		entityJSON, _ := json.Marshal(entity)
		mockKV.set("test-key", entityJSON)

		result, err := repo.Get(ctx, "test-key")

		assert.NoError(t, err)
		require.NotNil(t, result)
		assert.Equal(t, entity.ID, result.ID)
		assert.Equal(t, entity.Name, result.Name)
	})

	t.Run("not found", func(t *testing.T) {
		mockKV := newMockNatsKeyValue()
		repo := NewNatsBaseRepository[TestEntity](mockKV, "test")

		result, err := repo.Get(ctx, "nonexistent")

		assert.Error(t, err)
		assert.Nil(t, result)
		assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))
	})

	t.Run("store failure", func(t *testing.T) {
		mockKV := newMockNatsKeyValue()
		mockKV.getError = errors.New("nats: connection closed")
		repo := NewNatsBaseRepository[TestEntity](mockKV, "test")

		result, err := repo.Get(ctx, "test-key")

		assert.Nil(t, result)
		assert.Equal(t, domain.ErrorTypeInternal, domain.GetErrorType(err))
	})

	t.Run("corrupt value", func(t *testing.T) {
		mockKV := newMockNatsKeyValue()
		mockKV.set("test-key", []byte("{not json"))
		repo := NewNatsBaseRepository[TestEntity](mockKV, "test")

		result, err := repo.Get(ctx, "test-key")

		assert.Nil(t, result)
		assert.ErrorIs(t, err, domain.ErrUnmarshal)
	})

	t.Run("repository not ready", func(t *testing.T) {
		repo := NewNatsBaseRepository[TestEntity](nil, "test")

		result, err := repo.Get(ctx, "test-key")

		assert.Error(t, err)
		assert.Nil(t, result)
		assert.Equal(t, domain.ErrorTypeUnavailable, domain.GetErrorType(err))
	})
}

func TestNatsBaseRepository_GetWithRevision(t *testing.T) {
	ctx := context.Background()
	mockKV := newMockNatsKeyValue()
	repo := NewNatsBaseRepository[TestEntity](mockKV, "test")

	entity := &TestEntity{ID: "test-1", Name: "Test Entity"}
	entityJSON, _ := json.Marshal(entity)
	for range 5 {
		mockKV.set("test-key", entityJSON)
	}

	result, revision, err := repo.GetWithRevision(ctx, "test-key")

	assert.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, entity.ID, result.ID)
	assert.Equal(t, uint64(5), revision)
}

func TestNatsBaseRepository_Create(t *testing.T) {
	ctx := context.Background()
	entity := &TestEntity{ID: "test-1", Name: "Test Entity"}

	t.Run("successful create", func(t *testing.T) {
		mockKV := newMockNatsKeyValue()
		repo := NewNatsBaseRepository[TestEntity](mockKV, "test")

		err := repo.Create(ctx, "test-key", entity)

		assert.NoError(t, err)

		// Verify data was stored
		value, revision, exists := mockKV.value("test-key")
		require.True(t, exists)
		assert.Equal(t, uint64(1), revision)
		var stored TestEntity
		require.NoError(t, json.Unmarshal(value, &stored))
		assert.Equal(t, *entity, stored)
	})

	t.Run("put error", func(t *testing.T) {
		mockKV := newMockNatsKeyValue()
		mockKV.putError = errors.New("put failed")
		repo := NewNatsBaseRepository[TestEntity](mockKV, "test")

		err := repo.Create(ctx, "test-key", entity)

		assert.Equal(t, domain.ErrorTypeInternal, domain.GetErrorType(err))
	})
}

func TestNatsBaseRepository_Update(t *testing.T) {
	ctx := context.Background()
	original := &TestEntity{ID: "test-1", Name: "Original"}
	updated := &TestEntity{ID: "test-1", Name: "Updated"}

	t.Run("successful update", func(t *testing.T) {
		mockKV := newMockNatsKeyValue()
		repo := NewNatsBaseRepository[TestEntity](mockKV, "test")
		require.NoError(t, repo.Create(ctx, "test-key", original))

		revision, err := repo.Update(ctx, "test-key", updated, 1)

		assert.NoError(t, err)
		assert.Equal(t, uint64(2), revision)
		result, err := repo.Get(ctx, "test-key")
		require.NoError(t, err)
		assert.Equal(t, "Updated", result.Name)
	})

	t.Run("revision mismatch", func(t *testing.T) {
		mockKV := newMockNatsKeyValue()
		repo := NewNatsBaseRepository[TestEntity](mockKV, "test")
		require.NoError(t, repo.Create(ctx, "test-key", original))

		_, err := repo.Update(ctx, "test-key", updated, 99)

		assert.Equal(t, domain.ErrorTypeConflict, domain.GetErrorType(err))
		assert.ErrorIs(t, err, domain.ErrRevisionMismatch)
	})

	t.Run("key not found", func(t *testing.T) {
		repo := NewNatsBaseRepository[TestEntity](newMockNatsKeyValue(), "test")

		_, err := repo.Update(ctx, "missing", updated, 1)

		assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))
	})

	t.Run("store failure", func(t *testing.T) {
		mockKV := newMockNatsKeyValue()
		mockKV.updateError = errors.New("nats: no responders")
		repo := NewNatsBaseRepository[TestEntity](mockKV, "test")

		_, err := repo.Update(ctx, "test-key", updated, 1)

		assert.Equal(t, domain.ErrorTypeInternal, domain.GetErrorType(err))
		assert.NotErrorIs(t, err, domain.ErrRevisionMismatch)
	})
}
