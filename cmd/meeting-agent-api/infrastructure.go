// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/uptrace/bun"

	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/infrastructure/messaging"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/infrastructure/realtime"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/infrastructure/sqlstore"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/infrastructure/store"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/infrastructure/stream/api"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/infrastructure/stream/webhook"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/pkg/concurrent"
)

const gracefulShutdownSeconds = 25

// repositories are the storage collaborators of the webhook service.
type repositories struct {
	Meeting domain.MeetingRepository
	Agent   domain.AgentRepository
	// db is set for SQL backends only.
	db *bun.DB
}

// setupNATS connects to NATS. An unexpected close of the connection
// triggers a shutdown through done.
func setupNATS(ctx context.Context, env environment, gracefulCloseWG *sync.WaitGroup, done chan os.Signal) (*nats.Conn, error) {
	gracefulCloseWG.Add(1)
	natsConn, err := nats.Connect(
		env.NatsURL,
		nats.Name("lfx-v2-meeting-agent-service"),
		nats.DrainTimeout(gracefulShutdownSeconds*time.Second),
		nats.ConnectHandler(func(_ *nats.Conn) {
			slog.With("nats_url", env.NatsURL).Info("NATS connection established")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, s *nats.Subscription, err error) {
			if s != nil {
				slog.With(logging.ErrKey, err, "subject", s.Subject).Error("async NATS error")
			} else {
				slog.With(logging.ErrKey, err).Error("async NATS error outside subscription")
			}
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if ctx.Err() != nil {
				// Expected during graceful shutdown.
				gracefulCloseWG.Done()
				return
			}
			slog.Error("NATS connection closed unexpectedly", logging.PriorityCritical())
			gracefulCloseWG.Done()
			done <- os.Interrupt
		}),
	)
	if err != nil {
		gracefulCloseWG.Done()
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return natsConn, nil
}

// getKeyValueStores looks up the meeting and agent buckets concurrently.
func getKeyValueStores(ctx context.Context, env environment, natsConn *nats.Conn) (*repositories, error) {
	js, err := jetstream.New(natsConn)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	var meetingsKV, agentsKV jetstream.KeyValue
	pool := concurrent.NewWorkerPool(2)
	err = pool.Run(ctx,
		concurrent.Task{Name: env.MeetingsBucket, Fn: func(ctx context.Context) error {
			kv, err := js.KeyValue(ctx, env.MeetingsBucket)
			meetingsKV = kv
			return err
		}},
		concurrent.Task{Name: env.AgentsBucket, Fn: func(ctx context.Context) error {
			kv, err := js.KeyValue(ctx, env.AgentsBucket)
			agentsKV = kv
			return err
		}},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get key-value store: %w", err)
	}

	return &repositories{
		Meeting: store.NewNatsMeetingRepository(meetingsKV),
		Agent:   store.NewNatsAgentRepository(agentsKV),
	}, nil
}

// getSQLStores opens the database and makes sure the schema exists.
func getSQLStores(ctx context.Context, env environment) (*repositories, error) {
	db, err := sqlstore.Open(env.StoreBackend, env.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to reach %s database: %w", env.StoreBackend, err)
	}
	if err := sqlstore.CreateSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &repositories{
		Meeting: sqlstore.NewMeetingRepository(db),
		Agent:   sqlstore.NewAgentRepository(db),
		db:      db,
	}, nil
}

// setupRepositories picks the storage backend named by STORE_BACKEND.
func setupRepositories(ctx context.Context, env environment, natsConn *nats.Conn) (*repositories, error) {
	if env.StoreBackend == StoreBackendNATS {
		return getKeyValueStores(ctx, env, natsConn)
	}
	return getSQLStores(ctx, env)
}

// setupStreamClients builds the provider REST client and the realtime
// connector that joins agents to calls.
func setupStreamClients(env environment) (*api.Client, *realtime.Client) {
	streamClient := api.NewClient(api.Config{
		APIKey:    env.Stream.APIKey,
		APISecret: env.Stream.APISecret,
		BaseURL:   env.Stream.BaseURL,
	})
	realtimeClient := realtime.NewClient(realtime.Config{
		BaseURL: env.Realtime.BaseURL,
		APIKey:  env.Stream.APIKey,
	}, streamClient)
	return streamClient, realtimeClient
}

// setupWebhookValidator returns the HMAC validator, or an accept-all mock
// when validation is disabled for local development.
func setupWebhookValidator(env environment) domain.WebhookValidator {
	if env.Stream.WebhookValidationDisabled {
		slog.Warn("Stream webhook signature validation is disabled, do not use in production")
		return webhook.NewMockWebhookValidator()
	}
	return webhook.NewStreamWebhookValidator(env.Stream.APISecret)
}

// setupEventSender publishes lifecycle events on NATS when connected.
func setupEventSender(natsConn *nats.Conn) domain.MeetingEventSender {
	if natsConn == nil {
		slog.Info("NATS not configured, meeting lifecycle events will not be published")
		return messaging.NoopEventSender{}
	}
	return messaging.NewMessageBuilder(natsConn)
}
