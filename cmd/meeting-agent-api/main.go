// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package main is the meeting agent service. It ingests video provider
// webhooks, drives the meeting lifecycle and attaches AI agents to live calls.
package main

import (
	"context"
	_ "expvar"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/handlers"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/infrastructure/stream/webhook"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/metrics"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/service"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/pkg/concurrent"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/pkg/utils"
)

func main() {
	env, envErr := parseEnv()
	flags := parseFlags(env.Port)

	logging.InitStructureLogConfig()

	if envErr != nil {
		slog.With(logging.ErrKey, envErr).Error("invalid configuration")
		os.Exit(1)
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	gracefulCloseWG := sync.WaitGroup{}

	otelShutdown, err := utils.SetupOTelSDK(ctx)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up OpenTelemetry SDK")
		return
	}

	// Setup NATS connection
	var natsConn *nats.Conn
	if env.NatsRequired {
		natsConn, err = setupNATS(ctx, env, &gracefulCloseWG, done)
		if err != nil {
			slog.With(logging.ErrKey, err).Error("error setting up NATS")
			return
		}
	}

	repos, err := setupRepositories(ctx, env, natsConn)
	if err != nil {
		slog.With(logging.ErrKey, err, "store_backend", env.StoreBackend).Error("error setting up repositories")
		return
	}

	// Initialize services
	serviceConfig := service.ServiceConfig{
		CallType:           env.Stream.CallType,
		RealtimeCredential: env.Realtime.Credential,
		BootstrapTimeout:   env.Realtime.BootstrapTimeout,
	}
	appMetrics := metrics.New()
	streamClient, realtimeClient := setupStreamClients(env)
	bootstrapService := service.NewAgentBootstrapService(
		realtimeClient,
		service.NewAgentSessionRegistry(),
		serviceConfig,
		appMetrics,
	)
	webhookService := service.NewWebhookService(service.WebhookServiceDeps{
		Validator:    setupWebhookValidator(env),
		Decoder:      webhook.NewEventDecoder(),
		Meetings:     repos.Meeting,
		Agents:       repos.Agent,
		Controller:   streamClient,
		Bootstrapper: bootstrapService,
		Events:       setupEventSender(natsConn),
		Metrics:      appMetrics,
	}, serviceConfig)

	// Initialize handlers
	webhookHandler := handlers.NewWebhookHandler(webhookService)
	svc := NewMeetingAgentAPI(webhookHandler, repos)

	httpServer := setupHTTPServer(flags, newHTTPHandler(svc, appMetrics), &gracefulCloseWG)

	slog.With(
		"store_backend", env.StoreBackend,
		"call_type", env.Stream.CallType,
		"bootstrap_timeout", env.Realtime.BootstrapTimeout.String(),
	).Info("meeting agent service started")

	// This next line blocks until SIGINT or SIGTERM is received.
	<-done

	gracefulShutdown(httpServer, natsConn, repos, bootstrapService, otelShutdown, &gracefulCloseWG, cancel)
}

// gracefulShutdown stops the HTTP server first so no new agents are attached,
// then closes agent sessions and the remaining connections.
func gracefulShutdown(
	httpServer *http.Server,
	natsConn *nats.Conn,
	repos *repositories,
	bootstrapService *service.AgentBootstrapService,
	otelShutdown func(context.Context) error,
	gracefulCloseWG *sync.WaitGroup,
	cancel context.CancelFunc,
) {
	// Cancel the background context so the NATS closed handler treats the
	// close as expected.
	cancel()

	ctx, shutdownCancel := context.WithTimeout(context.Background(), gracefulShutdownSeconds*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServer(ctx, httpServer, gracefulCloseWG); err != nil {
		slog.With(logging.ErrKey, err).Error("http shutdown error")
	}

	tasks := []concurrent.Task{
		{Name: "agent sessions", Fn: func(context.Context) error {
			return bootstrapService.Shutdown()
		}},
		{Name: "opentelemetry", Fn: otelShutdown},
	}
	if natsConn != nil {
		tasks = append(tasks, concurrent.Task{Name: "nats", Fn: func(context.Context) error {
			slog.Info("draining NATS connection")
			return natsConn.Drain()
		}})
	}
	if repos != nil && repos.db != nil {
		tasks = append(tasks, concurrent.Task{Name: "database", Fn: func(context.Context) error {
			return repos.db.Close()
		}})
	}

	if err := concurrent.NewWorkerPool(len(tasks)).RunAll(ctx, tasks...); err != nil {
		slog.With(logging.ErrKey, err).Error("error during graceful shutdown")
	}

	// Wait for the NATS closed handler and the HTTP server goroutine.
	gracefulCloseWG.Wait()
	slog.Info("graceful shutdown complete")
}
