// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/handlers"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/pkg/concurrent"
)

const readinessTimeout = 2 * time.Second

// readinessCheck reports whether a storage dependency can serve requests.
type readinessCheck interface {
	IsReady(ctx context.Context) error
}

// MeetingAgentAPI serves the webhook endpoint and the health probes.
type MeetingAgentAPI struct {
	webhookHandler *handlers.WebhookHandler
	checks         map[string]readinessCheck
}

// NewMeetingAgentAPI creates a new MeetingAgentAPI.
func NewMeetingAgentAPI(webhookHandler *handlers.WebhookHandler, repos *repositories) *MeetingAgentAPI {
	checks := map[string]readinessCheck{}
	if repos != nil {
		checks["meetings"] = repos.Meeting
		checks["agents"] = repos.Agent
	}
	return &MeetingAgentAPI{
		webhookHandler: webhookHandler,
		checks:         checks,
	}
}

// Readyz checks if the service is able to take inbound requests.
func (s *MeetingAgentAPI) Readyz(w http.ResponseWriter, r *http.Request) {
	if !s.webhookHandler.HandlerReady() {
		writeProbe(w, http.StatusServiceUnavailable, domain.ErrServiceUnavailable.Error()+"\n")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	tasks := make([]concurrent.Task, 0, len(s.checks))
	for name, check := range s.checks {
		tasks = append(tasks, concurrent.Task{Name: name, Fn: check.IsReady})
	}
	if err := concurrent.NewWorkerPool(len(tasks)).RunAll(ctx, tasks...); err != nil {
		slog.WarnContext(ctx, "readiness check failed", logging.ErrKey, err)
		writeProbe(w, http.StatusServiceUnavailable, domain.ErrServiceUnavailable.Error()+"\n")
		return
	}

	writeProbe(w, http.StatusOK, "OK\n")
}

// Livez checks if the service is alive.
func (s *MeetingAgentAPI) Livez(w http.ResponseWriter, _ *http.Request) {
	// This always returns as long as the service is still running. As this
	// endpoint is expected to be used as a Kubernetes liveness check, this
	// service must likewise self-detect non-recoverable errors and
	// self-terminate.
	writeProbe(w, http.StatusOK, "OK\n")
}

func writeProbe(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
