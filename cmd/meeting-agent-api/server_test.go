// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/handlers"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/infrastructure/sqlstore"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/metrics"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/service"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/pkg/constants"
)

type stubProcessor struct {
	ready bool
	got   service.WebhookRequest
}

func (p *stubProcessor) ProcessWebhookEvent(_ context.Context, req service.WebhookRequest) (*service.WebhookResponse, error) {
	p.got = req
	return &service.WebhookResponse{Status: service.StatusOK}, nil
}

func (p *stubProcessor) ServiceReady() bool { return p.ready }

func newTestServer(t *testing.T, processor *stubProcessor, repos *repositories) *httptest.Server {
	t.Helper()
	svc := NewMeetingAgentAPI(handlers.NewWebhookHandler(processor), repos)
	server := httptest.NewServer(newHTTPHandler(svc, metrics.New()))
	t.Cleanup(server.Close)
	return server
}

func sqliteRepos(t *testing.T) *repositories {
	t.Helper()
	env := environment{
		StoreBackend: sqlstore.BackendSQLite,
		DatabaseURL:  fmt.Sprintf("file:server-test-%d?mode=memory&cache=shared", time.Now().UnixNano()),
	}
	repos, err := setupRepositories(context.Background(), env, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repos.db.Close() })
	return repos
}

func TestHTTPHandler_Webhook(t *testing.T) {
	processor := &stubProcessor{ready: true}
	server := newTestServer(t, processor, sqliteRepos(t))

	req, err := http.NewRequest(http.MethodPost, server.URL+constants.WebhookPath, strings.NewReader(`{"type":"call.created"}`))
	require.NoError(t, err)
	req.Header.Set(constants.SignatureHeader, "abc")
	req.Header.Set(constants.APIKeyHeader, "key")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(constants.RequestIDHeader))
	assert.Equal(t, `{"type":"call.created"}`, string(processor.got.RawBody))
	assert.Equal(t, "abc", processor.got.Signature)
	assert.Equal(t, "key", processor.got.APIKey)
}

func TestHTTPHandler_WebhookRejectsGet(t *testing.T) {
	server := newTestServer(t, &stubProcessor{ready: true}, nil)

	resp, err := http.Get(server.URL + constants.WebhookPath)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.NotEqual(t, http.StatusOK, resp.StatusCode)
}

func TestHTTPHandler_Probes(t *testing.T) {
	t.Run("livez", func(t *testing.T) {
		server := newTestServer(t, &stubProcessor{}, nil)

		resp, err := http.Get(server.URL + constants.LivezPath)
		require.NoError(t, err)
		_ = resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("readyz with healthy stores", func(t *testing.T) {
		server := newTestServer(t, &stubProcessor{ready: true}, sqliteRepos(t))

		resp, err := http.Get(server.URL + constants.ReadyzPath)
		require.NoError(t, err)
		_ = resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("readyz when not wired", func(t *testing.T) {
		server := newTestServer(t, &stubProcessor{ready: false}, nil)

		resp, err := http.Get(server.URL + constants.ReadyzPath)
		require.NoError(t, err)
		_ = resp.Body.Close()

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})

	t.Run("readyz with closed database", func(t *testing.T) {
		repos := sqliteRepos(t)
		require.NoError(t, repos.db.Close())
		server := newTestServer(t, &stubProcessor{ready: true}, repos)

		resp, err := http.Get(server.URL + constants.ReadyzPath)
		require.NoError(t, err)
		_ = resp.Body.Close()

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})
}

func TestHTTPHandler_Metrics(t *testing.T) {
	server := newTestServer(t, &stubProcessor{ready: true}, nil)

	resp, err := http.Get(server.URL + constants.MetricsPath)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
