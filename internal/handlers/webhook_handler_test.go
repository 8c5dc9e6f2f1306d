// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/middleware"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/service"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/pkg/constants"
)

type mockWebhookProcessor struct {
	mock.Mock
}

func (m *mockWebhookProcessor) ProcessWebhookEvent(ctx context.Context, req service.WebhookRequest) (*service.WebhookResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.WebhookResponse), args.Error(1)
}

func (m *mockWebhookProcessor) ServiceReady() bool {
	args := m.Called()
	return args.Bool(0)
}

func newWebhookRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, constants.WebhookPath, strings.NewReader(body))
	req.Header.Set(constants.SignatureHeader, "sig")
	req.Header.Set(constants.APIKeyHeader, "key")
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestWebhookHandler_ResponseMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "missing headers",
			err:        domain.NewValidationError(service.MessageMissingHeaders),
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"Missing signature or API key"}`,
		},
		{
			name:       "invalid signature",
			err:        domain.NewUnauthorizedError(service.MessageInvalidSignature, domain.ErrInvalidSignature),
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"Invalid signature"}`,
		},
		{
			name:       "invalid payload",
			err:        domain.NewValidationError(service.MessageInvalidPayload, errors.New("unexpected end of JSON input")),
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"Invalid JSON payload"}`,
		},
		{
			name:       "missing meeting id",
			err:        domain.NewValidationError(service.MessageMissingMeetingID),
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"Missing meeting ID"}`,
		},
		{
			name:       "not found or already started",
			err:        domain.NewNotFoundError(service.MessageNotFoundOrStarted, domain.ErrMeetingNotFoundOrStarted),
			wantStatus: http.StatusNotFound,
			wantBody:   `{"error":"Meeting not found or already started"}`,
		},
		{
			name:       "agent not found",
			err:        domain.NewNotFoundError(service.MessageAgentNotFound, domain.ErrAgentNotFound),
			wantStatus: http.StatusNotFound,
			wantBody:   `{"error":"Agent not found"}`,
		},
		{
			name:       "internal error hides the cause",
			err:        domain.NewInternalError("nats: connection closed"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"Internal server error"}`,
		},
		{
			name:       "plain error",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"Internal server error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockWebhookProcessor{}
			svc.On("ProcessWebhookEvent", mock.Anything, mock.Anything).Return(nil, tt.err).Once()

			w := httptest.NewRecorder()
			NewWebhookHandler(svc).ServeHTTP(w, newWebhookRequest(`{}`))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
			assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
			svc.AssertExpectations(t)
		})
	}
}

func TestWebhookHandler_OK(t *testing.T) {
	body := `{"type":"call.session_started","call":{"custom":{"meetingId":"m1"}}}`
	svc := &mockWebhookProcessor{}
	svc.On("ProcessWebhookEvent", mock.Anything, service.WebhookRequest{
		Signature: "sig",
		APIKey:    "key",
		RawBody:   []byte(body),
	}).Return(&service.WebhookResponse{Status: service.StatusOK}, nil).Once()

	w := httptest.NewRecorder()
	NewWebhookHandler(svc).ServeHTTP(w, newWebhookRequest(body))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	svc.AssertExpectations(t)
}

func TestWebhookHandler_UsesCapturedRawBody(t *testing.T) {
	// whitespace must survive byte for byte for the signature to match
	body := "{ \"type\" : \"call.recording_ready\" }\n"
	svc := &mockWebhookProcessor{}
	svc.On("ProcessWebhookEvent", mock.Anything, mock.MatchedBy(func(req service.WebhookRequest) bool {
		return string(req.RawBody) == body
	})).Return(&service.WebhookResponse{Status: service.StatusOK}, nil).Once()

	handler := middleware.WebhookBodyCaptureMiddleware(0)(NewWebhookHandler(svc))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, newWebhookRequest(body))

	require.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestWebhookHandler_BodyTooLarge(t *testing.T) {
	svc := &mockWebhookProcessor{}

	w := httptest.NewRecorder()
	NewWebhookHandler(svc).ServeHTTP(w, newWebhookRequest(strings.Repeat("x", int(constants.MaxWebhookBodyBytes)+1)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	svc.AssertNotCalled(t, "ProcessWebhookEvent", mock.Anything, mock.Anything)
}

func TestWebhookHandler_HandlerReady(t *testing.T) {
	ready := &mockWebhookProcessor{}
	ready.On("ServiceReady").Return(true)
	notReady := &mockWebhookProcessor{}
	notReady.On("ServiceReady").Return(false)

	assert.True(t, NewWebhookHandler(ready).HandlerReady())
	assert.False(t, NewWebhookHandler(notReady).HandlerReady())
	assert.False(t, NewWebhookHandler(nil).HandlerReady())
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusConflict, StatusCode(domain.NewConflictError("revision mismatch")))
	assert.Equal(t, http.StatusServiceUnavailable, StatusCode(domain.NewUnavailableError("down")))
}
