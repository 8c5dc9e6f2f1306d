// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	goahttp "goa.design/goa/v3/http"

	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/middleware"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/service"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/pkg/constants"
)

// WebhookProcessor processes provider webhook deliveries.
type WebhookProcessor interface {
	ProcessWebhookEvent(ctx context.Context, req service.WebhookRequest) (*service.WebhookResponse, error)
	ServiceReady() bool
}

// WebhookHandler is the HTTP adapter of the webhook endpoint.
type WebhookHandler struct {
	service WebhookProcessor
}

// StatusResponse is the body of an accepted delivery.
type StatusResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the body of a rejected delivery.
type ErrorResponse struct {
	Error string `json:"error"`
}

func NewWebhookHandler(svc WebhookProcessor) *WebhookHandler {
	return &WebhookHandler{service: svc}
}

func (h *WebhookHandler) HandlerReady() bool {
	return h.service != nil && h.service.ServiceReady()
}

// ServeHTTP writes exactly one response per delivery.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rawBody, ok := middleware.GetRawBodyFromContext(ctx)
	if !ok {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, constants.MaxWebhookBodyBytes))
		if err != nil {
			var maxBytesErr *http.MaxBytesError
			if errors.As(err, &maxBytesErr) {
				writeResponse(ctx, w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: "Request body too large"})
				return
			}
			writeResponse(ctx, w, http.StatusBadRequest, ErrorResponse{Error: service.MessageInvalidPayload})
			return
		}
		rawBody = body
	}
	slog.DebugContext(ctx, "webhook received", "body", string(rawBody))

	resp, err := h.service.ProcessWebhookEvent(ctx, service.WebhookRequest{
		Signature: r.Header.Get(constants.SignatureHeader),
		APIKey:    r.Header.Get(constants.APIKeyHeader),
		RawBody:   rawBody,
	})
	if err != nil {
		status := StatusCode(err)
		if status >= http.StatusInternalServerError {
			slog.ErrorContext(ctx, "webhook processing failed", logging.ErrKey, err)
		}
		writeResponse(ctx, w, status, ErrorResponse{Error: publicMessage(err, status)})
		return
	}

	writeResponse(ctx, w, http.StatusOK, StatusResponse{Status: resp.Status})
}

// StatusCode maps an error to its HTTP status by domain error type.
func StatusCode(err error) int {
	switch domain.GetErrorType(err) {
	case domain.ErrorTypeValidation:
		return http.StatusBadRequest
	case domain.ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case domain.ErrorTypeNotFound:
		return http.StatusNotFound
	case domain.ErrorTypeConflict:
		return http.StatusConflict
	case domain.ErrorTypeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage never leaks the cause of a server side failure.
func publicMessage(err error, status int) string {
	if status == http.StatusInternalServerError {
		return service.MessageInternalError
	}
	return domain.GetErrorMessage(err, service.MessageInternalError)
}

func writeResponse(ctx context.Context, w http.ResponseWriter, status int, body any) {
	enc := goahttp.ResponseEncoder(ctx, w)
	w.WriteHeader(status)
	if err := enc.Encode(body); err != nil {
		slog.ErrorContext(ctx, "failed to write webhook response", logging.ErrKey, err)
	}
}
