// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

// Constants for the HTTP request headers
const (
	// RequestIDHeader is the header name for the request ID
	RequestIDHeader string = "X-REQUEST-ID"

	// SignatureHeader carries the provider's HMAC signature of the raw webhook body
	SignatureHeader string = "x-signature"

	// APIKeyHeader carries the provider application key of a webhook delivery
	APIKeyHeader string = "x-api-key"
)

// contextRequestID is the type for the request ID context key
type contextRequestID string

// RequestIDContextID is the context ID for the request ID
const RequestIDContextID contextRequestID = "X-REQUEST-ID"

// HTTP paths served by the meeting agent service
const (
	WebhookPath = "/webhook"
	LivezPath   = "/livez"
	ReadyzPath  = "/readyz"
	MetricsPath = "/metrics"
)

// MaxWebhookBodyBytes is the largest webhook body accepted.
const MaxWebhookBodyBytes int64 = 1 << 20
