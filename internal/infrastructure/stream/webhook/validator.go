// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package webhook verifies and decodes Stream Video webhook deliveries.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
)

// StreamWebhookValidator handles validation of Stream webhook signatures.
// Stream signs the raw request body with the application API secret using
// HMAC-SHA256 and sends the hex digest in the x-signature header.
type StreamWebhookValidator struct {
	APISecret string
}

// NewStreamWebhookValidator creates a new Stream webhook validator
func NewStreamWebhookValidator(apiSecret string) *StreamWebhookValidator {
	return &StreamWebhookValidator{
		APISecret: apiSecret,
	}
}

// Sign returns the hex encoded signature Stream would send for body.
func (v *StreamWebhookValidator) Sign(body []byte) string {
	h := hmac.New(sha256.New, []byte(v.APISecret))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// Verify validates the webhook signature over the raw body.
func (v *StreamWebhookValidator) Verify(body []byte, signature string) bool {
	if v.APISecret == "" {
		slog.Error("stream webhook api secret not configured")
		return false
	}

	signature = strings.TrimSpace(signature)
	if signature == "" {
		return false
	}

	got, err := hex.DecodeString(strings.ToLower(signature))
	if err != nil {
		slog.Warn("stream webhook signature is not valid hex", "signature_length", len(signature))
		return false
	}

	h := hmac.New(sha256.New, []byte(v.APISecret))
	h.Write(body)

	// Compare signatures using constant-time comparison
	if !hmac.Equal(got, h.Sum(nil)) {
		slog.Warn("stream webhook signature does not match expected signature")
		return false
	}

	return true
}
