// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import "github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/domain/models"

// WebhookValidator checks that a webhook body was signed by the provider.
type WebhookValidator interface {
	// Verify reports whether signature matches rawBody. It never fails for
	// malformed input, it returns false.
	Verify(rawBody []byte, signature string) bool
}

// WebhookDecoder turns a raw webhook body into a typed event.
type WebhookDecoder interface {
	Decode(rawBody []byte) (models.InboundEvent, error)
}
