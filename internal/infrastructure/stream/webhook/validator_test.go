// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sign(secret string, body []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

func TestStreamWebhookValidator_Verify(t *testing.T) {
	const secret = "stream-api-secret"
	body := []byte(`{"type":"call.session_started","call":{"custom":{"meetingId":"m1"}}}`)
	valid := sign(secret, body)

	tests := []struct {
		name      string
		secret    string
		body      []byte
		signature string
		expected  bool
	}{
		{
			name:      "valid signature",
			secret:    secret,
			body:      body,
			signature: valid,
			expected:  true,
		},
		{
			name:      "valid signature in upper case hex",
			secret:    secret,
			body:      body,
			signature: strings.ToUpper(valid),
			expected:  true,
		},
		{
			name:      "signature from another secret",
			secret:    secret,
			body:      body,
			signature: sign("other-secret", body),
			expected:  false,
		},
		{
			name:      "body modified after signing",
			secret:    secret,
			body:      []byte(`{"type":"call.session_started","call":{"custom":{"meetingId":"m2"}}}`),
			signature: valid,
			expected:  false,
		},
		{
			name:      "re-serialized body does not verify",
			secret:    secret,
			body:      []byte(`{"type": "call.session_started", "call": {"custom": {"meetingId": "m1"}}}`),
			signature: valid,
			expected:  false,
		},
		{
			name:      "empty signature",
			secret:    secret,
			body:      body,
			signature: "",
			expected:  false,
		},
		{
			name:      "malformed hex signature",
			secret:    secret,
			body:      body,
			signature: "not-hex-at-all",
			expected:  false,
		},
		{
			name:      "truncated signature",
			secret:    secret,
			body:      body,
			signature: valid[:32],
			expected:  false,
		},
		{
			name:      "secret not configured",
			secret:    "",
			body:      body,
			signature: sign("", body),
			expected:  false,
		},
		{
			name:      "empty body with matching signature",
			secret:    secret,
			body:      []byte{},
			signature: sign(secret, []byte{}),
			expected:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewStreamWebhookValidator(tt.secret)
			assert.Equal(t, tt.expected, v.Verify(tt.body, tt.signature))
		})
	}
}

func TestStreamWebhookValidator_Sign(t *testing.T) {
	v := NewStreamWebhookValidator("secret")
	body := []byte(`{"type":"call.created"}`)

	signature := v.Sign(body)

	assert.Equal(t, sign("secret", body), signature)
	assert.True(t, v.Verify(body, signature))
}

func TestMockWebhookValidator_Verify(t *testing.T) {
	v := NewMockWebhookValidator()
	assert.True(t, v.Verify([]byte("anything"), ""))
}
