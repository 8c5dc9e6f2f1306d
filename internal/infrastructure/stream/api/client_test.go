// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func newTestClient(serverURL string) *Client {
	return NewClient(Config{
		APIKey:         "test-key",
		APISecret:      testSecret,
		BaseURL:        serverURL,
		Timeout:        5 * time.Second,
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	})
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient(Config{APIKey: "k", APISecret: "s"})

	assert.Equal(t, BaseURL, client.config.BaseURL)
	assert.Equal(t, DefaultClientTimeout, client.config.Timeout)
	assert.Equal(t, DefaultMaxRetries, client.config.MaxRetries)
	assert.Equal(t, DefaultInitialBackoff, client.config.InitialBackoff)
	assert.Equal(t, DefaultMaxBackoff, client.config.MaxBackoff)
	assert.Equal(t, DefaultBackoffMultiplier, client.config.BackoffMultiplier)
	assert.Equal(t, DefaultTokenTTL, client.config.TokenTTL)
}

func TestCall_CID(t *testing.T) {
	client := newTestClient("http://localhost")
	assert.Equal(t, "default:m1", client.Call("default", "m1").CID())
}

func TestCall_End(t *testing.T) {
	var gotPath, gotAPIKey, gotAuth, gotAuthType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAPIKey = r.URL.Query().Get("api_key")
		gotAuth = r.Header.Get("Authorization")
		gotAuthType = r.Header.Get("stream-auth-type")
		assert.Equal(t, http.MethodPost, r.Method)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"duration":"1ms"}`))
	}))
	defer server.Close()

	err := newTestClient(server.URL).Call("default", "m1").End(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "/video/call/default/m1/mark_ended", gotPath)
	assert.Equal(t, "test-key", gotAPIKey)
	assert.Equal(t, "jwt", gotAuthType)

	token, err := jwt.Parse([]byte(gotAuth), jwt.WithKey(jwa.HS256, []byte(testSecret)))
	require.NoError(t, err)
	serverClaim, ok := token.Get("server")
	require.True(t, ok)
	assert.Equal(t, true, serverClaim)
}

func TestCall_End_RetriesServerErrors(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	err := newTestClient(server.URL).Call("default", "m1").End(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestCall_End_RetriesRateLimit(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	require.NoError(t, newTestClient(server.URL).Call("default", "m1").End(context.Background()))
	assert.Equal(t, int32(2), attempts.Load())
}

func TestCall_End_GivesUpAfterRetries(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"code":-1,"message":"upstream down"}`))
	}))
	defer server.Close()

	err := newTestClient(server.URL).Call("default", "m1").End(context.Background())

	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "upstream down", apiErr.Message)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestCall_End_DoesNotRetryClientErrors(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":16,"message":"call not found"}`))
	}))
	defer server.Close()

	err := newTestClient(server.URL).Call("default", "m1").End(context.Background())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, 16, apiErr.Code)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestCall_End_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(Config{
		APIKey:         "k",
		APISecret:      testSecret,
		BaseURL:        server.URL,
		MaxRetries:     3,
		InitialBackoff: time.Second,
		MaxBackoff:     time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := client.Call("default", "m1").End(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		err        error
		want       bool
	}{
		{"server error", http.StatusInternalServerError, nil, true},
		{"bad gateway", http.StatusBadGateway, nil, true},
		{"rate limited", http.StatusTooManyRequests, nil, true},
		{"bad request", http.StatusBadRequest, nil, false},
		{"ok", http.StatusOK, nil, false},
		{"cancelled", 0, context.Canceled, false},
		{"deadline", 0, context.DeadlineExceeded, false},
		{"network error", 0, assert.AnError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shouldRetry(tt.statusCode, tt.err))
		})
	}
}

func TestCalculateBackoff(t *testing.T) {
	client := NewClient(Config{
		APISecret:         testSecret,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        time.Second,
		BackoffMultiplier: 2,
	})

	assert.Equal(t, 100*time.Millisecond, client.calculateBackoff(0))

	for attempt := 1; attempt <= 6; attempt++ {
		backoff := client.calculateBackoff(attempt)
		assert.GreaterOrEqual(t, backoff, 100*time.Millisecond)
		assert.LessOrEqual(t, backoff, 1250*time.Millisecond, "attempt %d", attempt)
	}
}

func TestTokenIssuer(t *testing.T) {
	issuer := NewTokenIssuer(testSecret)
	fixed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return fixed }

	t.Run("user token", func(t *testing.T) {
		signed, expiry, err := issuer.UserToken("agent-a1", time.Hour)
		require.NoError(t, err)
		assert.Equal(t, fixed.Add(time.Hour), expiry)

		token, err := jwt.Parse([]byte(signed), jwt.WithKey(jwa.HS256, []byte(testSecret)), jwt.WithValidate(false))
		require.NoError(t, err)
		userID, ok := token.Get("user_id")
		require.True(t, ok)
		assert.Equal(t, "agent-a1", userID)
		assert.True(t, fixed.Add(time.Hour).Equal(token.Expiration()))
	})

	t.Run("user token requires id", func(t *testing.T) {
		_, _, err := issuer.UserToken("", time.Hour)
		assert.Error(t, err)
	})

	t.Run("wrong key rejected", func(t *testing.T) {
		signed, _, err := issuer.ServerToken(time.Hour)
		require.NoError(t, err)
		_, err = jwt.Parse([]byte(signed), jwt.WithKey(jwa.HS256, []byte("other")), jwt.WithValidate(false))
		assert.Error(t, err)
	})

	t.Run("missing secret", func(t *testing.T) {
		_, _, err := NewTokenIssuer("").ServerToken(time.Hour)
		assert.Error(t, err)
	})
}

func TestServerTokenSource_ExpiryLeeway(t *testing.T) {
	issuer := NewTokenIssuer(testSecret)
	fixed := time.Now().UTC()
	issuer.now = func() time.Time { return fixed }

	token, err := (&serverTokenSource{issuer: issuer, ttl: time.Hour}).Token()

	require.NoError(t, err)
	assert.Equal(t, "jwt", token.TokenType)
	assert.Equal(t, fixed.Add(time.Hour-tokenExpiryLeeway), token.Expiry)
}
