// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package realtime connects agents to calls through the provider's realtime
// agent endpoint over a websocket.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/logging"
)

const (
	// DefaultBaseURL is the provider's realtime agent endpoint
	DefaultBaseURL = "wss://video.stream-io-api.com/video/connect_agent"
	// DefaultHandshakeTimeout bounds the websocket upgrade
	DefaultHandshakeTimeout = 10 * time.Second
	// DefaultWriteTimeout bounds a single frame write when the context has no deadline
	DefaultWriteTimeout = 5 * time.Second

	closeGracePeriod = time.Second
)

// UserTokenIssuer issues provider tokens for call participants.
type UserTokenIssuer interface {
	UserToken(userID string) (string, error)
}

// Config holds the configuration for the realtime client
type Config struct {
	BaseURL string
	// APIKey is the provider application key sent with every connection
	APIKey           string
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
}

// Client opens realtime agent sessions
type Client struct {
	config Config
	dialer *websocket.Dialer
	tokens UserTokenIssuer
}

var _ domain.RealtimeConnector = (*Client)(nil)

// NewClient creates a realtime client. tokens may be nil, in which case no
// participant token is sent.
func NewClient(config Config, tokens UserTokenIssuer) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.HandshakeTimeout == 0 {
		config.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = DefaultWriteTimeout
	}

	return &Client{
		config: config,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: config.HandshakeTimeout,
		},
		tokens: tokens,
	}
}

// Connect dials the realtime endpoint for the requested call and returns the
// open session.
func (c *Client) Connect(ctx context.Context, req domain.RealtimeConnectRequest) (domain.RealtimeSession, error) {
	target, err := c.connectURL(req)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	if req.Credential != "" {
		header.Set("Authorization", "Bearer "+req.Credential)
	}
	if c.tokens != nil && req.ParticipantID != "" {
		token, err := c.tokens.UserToken(req.ParticipantID)
		if err != nil {
			return nil, fmt.Errorf("failed to issue participant token: %w", err)
		}
		header.Set("Stream-Auth", token)
	}

	conn, resp, err := c.dialer.DialContext(ctx, target, header)
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("realtime handshake failed with status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("realtime dial failed: %w", err)
	}

	slog.DebugContext(ctx, "realtime session opened",
		"call_type", req.CallType,
		"call_id", req.CallID,
		"participant_id", req.ParticipantID,
	)

	session := newSession(conn, c.config.WriteTimeout, req.CallType+":"+req.CallID)
	go session.readLoop()
	return session, nil
}

func (c *Client) connectURL(req domain.RealtimeConnectRequest) (string, error) {
	u, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid realtime base url: %w", err)
	}
	q := u.Query()
	q.Set("call_type", req.CallType)
	q.Set("call_id", req.CallID)
	if req.ParticipantID != "" {
		q.Set("participant_id", req.ParticipantID)
	}
	if c.config.APIKey != "" {
		q.Set("api_key", c.config.APIKey)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// sessionUpdate is the client event that configures the agent.
type sessionUpdate struct {
	Type    string               `json:"type"`
	Session sessionUpdatePayload `json:"session"`
}

type sessionUpdatePayload struct {
	Instructions string `json:"instructions"`
}

// serverEvent is the envelope of every event the backend sends.
type serverEvent struct {
	Type  string `json:"type"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Session is one open realtime connection
type Session struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	cid          string

	// gorilla/websocket supports one concurrent writer
	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
	done      chan struct{}
}

var _ domain.RealtimeSession = (*Session)(nil)

func newSession(conn *websocket.Conn, writeTimeout time.Duration, cid string) *Session {
	return &Session{
		conn:         conn,
		writeTimeout: writeTimeout,
		cid:          cid,
		done:         make(chan struct{}),
	}
}

// UpdateSession sends the agent configuration to the backend.
func (s *Session) UpdateSession(ctx context.Context, cfg domain.RealtimeSessionConfig) error {
	payload, err := json.Marshal(sessionUpdate{
		Type:    "session.update",
		Session: sessionUpdatePayload{Instructions: cfg.Instructions},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal session update: %w", err)
	}

	select {
	case <-s.done:
		return errors.New("realtime session closed")
	default:
	}

	deadline := time.Now().Add(s.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("failed to send session update: %w", err)
	}
	return nil
}

// Done is closed once the connection stops reading.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close sends a close frame and releases the connection. It is safe to call
// more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeGracePeriod))
		s.writeMu.Unlock()
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}

// readLoop drains server events so that control frames are processed.
func (s *Session) readLoop() {
	defer close(s.done)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) &&
				!errors.Is(err, net.ErrClosed) {
				slog.Debug("realtime session read ended", "call_cid", s.cid, logging.ErrKey, err)
			}
			return
		}

		var event serverEvent
		if err := json.Unmarshal(data, &event); err != nil {
			slog.Debug("ignoring non-JSON realtime event", "call_cid", s.cid)
			continue
		}
		if event.Error != nil {
			slog.Warn("realtime backend reported an error",
				"call_cid", s.cid,
				"event_type", event.Type,
				logging.ErrKey, event.Error.Message,
			)
			continue
		}
		slog.Debug("realtime event received", "call_cid", s.cid, "event_type", event.Type)
	}
}
