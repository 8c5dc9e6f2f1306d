// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import "context"

// Call is a handle on a single provider call.
type Call interface {
	// CID is the composite call id, "<type>:<id>".
	CID() string
	// End terminates the call for every participant.
	End(ctx context.Context) error
}

// SessionController opens handles on calls managed by the video provider.
type SessionController interface {
	Call(callType, callID string) Call
}

// RealtimeConnectRequest describes the session an agent joins.
type RealtimeConnectRequest struct {
	CallType      string
	CallID        string
	Credential    string
	ParticipantID string
}

// RealtimeSessionConfig is pushed into a live realtime session.
type RealtimeSessionConfig struct {
	Instructions string
}

// RealtimeSession is a live connection between an agent and a call.
type RealtimeSession interface {
	UpdateSession(ctx context.Context, cfg RealtimeSessionConfig) error
	Close() error
}

// RealtimeConnector attaches an AI participant to a call.
type RealtimeConnector interface {
	Connect(ctx context.Context, req RealtimeConnectRequest) (RealtimeSession, error)
}
