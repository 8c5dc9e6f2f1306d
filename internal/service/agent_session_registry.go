// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"errors"
	"fmt"
	"sync"

	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/domain"
)

// sessionSlot is a registry entry. A slot without a session is a
// reservation for a bootstrap in progress.
type sessionSlot struct {
	session domain.RealtimeSession
	// detached is set when the call ends before the bootstrap stores its session
	detached bool
}

// doneNotifier is implemented by sessions that report a backend-side close.
type doneNotifier interface {
	Done() <-chan struct{}
}

// AgentSessionRegistry tracks the realtime session attached to each meeting.
// A meeting has at most one session, pending or open.
type AgentSessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*sessionSlot
}

// NewAgentSessionRegistry creates an empty registry.
func NewAgentSessionRegistry() *AgentSessionRegistry {
	return &AgentSessionRegistry{sessions: make(map[string]*sessionSlot)}
}

// Reserve claims the slot for meetingID. It returns false when the meeting
// already has a session or a bootstrap in progress.
func (r *AgentSessionRegistry) Reserve(meetingID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[meetingID]; exists {
		return false
	}
	r.sessions[meetingID] = &sessionSlot{}
	return true
}

// Store fills the reserved slot of meetingID with the open session. It
// returns false, leaving the slot empty, when the reservation was detached
// or dropped in the meantime; the caller then owns the session and must close it.
func (r *AgentSessionRegistry) Store(meetingID string, session domain.RealtimeSession) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	slot, exists := r.sessions[meetingID]
	if !exists || slot.session != nil {
		return false
	}
	if slot.detached {
		delete(r.sessions, meetingID)
		return false
	}
	slot.session = session

	if notifier, ok := session.(doneNotifier); ok {
		go func() {
			<-notifier.Done()
			r.evict(meetingID, session)
		}()
	}
	return true
}

// evict drops the slot of meetingID if it still holds session.
func (r *AgentSessionRegistry) evict(meetingID string, session domain.RealtimeSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if slot, exists := r.sessions[meetingID]; exists && slot.session == session {
		delete(r.sessions, meetingID)
	}
}

// Release drops a reservation that never got a session.
func (r *AgentSessionRegistry) Release(meetingID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if slot, exists := r.sessions[meetingID]; exists && slot.session == nil {
		delete(r.sessions, meetingID)
	}
}

// Close removes and closes the session of meetingID. It reports whether a
// session was open. A pending reservation is marked detached so that the
// bootstrap holding it discards its session.
func (r *AgentSessionRegistry) Close(meetingID string) (bool, error) {
	r.mu.Lock()
	slot, exists := r.sessions[meetingID]
	if !exists {
		r.mu.Unlock()
		return false, nil
	}
	if slot.session == nil {
		slot.detached = true
		r.mu.Unlock()
		return false, nil
	}
	delete(r.sessions, meetingID)
	r.mu.Unlock()

	return true, slot.session.Close()
}

// CloseAll closes every open session. Pending reservations are dropped, so
// their bootstraps discard the sessions they open.
func (r *AgentSessionRegistry) CloseAll() error {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*sessionSlot)
	r.mu.Unlock()

	var errs []error
	for meetingID, slot := range sessions {
		if slot.session == nil {
			continue
		}
		if err := slot.session.Close(); err != nil {
			errs = append(errs, fmt.Errorf("meeting %s: %w", meetingID, err))
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of open sessions.
func (r *AgentSessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, slot := range r.sessions {
		if slot.session != nil {
			n++
		}
	}
	return n
}
