// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import "time"

type Service interface {
	ServiceReady() bool
}

// ServiceConfig is the configuration for the Services.
type ServiceConfig struct {
	// CallType is the provider call namespace meetings are hosted in.
	CallType string
	// RealtimeCredential authenticates agent sessions with the conversation backend.
	RealtimeCredential string
	// BootstrapTimeout bounds a single agent bootstrap.
	BootstrapTimeout time.Duration
	// CallEndTimeout bounds ending a call while the webhook waits.
	CallEndTimeout time.Duration
}
