// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

import "time"

const (
	// DefaultCallType is the provider call namespace meetings are hosted in
	DefaultCallType = "default"

	// DefaultAgentBootstrapTimeout bounds attaching an agent to a call
	DefaultAgentBootstrapTimeout = 10 * time.Second

	// DefaultCallEndTimeout bounds ending a call, retries included
	DefaultCallEndTimeout = 10 * time.Second
)
