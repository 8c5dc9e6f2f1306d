// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/infrastructure/realtime"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/infrastructure/sqlstore"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/infrastructure/store"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/infrastructure/stream/api"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/pkg/constants"
)

// StoreBackendNATS keeps meetings and agents in NATS JetStream key-value buckets.
const StoreBackendNATS = "nats"

const (
	defaultPort        = "8080"
	defaultNatsURL     = "nats://localhost:4222"
	defaultDatabaseURL = "file:meeting-agent.db?cache=shared"
)

// flags are the command line flags for the meeting agent service.
type flags struct {
	Debug bool
	Port  string
	Bind  string
}

// environment are the environment variables for the meeting agent service.
type environment struct {
	Port         string
	StoreBackend string
	NatsURL      string
	// NatsRequired is set when NATS must be reachable at startup.
	NatsRequired   bool
	MeetingsBucket string
	AgentsBucket   string
	DatabaseURL    string
	Stream         streamConfig
	Realtime       realtimeConfig
}

// streamConfig holds the video provider configuration
type streamConfig struct {
	APIKey                    string
	APISecret                 string
	BaseURL                   string
	CallType                  string
	WebhookValidationDisabled bool
}

// realtimeConfig holds the agent realtime session configuration
type realtimeConfig struct {
	BaseURL          string
	Credential       string
	BootstrapTimeout time.Duration
}

// parseFlags parses command line flags for the meeting agent service
func parseFlags(defaultPort string) flags {
	var debug = flag.Bool("d", false, "enable debug logging")
	var port = flag.String("p", defaultPort, "listen port")
	var bind = flag.String("bind", "*", "interface to bind on")

	flag.Usage = func() {
		flag.PrintDefaults()
		os.Exit(2)
	}
	flag.Parse()

	// Based on the debug flag, set the log level environment variable used by [logging.InitStructureLogConfig]
	if *debug {
		err := os.Setenv("LOG_LEVEL", "debug")
		if err != nil {
			slog.With(logging.ErrKey, err).Error("error setting log level")
			os.Exit(1)
		}
	}

	return flags{
		Debug: *debug,
		Port:  *port,
		Bind:  *bind,
	}
}

// parseEnv parses environment variables for the meeting agent service
func parseEnv() (environment, error) {
	env := environment{
		Port:           getEnv("PORT", defaultPort),
		StoreBackend:   strings.ToLower(getEnv("STORE_BACKEND", StoreBackendNATS)),
		NatsURL:        getEnv("NATS_URL", defaultNatsURL),
		MeetingsBucket: getEnv("NATS_KV_MEETINGS_BUCKET", store.KVStoreNameMeetings),
		AgentsBucket:   getEnv("NATS_KV_AGENTS_BUCKET", store.KVStoreNameAgents),
		DatabaseURL:    getEnv("DATABASE_URL", defaultDatabaseURL),
	}
	// Lifecycle events are only published when NATS is available; a SQL
	// backed deployment opts in by setting NATS_URL.
	env.NatsRequired = env.StoreBackend == StoreBackendNATS || os.Getenv("NATS_URL") != ""

	var errs []error

	switch env.StoreBackend {
	case StoreBackendNATS, sqlstore.BackendSQLite, sqlstore.BackendPostgres:
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND %q is not one of nats, sqlite, postgres", env.StoreBackend))
	}

	env.Stream = streamConfig{
		APIKey:                    os.Getenv("STREAM_API_KEY"),
		APISecret:                 os.Getenv("STREAM_API_SECRET"),
		BaseURL:                   getEnv("STREAM_BASE_URL", api.BaseURL),
		CallType:                  getEnv("STREAM_CALL_TYPE", constants.DefaultCallType),
		WebhookValidationDisabled: os.Getenv("STREAM_WEBHOOK_VALIDATION_DISABLED") == "true",
	}
	if env.Stream.APIKey == "" {
		errs = append(errs, errors.New("STREAM_API_KEY environment variable is required but not set"))
	}
	if env.Stream.APISecret == "" {
		errs = append(errs, errors.New("STREAM_API_SECRET environment variable is required but not set"))
	}
	if _, err := url.ParseRequestURI(env.Stream.BaseURL); err != nil {
		errs = append(errs, fmt.Errorf("invalid STREAM_BASE_URL: %w", err))
	}

	env.Realtime = realtimeConfig{
		BaseURL:          getEnv("REALTIME_BASE_URL", realtime.DefaultBaseURL),
		Credential:       os.Getenv("OPENAI_API_KEY"),
		BootstrapTimeout: constants.DefaultAgentBootstrapTimeout,
	}
	if raw := os.Getenv("AGENT_BOOTSTRAP_TIMEOUT"); raw != "" {
		timeout, err := time.ParseDuration(raw)
		if err != nil || timeout <= 0 {
			errs = append(errs, fmt.Errorf("invalid AGENT_BOOTSTRAP_TIMEOUT %q", raw))
		} else {
			env.Realtime.BootstrapTimeout = timeout
		}
	}
	if env.Realtime.Credential == "" {
		slog.Warn("OPENAI_API_KEY is not set, agent sessions will be rejected by the realtime backend")
	}

	return env, errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
