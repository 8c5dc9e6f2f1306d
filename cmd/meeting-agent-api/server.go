// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	goahttp "goa.design/goa/v3/http"

	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/metrics"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/middleware"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/pkg/constants"
)

// newHTTPHandler mounts the routes and wraps them in the middleware chain.
func newHTTPHandler(svc *MeetingAgentAPI, m *metrics.Metrics) http.Handler {
	mux := goahttp.NewMuxer()
	mux.Handle(http.MethodPost, constants.WebhookPath, svc.webhookHandler.ServeHTTP)
	mux.Handle(http.MethodGet, constants.LivezPath, svc.Livez)
	mux.Handle(http.MethodGet, constants.ReadyzPath, svc.Readyz)
	mux.Handle(http.MethodGet, constants.MetricsPath, m.Handler().ServeHTTP)

	var handler http.Handler = mux

	// Add HTTP middleware
	// Note: Order matters - RequestIDMiddleware should come first in the chain,
	// so it should be the last middleware added to the handler since it is executed in reverse order.
	handler = middleware.WebhookBodyCaptureMiddleware(constants.MaxWebhookBodyBytes)(handler)
	handler = middleware.RequestLoggerMiddleware()(handler)
	handler = middleware.RequestIDMiddleware()(handler)

	return otelhttp.NewHandler(handler, "meeting-agent-api",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != constants.LivezPath && r.URL.Path != constants.ReadyzPath
		}),
	)
}

// setupHTTPServer configures and starts the HTTP server
func setupHTTPServer(flags flags, handler http.Handler, gracefulCloseWG *sync.WaitGroup) *http.Server {
	// Set up http listener in a goroutine using provided command line parameters.
	var addr string
	if flags.Bind == "*" {
		addr = ":" + flags.Port
	} else {
		addr = flags.Bind + ":" + flags.Port
	}
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 3 * time.Second,
	}
	gracefulCloseWG.Add(1)
	go func() {
		slog.With("addr", addr).Debug("starting http server, listening on port " + flags.Port)
		err := httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			slog.With(logging.ErrKey, err).Error("http listener error")
			os.Exit(1)
		}
		// Because ErrServerClosed is *immediately* returned when Shutdown is
		// called, not when when Shutdown completes, this must not yet decrement
		// the wait group.
	}()

	return httpServer
}

// shutdownHTTPServer stops accepting requests and waits for in-flight ones.
func shutdownHTTPServer(ctx context.Context, httpServer *http.Server, gracefulCloseWG *sync.WaitGroup) error {
	defer gracefulCloseWG.Done()
	slog.With("addr", httpServer.Addr).Info("shutting down http server")
	return httpServer.Shutdown(ctx)
}
