// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flogin Contributors

// Package observability provides opt-in HTTP endpoints for metrics and
// health checks. Most plugins never enable it; it exists for debugging a
// plugin that misbehaves in production.
package observability

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/oops"
)

// Server serves /metrics and /healthz for a running plugin.
type Server struct {
	addr       string
	registry   *prometheus.Registry
	log        *slog.Logger
	httpServer *http.Server
}

// NewServer wires a server around the plugin's metric registry. Standard Go
// process collectors are registered alongside the plugin's own metrics.
func NewServer(addr string, registry *prometheus.Registry, log *slog.Logger) *Server {
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &Server{addr: addr, registry: registry, log: log}
}

// Start begins serving in the background and returns a stop function. The
// listener is bound synchronously so address errors surface immediately.
func (s *Server) Start() (func(), error) {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return nil, oops.Code("OBSERVABILITY_LISTEN_FAILED").With("addr", s.addr).Wrap(err)
	}
	s.addr = listener.Addr().String()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.httpServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Warn("observability server stopped", "err", err)
		}
	}()
	s.log.Debug("observability server listening", "addr", listener.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(ctx)
	}, nil
}

// Addr returns the bound address once Start has succeeded. Useful when the
// configured address used port 0.
func (s *Server) Addr() string {
	return s.addr
}
