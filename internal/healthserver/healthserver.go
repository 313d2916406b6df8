// Copyright 2025 Antfly, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package healthserver provides a shared health/metrics server for Kubernetes probes.
package healthserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Checker reports whether a single dependency (store, cache, model router)
// is ready to serve traffic. A named checker failing fails /readyz as a
// whole but is reported individually so operators can see which
// dependency regressed.
type Checker func(ctx context.Context) error

// Server is a health/metrics server with a mutable set of named readiness
// checkers, distinct from the teacher's single readyChecker func so that
// the store, cache, and model router can each register independently.
type Server struct {
	logger   *zap.Logger
	mux      *http.ServeMux
	checkers map[string]Checker
}

// New constructs a Server. Checkers may be added with Register before or
// after Start; Start reads the map on every /readyz request.
func New(logger *zap.Logger) *Server {
	return &Server{
		logger:   logger,
		mux:      http.NewServeMux(),
		checkers: make(map[string]Checker),
	}
}

// Register adds or replaces a named readiness checker.
func (s *Server) Register(name string, c Checker) {
	s.checkers[name] = c
}

// Start starts the health/metrics server on the specified port. It runs in
// a goroutine and does not block. Endpoints:
//   - /healthz - liveness probe, always 200 while the process is alive
//   - /readyz  - readiness probe, 200 only if every registered checker passes
//   - /metrics - Prometheus metrics endpoint
func (s *Server) Start(port int) {
	s.mux.Handle("/metrics", promhttp.Handler())

	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("ok")); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
		}
	})

	s.mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		failed := make(map[string]string)
		for name, check := range s.checkers {
			if err := check(ctx); err != nil {
				failed[name] = err.Error()
			}
		}

		if len(failed) == 0 {
			w.WriteHeader(http.StatusOK)
			if _, err := w.Write([]byte("ready")); err != nil {
				s.logger.Error("failed to write ready response", zap.Error(err))
			}
			return
		}

		w.WriteHeader(http.StatusServiceUnavailable)
		for name, msg := range failed {
			s.logger.Warn("readiness check failed", zap.String("checker", name), zap.String("error", msg))
		}
		if _, err := fmt.Fprintf(w, "not ready: %d checks failing", len(failed)); err != nil {
			s.logger.Error("failed to write not ready response", zap.Error(err))
		}
	})

	go func() {
		addr := fmt.Sprintf("0.0.0.0:%d", port)
		server := &http.Server{
			Addr:              addr,
			Handler:           s.mux,
			ReadHeaderTimeout: 40 * time.Second,
		}
		s.logger.Info("starting health/metrics server", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("health server error", zap.Error(err))
		}
	}()
}
