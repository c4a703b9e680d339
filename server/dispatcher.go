// Copyright 2025 OpenPubkey
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
//
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/openpubkey/mockgaia/identity"
	"github.com/openpubkey/mockgaia/routes"
	"github.com/sirupsen/logrus"
)

const (
	// RequestIDHeader is echoed back when the client sets it. Otherwise the
	// generated ID only appears in the logs so responses stay identical
	// across repeated requests.
	RequestIDHeader = "X-Request-Id"

	DefaultMaxBodyBytes = 1 << 20
)

// Dispatcher maps requests onto a route table and writes the canned
// response of the matching route. Unknown paths get 404 and known paths
// with the wrong method get 405, both from the router.
type Dispatcher struct {
	table        routes.Table
	logger       logrus.FieldLogger
	maxBodyBytes int64
	router       *mux.Router
	handler      http.Handler
}

type DispatcherOption func(*Dispatcher)

// WithMaxBodyBytes bounds how much of a request body is read for logging.
func WithMaxBodyBytes(n int64) DispatcherOption {
	return func(d *Dispatcher) {
		d.maxBodyBytes = n
	}
}

func NewDispatcher(table routes.Table, logger logrus.FieldLogger, opts ...DispatcherOption) (*Dispatcher, error) {
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("error validating route table: %w", err)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	d := &Dispatcher{
		table:        table,
		logger:       logger,
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(d)
	}

	// Full paths on the root router, so a wrong method under a prefix is a
	// 405 like anywhere else.
	d.router = mux.NewRouter()
	for _, route := range table {
		d.router.Handle(route.FullPath(), d.routeHandler(route)).
			Methods(route.AllowedMethods()...).
			Name(route.Name)
	}
	d.handler = d.logRequests(d.router)
	return d, nil
}

func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.handler.ServeHTTP(w, r)
}

// Table returns the route table being served.
func (d *Dispatcher) Table() routes.Table {
	return d.table
}

func (d *Dispatcher) routeHandler(route routes.Route) http.Handler {
	logger := d.logger.WithField("route", route.Name)
	header := route.Response.Headers()
	body := []byte(route.Response.Body)
	contentLength := strconv.Itoa(len(body))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d.logDiagnostics(logger, route.Diagnostics, r)

		h := w.Header()
		// Assigned directly so header names keep the exact case the browser
		// was built against.
		for k, v := range header {
			h[k] = slices.Clone(v)
		}
		h.Set("Content-Length", contentLength)
		w.WriteHeader(route.Response.Status)
		if r.Method == http.MethodHead {
			return
		}
		if _, err := w.Write(body); err != nil {
			logger.Debugf("Failed to write response: %v", err)
		}
	})
}

func (d *Dispatcher) logDiagnostics(logger logrus.FieldLogger, diag routes.Diagnostics, r *http.Request) {
	if diag.Has(routes.LogConsistencyRequest) {
		logger.WithField("header", identity.ConsistencyRequestHeader).
			Info(r.Header.Get(identity.ConsistencyRequestHeader))
	}
	if diag.Has(routes.LogBody) {
		body, err := io.ReadAll(io.LimitReader(r.Body, d.maxBodyBytes))
		if err != nil {
			logger.Warnf("Failed to read request body: %v", err)
		} else {
			logger.WithField("bytes", len(body)).Infof("request body: %q", body)
		}
	}
	if diag.Has(routes.LogHeaders) {
		logger.WithField("headers", r.Header).Info("request headers")
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

func (d *Dispatcher) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get(RequestIDHeader)
		if requestID != "" {
			w.Header().Set(RequestIDHeader, requestID)
		} else {
			requestID = uuid.New().String()
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		d.logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     rec.status,
			"bytes":      rec.bytes,
			"duration":   time.Since(start),
		}).Debug("handled request")
	})
}
