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
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var ErrIncompleteTLS = errors.New("both a certificate and a key file are required for TLS")

// Options configures how Server listens. See GetDefaultOptions for the
// values used when nothing is configured.
type Options struct {
	// Addr is the host:port to listen on. The browser is launched with URL
	// overrides pointing here.
	Addr string
	// CertFile and KeyFile enable TLS when both are set. The browser only
	// sends GAIA traffic over HTTPS, so a certificate it trusts (e.g. one
	// made with mkcert for 127.0.0.1) is needed for real sign-in flows.
	CertFile string
	KeyFile  string
	// ReadHeaderTimeout and IdleTimeout are passed to http.Server. Zero
	// disables them.
	ReadHeaderTimeout time.Duration
	IdleTimeout       time.Duration
	// ShutdownTimeout bounds how long in-flight requests get to finish once
	// the serving context is cancelled.
	ShutdownTimeout time.Duration
}

func GetDefaultOptions() *Options {
	return &Options{
		Addr:              "127.0.0.1:5000",
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
		ShutdownTimeout:   5 * time.Second,
	}
}

func (o *Options) TLS() bool {
	return o.CertFile != "" && o.KeyFile != ""
}

func (o *Options) Validate() error {
	if (o.CertFile == "") != (o.KeyFile == "") {
		return ErrIncompleteTLS
	}
	if _, _, err := net.SplitHostPort(o.Addr); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", o.Addr, err)
	}
	return nil
}

// Server runs an http.Server for a handler until its context is cancelled.
type Server struct {
	opts    Options
	handler http.Handler
	logger  logrus.FieldLogger

	mu       sync.Mutex
	listener net.Listener
}

func New(handler http.Handler, logger logrus.FieldLogger, opts *Options) (*Server, error) {
	if opts == nil {
		opts = GetDefaultOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Server{
		opts:    *opts,
		handler: handler,
		logger:  logger,
	}, nil
}

// Listen binds Options.Addr. Addr and URL report the bound address from
// here on, which lets callers learn a random port before serving.
func (s *Server) Listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to bind to %s: %w", s.opts.Addr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	return ln, nil
}

// ListenAndServe binds Options.Addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully. It
// returns nil after a clean shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	httpServer := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: s.opts.ReadHeaderTimeout,
		IdleTimeout:       s.opts.IdleTimeout,
		// HTTP/1.1 only, also over TLS.
		TLSNextProto: map[string]func(*http.Server, *tls.Conn, http.Handler){},
	}
	// Several requests per connection.
	httpServer.SetKeepAlivesEnabled(true)

	shutdownErr := make(chan error, 1)
	serveDone := make(chan struct{})
	defer close(serveDone)
	go func() {
		select {
		case <-ctx.Done():
		case <-serveDone:
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		shutdownErr <- httpServer.Shutdown(shutdownCtx)
	}()

	s.logger.Infof("listening on %s", s.URL())
	var err error
	if s.opts.TLS() {
		err = httpServer.ServeTLS(ln, s.opts.CertFile, s.opts.KeyFile)
	} else {
		err = httpServer.Serve(ln)
	}
	if !errors.Is(err, http.ErrServerClosed) {
		_ = ln.Close()
		return err
	}
	if err := <-shutdownErr; err != nil {
		return fmt.Errorf("failed to shutdown http server: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Addr is the bound address, or nil before the server is serving.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// URL is the base URL browsers should be pointed at, without a trailing
// slash.
func (s *Server) URL() string {
	host := s.opts.Addr
	if addr := s.Addr(); addr != nil {
		host = addr.String()
	}
	scheme := "http"
	if s.opts.TLS() {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, host)
}
