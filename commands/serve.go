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

package commands

import (
	"context"
	"fmt"

	"github.com/openpubkey/mockgaia/config"
	"github.com/openpubkey/mockgaia/routes"
	"github.com/openpubkey/mockgaia/server"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type serverFlags struct {
	addr              string
	certFile          string
	keyFile           string
	signinWithoutCode bool
}

func (f *serverFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.addr, "addr", "", "Address to listen on (default from config, 127.0.0.1:5000)")
	cmd.Flags().StringVar(&f.certFile, "cert", "", "TLS certificate file, e.g. one made by mkcert for 127.0.0.1")
	cmd.Flags().StringVar(&f.keyFile, "key", "", "TLS private key file")
	cmd.Flags().BoolVar(&f.signinWithoutCode, "signin-without-code", false, "Answer sign-in with no_authorization_code=true")
}

// apply copies the flags the user set over the loaded config.
func (f *serverFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Changed("addr") {
		cfg.Server.Addr = f.addr
	}
	if cmd.Flags().Changed("cert") {
		cfg.Server.CertFile = f.certFile
	}
	if cmd.Flags().Changed("key") {
		cfg.Server.KeyFile = f.keyFile
	}
	if cmd.Flags().Changed("signin-without-code") {
		cfg.Identity.SigninWithoutCode = f.signinWithoutCode
	}
	return cfg.Validate()
}

func newServeCmd(a *app) *cobra.Command {
	flags := &serverFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the mock endpoints until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flags.apply(cmd, a.cfg); err != nil {
				return err
			}
			return Serve(cmd.Context(), a.cfg, a.logger)
		},
	}
	flags.register(cmd)
	return cmd
}

// NewServer wires the route table for cfg into a dispatcher and server.
func NewServer(cfg *config.Config, logger logrus.FieldLogger) (*server.Server, error) {
	table, err := routes.Default(cfg.Account())
	if err != nil {
		return nil, err
	}
	dispatcher, err := server.NewDispatcher(table, logger, server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes))
	if err != nil {
		return nil, err
	}
	return server.New(dispatcher, logger, cfg.ServerOptions())
}

// Serve runs the mock server until ctx is cancelled.
func Serve(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) error {
	srv, err := NewServer(cfg, logger)
	if err != nil {
		return err
	}
	if !cfg.ServerOptions().TLS() {
		logger.Warn("serving plain HTTP; the browser only uses GAIA overrides over HTTPS, pass --cert and --key")
	}
	if err := srv.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
