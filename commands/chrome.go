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
	"io"

	"github.com/openpubkey/mockgaia/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// BaseURL is where the configured server can be reached.
func BaseURL(cfg *config.Config) string {
	if cfg.ServerOptions().TLS() {
		return "https://" + cfg.Server.Addr
	}
	return "http://" + cfg.Server.Addr
}

func newChromeFlagsCmd(a *app) *cobra.Command {
	var baseURL, binary string
	cmd := &cobra.Command{
		Use:   "chrome-flags",
		Short: "Print the browser command line that points at mockgaia",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("binary") {
				a.cfg.Browser.Binary = binary
			}
			if baseURL == "" {
				baseURL = BaseURL(a.cfg)
			}
			ChromeFlags(cmd.OutOrStdout(), a.cfg, baseURL)
			return nil
		},
	}
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Base URL of the server (default derived from the config)")
	cmd.Flags().StringVar(&binary, "binary", "", "Browser executable")
	return cmd
}

// ChromeFlags writes the command line for launching a browser against
// baseURL.
func ChromeFlags(w io.Writer, cfg *config.Config, baseURL string) {
	fmt.Fprintln(w, cfg.BrowserOptions().CommandLine(baseURL))
}

func newLaunchCmd(a *app) *cobra.Command {
	flags := &serverFlags{}
	var binary string
	cmd := &cobra.Command{
		Use:   "launch",
		Short: "Serve the mock endpoints and start a browser pointed at them",
		Long: `launch starts the server, then the browser with the URL overrides and
environment it needs. The server stops when the browser exits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flags.apply(cmd, a.cfg); err != nil {
				return err
			}
			if cmd.Flags().Changed("binary") {
				a.cfg.Browser.Binary = binary
			}
			return Launch(cmd.Context(), a.cfg, a.logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&binary, "binary", "", "Browser executable")
	return cmd
}

// Launch serves the mock endpoints for as long as the launched browser
// runs, or until ctx is cancelled.
func Launch(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger, stdout, stderr io.Writer) error {
	srv, err := NewServer(cfg, logger)
	if err != nil {
		return err
	}
	ln, err := srv.Listen()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ctx, ln)
	}()

	opts := cfg.BrowserOptions()
	opts.Stdout = stdout
	opts.Stderr = stderr
	logger.Infof("Starting browser: %s", opts.CommandLine(srv.URL()))
	browserCmd, err := opts.Launch(ctx, srv.URL())
	if err != nil {
		cancel()
		<-serveErr
		return err
	}

	browserDone := make(chan error, 1)
	go func() {
		browserDone <- browserCmd.Wait()
	}()

	select {
	case err := <-browserDone:
		if err != nil {
			logger.Warnf("Browser exited: %v", err)
		} else {
			logger.Info("Browser exited")
		}
		cancel()
		return <-serveErr
	case err := <-serveErr:
		cancel()
		<-browserDone
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}
}
