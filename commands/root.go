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
	"github.com/openpubkey/mockgaia/config"
	"github.com/openpubkey/mockgaia/internal/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// app carries what every subcommand needs once the root command has parsed
// its persistent flags.
type app struct {
	fs         afero.Fs
	configPath string
	logLevel   string
	logFormat  string

	cfg    *config.Config
	logger *logrus.Logger
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := (&config.Loader{Fs: a.fs}).Load(a.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.Log.Format = a.logFormat
	}

	opts := cfg.LoggingOptions()
	opts.Output = cmd.ErrOrStderr()
	logger, err := logging.New(opts)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

// NewRootCmd builds the mockgaia command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(afero.NewOsFs())
}

func newRootCmd(fs afero.Fs) *cobra.Command {
	a := &app{fs: fs}

	root := &cobra.Command{
		Use:   "mockgaia [command] [flags]",
		Short: "mockgaia: a stand-in for Google sign-in, sync and OAuth endpoints",
		Long: `mockgaia answers the Google account endpoints a Chromium based browser
talks to while signing in and enabling sync, always as the same fake
test@test.com account. Point a browser at it with the switches printed by
"mockgaia chrome-flags".`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to a YAML config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", logging.FormatText, "Log format (text or json)")

	root.AddCommand(
		newServeCmd(a),
		newRoutesCmd(a),
		newChromeFlagsCmd(a),
		newLaunchCmd(a),
	)
	return root
}
