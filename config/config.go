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

// Package config loads mockgaia settings from a YAML file. Only how the
// server runs is configurable; the routes and the fake account are fixed.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/openpubkey/mockgaia/browser"
	"github.com/openpubkey/mockgaia/identity"
	"github.com/openpubkey/mockgaia/internal/logging"
	"github.com/openpubkey/mockgaia/server"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Addr              string        `yaml:"addr"`
	CertFile          string        `yaml:"cert_file,omitempty"`
	KeyFile           string        `yaml:"key_file,omitempty"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	IdleTimeout       time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	// MaxBodyBytes bounds how much of a request body is logged.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type IdentityConfig struct {
	// SigninWithoutCode answers sign-in with no_authorization_code=true.
	SigninWithoutCode bool `yaml:"signin_without_code"`
}

type BrowserConfig struct {
	Binary       string   `yaml:"binary"`
	APIKey       string   `yaml:"api_key"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	Verbose      bool     `yaml:"verbose"`
	ExtraArgs    []string `yaml:"extra_args,omitempty"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Identity IdentityConfig `yaml:"identity"`
	Browser  BrowserConfig  `yaml:"browser"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	srv := server.GetDefaultOptions()
	br := browser.GetDefaultOptions()
	return &Config{
		Server: ServerConfig{
			Addr:              srv.Addr,
			ReadHeaderTimeout: srv.ReadHeaderTimeout,
			IdleTimeout:       srv.IdleTimeout,
			ShutdownTimeout:   srv.ShutdownTimeout,
			MaxBodyBytes:      server.DefaultMaxBodyBytes,
		},
		Log: LogConfig{
			Level:  logrus.InfoLevel.String(),
			Format: logging.FormatText,
		},
		Browser: BrowserConfig{
			Binary:       br.Binary,
			APIKey:       br.APIKey,
			ClientID:     br.ClientID,
			ClientSecret: br.ClientSecret,
			Verbose:      br.Verbose,
		},
	}
}

// FromYAML parses content on top of Default. Unknown keys are rejected so
// typos do not silently fall back to defaults.
func FromYAML(content []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) ToYAML() ([]byte, error) {
	return yaml.Marshal(c)
}

func (c *Config) Validate() error {
	if err := c.ServerOptions().Validate(); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}
	if c.Server.ReadHeaderTimeout < 0 || c.Server.IdleTimeout < 0 || c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("invalid server config: timeouts must not be negative")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("invalid server config: max_body_bytes must be positive")
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log config: %w", err)
	}
	switch c.Log.Format {
	case logging.FormatText, logging.FormatJSON:
	default:
		return fmt.Errorf("invalid log config: unsupported format %q", c.Log.Format)
	}
	return nil
}

func (c *Config) ServerOptions() *server.Options {
	return &server.Options{
		Addr:              c.Server.Addr,
		CertFile:          c.Server.CertFile,
		KeyFile:           c.Server.KeyFile,
		ReadHeaderTimeout: c.Server.ReadHeaderTimeout,
		IdleTimeout:       c.Server.IdleTimeout,
		ShutdownTimeout:   c.Server.ShutdownTimeout,
	}
}

func (c *Config) LoggingOptions() logging.Options {
	return logging.Options{
		Level:  c.Log.Level,
		Format: c.Log.Format,
	}
}

func (c *Config) Account() identity.Account {
	account := identity.Default()
	account.SigninWithoutCode = c.Identity.SigninWithoutCode
	return account
}

func (c *Config) BrowserOptions() *browser.Options {
	opts := browser.GetDefaultOptions()
	opts.Binary = c.Browser.Binary
	opts.APIKey = c.Browser.APIKey
	opts.ClientID = c.Browser.ClientID
	opts.ClientSecret = c.Browser.ClientSecret
	opts.Verbose = c.Browser.Verbose
	opts.ExtraArgs = c.Browser.ExtraArgs
	return opts
}

// Loader reads config files from an arbitrary filesystem.
type Loader struct {
	Fs afero.Fs
}

func NewLoader() *Loader {
	return &Loader{Fs: afero.NewOsFs()}
}

// Load reads the file at path. An empty path yields Default.
func (l *Loader) Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	afs := &afero.Afero{Fs: l.Fs}
	content, err := afs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := FromYAML(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}
