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

// Package browser builds the command line that points a Chromium based
// browser at a mockgaia server instead of the real Google endpoints.
package browser

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

type Options struct {
	// Binary is the browser executable.
	Binary string
	// APIKey, ClientID and ClientSecret are exported as GOOGLE_API_KEY,
	// GOOGLE_DEFAULT_CLIENT_ID and GOOGLE_DEFAULT_CLIENT_SECRET. Without them
	// the browser disables sign-in entirely. Any non-empty value works.
	APIKey       string
	ClientID     string
	ClientSecret string
	// Verbose turns on --enable-logging=stderr --v=1 so the browser's
	// sign-in decisions show up on the terminal.
	Verbose bool
	// ExtraArgs are appended after the generated switches, e.g.
	// --user-data-dir for a throwaway profile.
	ExtraArgs []string
	Stdout    io.Writer
	Stderr    io.Writer
}

func GetDefaultOptions() *Options {
	return &Options{
		Binary:       defaultBinary(),
		APIKey:       "1234",
		ClientID:     "1234",
		ClientSecret: "2345",
		Verbose:      true,
	}
}

func defaultBinary() string {
	switch runtime.GOOS {
	case "windows":
		return "chrome.exe"
	case "darwin":
		return "/Applications/Chromium.app/Contents/MacOS/Chromium"
	default: // "linux", "freebsd", "openbsd", "netbsd"
		return "chromium-browser"
	}
}

// Args returns the switches redirecting the browser's identity, sync and
// OAuth endpoints to baseURL. The trailing slashes matter: the browser
// resolves relative paths against these URLs.
func (o *Options) Args(baseURL string) []string {
	base := strings.TrimSuffix(baseURL, "/")

	var args []string
	if o.Verbose {
		args = append(args, "--enable-logging=stderr", "--v=1")
	}
	args = append(args,
		"--gaia-url="+base,
		"--sync-url="+base+"/sync/",
		"--oauth-account-manager-url="+base+"/oauth/",
		"--google-apis-url="+base+"/apis/",
		"--lso-url="+base+"/lso/",
		"--google-url="+base+"/google/",
		"--oauth2-client-id="+o.ClientID,
		"--oauth2-client-secret="+o.ClientSecret,
	)
	return append(args, o.ExtraArgs...)
}

// Env returns the environment variables the browser needs, as KEY=value.
func (o *Options) Env() []string {
	return []string{
		"GOOGLE_API_KEY=" + o.APIKey,
		"GOOGLE_DEFAULT_CLIENT_ID=" + o.ClientID,
		"GOOGLE_DEFAULT_CLIENT_SECRET=" + o.ClientSecret,
	}
}

// CommandLine renders Env, Binary and Args as a single shell line that can
// be pasted into a terminal.
func (o *Options) CommandLine(baseURL string) string {
	parts := append(o.Env(), o.Binary)
	parts = append(parts, o.Args(baseURL)...)
	return strings.Join(parts, " ")
}

// Launch starts the browser pointed at baseURL. The process is killed when
// ctx is cancelled; callers should Wait on the returned command.
func (o *Options) Launch(ctx context.Context, baseURL string) (*exec.Cmd, error) {
	if o.Binary == "" {
		return nil, fmt.Errorf("no browser binary configured")
	}
	cmd := exec.CommandContext(ctx, o.Binary, o.Args(baseURL)...)
	cmd.Env = append(os.Environ(), o.Env()...)
	cmd.Stdout = o.Stdout
	cmd.Stderr = o.Stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", o.Binary, err)
	}
	return cmd, nil
}
