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

package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	testCases := []struct {
		name     string
		opts     Options
		expLevel logrus.Level
		expError string
	}{
		{name: "defaults", opts: Options{}, expLevel: logrus.InfoLevel},
		{name: "debug text", opts: Options{Level: "debug", Format: FormatText}, expLevel: logrus.DebugLevel},
		{name: "warn json", opts: Options{Level: "warn", Format: FormatJSON}, expLevel: logrus.WarnLevel},
		{name: "bad level", opts: Options{Level: "loud"}, expError: "invalid log level"},
		{name: "bad format", opts: Options{Format: "xml"}, expError: "unsupported log format"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			logger, err := New(tc.opts)
			if tc.expError != "" {
				require.ErrorContains(t, err, tc.expError)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expLevel, logger.GetLevel())
		})
	}
}

func TestNewJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Format: FormatJSON, Output: &buf})
	require.NoError(t, err)

	logger.WithField("route", "signin").Info("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "hello", entry["msg"])
	require.Equal(t, "signin", entry["route"])
	require.Equal(t, "info", entry["level"])
}
