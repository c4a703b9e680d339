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

package routes

import (
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/openpubkey/mockgaia/identity"
)

const (
	contentTypeText = "text/html; charset=utf-8"
	contentTypeJSON = "application/json"

	// SyncPrefix is where --sync-url points.
	SyncPrefix = "/sync"
	// APIsPrefix is where --google-apis-url points. The browser appends
	// paths to it, so the override URL must end in a slash.
	APIsPrefix = "/apis"

	EnableSyncPath = "/enable_sync"
)

// Default builds the route table for the given account.
func Default(account identity.Account) (Table, error) {
	token, err := json.Marshal(account.TokenResponse())
	if err != nil {
		return nil, fmt.Errorf("error encoding token response: %w", err)
	}
	userInfo, err := json.Marshal(account.UserInfo())
	if err != nil {
		return nil, fmt.Errorf("error encoding userinfo response: %w", err)
	}

	return Table{
		// GAIA (--gaia-url)
		{
			Name:        "signin",
			Path:        "/signin/chrome/sync",
			Methods:     []string{http.MethodGet},
			Diagnostics: LogConsistencyRequest,
			Response: Response{
				Status: http.StatusFound,
				Header: http.Header{
					identity.ConsistencyResponseHeader: {account.ConsistencyResponse(identity.ActionSignin)},
					"Location":                         {EnableSyncPath},
					"Content-Type":                     {contentTypeText},
				},
			},
		},
		{
			Name:        "enable_sync",
			Path:        EnableSyncPath,
			Methods:     []string{http.MethodGet},
			Diagnostics: LogConsistencyRequest,
			Response: Response{
				Status: http.StatusOK,
				Header: http.Header{
					identity.ConsistencyResponseHeader: {account.ConsistencyResponse(identity.ActionEnableSync)},
					"Content-Type":                     {contentTypeText},
				},
			},
		},
		{
			Name:     "check_connection_info",
			Path:     "/GetCheckConnectionInfo",
			Methods:  []string{http.MethodGet},
			Response: jsonResponse(http.StatusOK, "{}"),
		},
		{
			Name:     "user_info",
			Path:     "/GetUserInfo",
			Methods:  []string{http.MethodGet},
			Response: textResponse(http.StatusOK, account.UserInfoText()),
		},
		{
			Name:     "list_accounts",
			Path:     "/ListAccounts",
			Methods:  []string{http.MethodPost},
			Response: textResponse(http.StatusOK, account.ListAccountsBody()),
		},
		{
			// Always refused so the browser falls back to its non-multilogin flow.
			Name:        "multilogin",
			Path:        "/oauth/multilogin",
			Methods:     []string{http.MethodPost},
			Diagnostics: LogBody,
			Response:    textResponse(http.StatusUnauthorized, ""),
		},

		// --sync-url
		{
			Name:        "sync",
			Prefix:      SyncPrefix,
			Path:        "/",
			Methods:     []string{http.MethodGet, http.MethodPost},
			Diagnostics: LogBody | LogHeaders,
			Response:    textResponse(http.StatusOK, ""),
		},
		{
			Name:        "sync_command",
			Prefix:      SyncPrefix,
			Path:        "/command/",
			Methods:     []string{http.MethodPost},
			Diagnostics: LogBody | LogHeaders,
			Response:    textResponse(http.StatusNotFound, ""),
		},

		// --oauth-account-manager-url
		{
			Name:     "oauth_account_manager",
			Path:     "/oam",
			Methods:  []string{http.MethodGet, http.MethodPost},
			Response: textResponse(http.StatusOK, ""),
		},

		// --google-apis-url
		{
			Name:        "oauth2_token",
			Prefix:      APIsPrefix,
			Path:        "/oauth2/v4/token",
			Methods:     []string{http.MethodPost},
			Diagnostics: LogBody | LogHeaders,
			Response:    jsonResponse(http.StatusOK, string(token)),
		},
		{
			Name:        "oauth2_userinfo",
			Prefix:      APIsPrefix,
			Path:        "/oauth2/v1/userinfo",
			Methods:     []string{http.MethodGet},
			Diagnostics: LogBody,
			Response:    jsonResponse(http.StatusOK, string(userInfo)),
		},

		// --lso-url
		{
			Name:     "lso",
			Path:     "/lso",
			Methods:  []string{http.MethodGet, http.MethodPost},
			Response: textResponse(http.StatusOK, ""),
		},

		// --google-url
		{
			Name:     "google",
			Path:     "/google",
			Methods:  []string{http.MethodGet, http.MethodPost},
			Response: textResponse(http.StatusOK, ""),
		},
	}, nil
}

func textResponse(status int, body string) Response {
	return Response{
		Status: status,
		Header: http.Header{"Content-Type": {contentTypeText}},
		Body:   body,
	}
}

func jsonResponse(status int, body string) Response {
	return Response{
		Status: status,
		Header: http.Header{"Content-Type": {contentTypeJSON}},
		Body:   body,
	}
}
