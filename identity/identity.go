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

// Package identity holds the single fake Google account served by mockgaia
// and the encodings the browser expects to see for it.
package identity

import (
	"fmt"
	"strings"
)

const (
	// ConsistencyRequestHeader is sent by the browser on GAIA page loads.
	ConsistencyRequestHeader = "X-Chrome-ID-Consistency-Request"
	// ConsistencyResponseHeader carries the identity assertion back to the
	// browser, which uses it to detect sign-in state changes.
	ConsistencyResponseHeader = "X-Chrome-ID-Consistency-Response"
)

// Action is the value of the "action" field of an identity assertion.
type Action string

const (
	ActionSignin     Action = "SIGNIN"
	ActionEnableSync Action = "ENABLE_SYNC"
)

// Account is a fake Google account. Every field is a fixed literal; nothing
// here is ever checked against a request.
type Account struct {
	GaiaID            string
	AuthUser          int
	Email             string
	DisplayEmail      string
	VerifiedEmail     string
	AuthorizationCode string
	AccessToken       string
	RefreshToken      string
	IDToken           string
	ExpiresIn         int
	// SigninWithoutCode makes the SIGNIN assertion carry
	// no_authorization_code=true instead of the authorization code.
	SigninWithoutCode bool
}

// Default returns the test account the browser is signed in as.
func Default() Account {
	return Account{
		GaiaID:            "12345",
		AuthUser:          1,
		Email:             "test@test.com",
		DisplayEmail:      "test+display@test.com",
		VerifiedEmail:     "test+verified@test.com",
		AuthorizationCode: "FUCKFUCKFUCK",
		AccessToken:       "test_access_token",
		RefreshToken:      "test_refresh_token",
		IDToken:           "id_token_12345",
		ExpiresIn:         9999,
	}
}

// ConsistencyResponse renders the X-Chrome-ID-Consistency-Response value for
// the given action, e.g.
//
//	action=SIGNIN,authuser=1,id=12345,email=test@test.com,authorization_code=...
func (a Account) ConsistencyResponse(action Action) string {
	fields := []string{
		"action=" + string(action),
		fmt.Sprintf("authuser=%d", a.AuthUser),
		"id=" + a.GaiaID,
		"email=" + a.Email,
	}
	if action == ActionSignin {
		if a.SigninWithoutCode {
			fields = append(fields, "no_authorization_code=true")
		} else {
			fields = append(fields, "authorization_code="+a.AuthorizationCode)
		}
	}
	return strings.Join(fields, ",")
}

// UserInfoText is the plain-text body of /GetUserInfo.
func (a Account) UserInfoText() string {
	return fmt.Sprintf("email=%s\ndisplayEmail=%s", a.Email, a.DisplayEmail)
}

// ListAccountsBody is the body of /ListAccounts. The browser parses it as a
// list of signed-in sessions; this one names a single session for the test
// account.
func (a Account) ListAccountsBody() string {
	return `["gaia.l.a.r", [""]]`
}

// TokenResponse is the body of the OAuth2 v4 token endpoint.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

func (a Account) TokenResponse() TokenResponse {
	return TokenResponse{
		AccessToken:  a.AccessToken,
		RefreshToken: a.RefreshToken,
		ExpiresIn:    a.ExpiresIn,
	}
}

// UserInfo is the body of the OAuth2 v1 userinfo endpoint.
type UserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	IDToken       string `json:"id_token"`
	VerifiedEmail string `json:"verified_email"`
}

func (a Account) UserInfo() UserInfo {
	return UserInfo{
		ID:            a.GaiaID,
		Email:         a.Email,
		IDToken:       a.IDToken,
		VerifiedEmail: a.VerifiedEmail,
	}
}
