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

package identity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConsistencyResponse(t *testing.T) {
	withoutCode := Default()
	withoutCode.SigninWithoutCode = true

	testCases := []struct {
		name    string
		account Account
		action  Action
		want    string
	}{
		{name: "signin carries authorization code", account: Default(), action: ActionSignin,
			want: "action=SIGNIN,authuser=1,id=12345,email=test@test.com,authorization_code=FUCKFUCKFUCK"},
		{name: "signin without code", account: withoutCode, action: ActionSignin,
			want: "action=SIGNIN,authuser=1,id=12345,email=test@test.com,no_authorization_code=true"},
		{name: "enable sync", account: Default(), action: ActionEnableSync,
			want: "action=ENABLE_SYNC,authuser=1,id=12345,email=test@test.com"},
		{name: "enable sync ignores code mode", account: withoutCode, action: ActionEnableSync,
			want: "action=ENABLE_SYNC,authuser=1,id=12345,email=test@test.com"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.account.ConsistencyResponse(tc.action))
		})
	}
}

func TestCannedBodies(t *testing.T) {
	a := Default()
	require.Equal(t, "email=test@test.com\ndisplayEmail=test+display@test.com", a.UserInfoText())
	require.Equal(t, `["gaia.l.a.r", [""]]`, a.ListAccountsBody())

	require.Equal(t, TokenResponse{
		AccessToken:  "test_access_token",
		RefreshToken: "test_refresh_token",
		ExpiresIn:    9999,
	}, a.TokenResponse())

	require.Equal(t, UserInfo{
		ID:            "12345",
		Email:         "test@test.com",
		IDToken:       "id_token_12345",
		VerifiedEmail: "test+verified@test.com",
	}, a.UserInfo())
}
