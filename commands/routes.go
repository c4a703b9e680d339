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
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/openpubkey/mockgaia/routes"
	"github.com/spf13/cobra"
)

func newRoutesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Print the route table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := routes.Default(a.cfg.Account())
			if err != nil {
				return err
			}
			PrintRoutes(cmd.OutOrStdout(), table)
			return nil
		},
	}
}

// PrintRoutes writes one row per route, grouped by mount prefix: methods,
// full path, status, name.
func PrintRoutes(w io.Writer, table routes.Table) {
	tw := tablewriter.NewWriter(w)
	tw.SetAutoWrapText(false)
	tw.SetHeader([]string{"Methods", "Path", "Status", "Name"})
	for _, group := range table.Groups() {
		for _, r := range group.Routes {
			tw.Append([]string{
				strings.Join(r.Methods, ","),
				r.FullPath(),
				strconv.Itoa(r.Response.Status),
				r.Name,
			})
		}
	}
	tw.Render()
}
