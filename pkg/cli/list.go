// Copyright 2026 The TSI Authors.
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

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PanterSoft/tsi/pkg/db"
)

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List installed packages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			prefix := resolvePrefix(cmd)

			installedDB := db.New(prefix)
			if err := installedDB.Load(ctx); err != nil {
				return fmt.Errorf("loading installed database: %w", err)
			}

			for _, row := range installedDB.List() {
				fmt.Printf("%s\t%s\t%s\n", row.Name, row.Version, row.InstallPath)
			}
			return nil
		},
	}
}
