// Copyright 2026 Tangle Authors
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

package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report integrity issues without repairing",
	Long: `Report integrity issues: connections whose endpoints no longer exist
and duplicate connections between the same pair of notes. Nothing is
modified; the findings are advisory.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show store statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(statsCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	issues, err := s.Validate(cmd.Context())
	if err != nil {
		return err
	}

	if len(issues) == 0 {
		fmt.Println("No issues found")
		return nil
	}
	for _, issue := range issues {
		fmt.Printf("%s: connection %s: %s\n", issue.Kind, issue.ConnectionID, issue.Detail)
	}
	fmt.Printf("\n%d issue(s) found\n", len(issues))
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	stats, err := s.Stats(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("Notes:       %d total (%d main, %d regular)\n", stats.TotalNotes, stats.MainNotes, stats.RegularNotes)
	fmt.Printf("Connections: %d\n", stats.TotalConnections)
	if !stats.LastUpdated.IsZero() {
		fmt.Printf("Updated:     %s\n", stats.LastUpdated.Format("Mon Jan 2 15:04:05 2006"))
	}
	return nil
}
