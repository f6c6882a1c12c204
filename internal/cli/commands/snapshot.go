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
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export the whole store to a JSON snapshot",
	Long: `Export all notes and connections to a single JSON snapshot file.
The snapshot uses the same layout as the json backend's data file, so it
can be imported into either backend.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the store contents with a JSON snapshot",
	Long: `Replace all notes and connections with the contents of a JSON
snapshot file. The snapshot is validated first; a snapshot whose
connections reference missing notes is rejected and nothing changes.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var importSkipConfirm bool

func init() {
	rootCmd.AddCommand(exportCmd)

	importCmd.Flags().BoolVarP(&importSkipConfirm, "yes", "y", false, "Skip confirmation prompt")
	rootCmd.AddCommand(importCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	path, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.ExportSnapshot(cmd.Context(), path); err != nil {
		return err
	}
	fmt.Printf("Exported snapshot to %s\n", path)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	path, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("snapshot file not found: %s", path)
	}

	if !importSkipConfirm {
		fmt.Println("Importing a snapshot replaces all current notes and connections.")
		fmt.Print("Continue? [y/N] ")

		reader := bufio.NewReader(os.Stdin)
		response, _ := reader.ReadString('\n')
		response = strings.TrimSpace(strings.ToLower(response))

		if response != "y" && response != "yes" {
			fmt.Println("Import cancelled")
			return nil
		}
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.ImportSnapshot(cmd.Context(), path); err != nil {
		return err
	}
	fmt.Printf("Imported snapshot from %s\n", path)
	return nil
}
