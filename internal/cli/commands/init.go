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
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"tangle/internal/common"
	"tangle/internal/store"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the data file for the configured backend",
	Long: `Create the data file for the configured backend.

For the sqlite backend this creates the database with the current schema;
for the json backend it creates an empty document file. Settings live in
the config directory (default ~/.tangle, override with TANGLE_CONFIG_DIR).`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	if err := os.MkdirAll(filepath.Dir(settings.DataPath), 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	if settings.Backend == "json" {
		if _, err := os.Stat(settings.DataPath); err == nil {
			fmt.Printf("Data file already exists: %s\n", settings.DataPath)
			return nil
		}
		s, err := store.OpenFile(settings.DataPath, storeOptions()...)
		if err != nil {
			return err
		}
		defer s.Close()
		fmt.Printf("Initialized json store in %s\n", settings.DataPath)
		return nil
	}

	s, err := store.CreateSQLite(settings.DataPath, storeOptions()...)
	if err != nil {
		if errors.Is(err, common.ErrExists) {
			fmt.Printf("Data file already exists: %s\n", settings.DataPath)
			return nil
		}
		return err
	}
	defer s.Close()
	fmt.Printf("Initialized sqlite store in %s\n", settings.DataPath)
	return nil
}
