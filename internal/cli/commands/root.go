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
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tangle/internal/config"
	"tangle/internal/store"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// SetVersion sets the version info for --version flag
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

// getVersionString returns the version string with build info
func getVersionString() string {
	buildDate := formatBuildDate(date)
	if strings.HasSuffix(version, "-dev") {
		// Dev build: include epoch and commit for troubleshooting
		return fmt.Sprintf("%s (%s, epoch: %s, commit: %s)", version, buildDate, date, commit)
	}
	// Prod build: version with date
	return fmt.Sprintf("%s (%s)", version, buildDate)
}

// formatBuildDate converts epoch timestamp to readable date
func formatBuildDate(epoch string) string {
	ts, err := strconv.ParseInt(epoch, 10, 64)
	if err != nil {
		return epoch
	}
	return time.Unix(ts, 0).Format("2006-01-02")
}

// Global flags
var (
	flagDataPath string
	flagBackend  string
)

// settings holds the loaded configuration for the current invocation.
var settings *config.Settings

var rootCmd = &cobra.Command{
	Use:   "tangle",
	Short: "Persistence layer for a note canvas",
	Long: `Versioned persistence for a note canvas: notes, connections, and
automatic version forks for notes edited after a period of inactivity.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip initialization for help commands
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		// Initialize config directory
		if err := config.InitConfigDir(); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		s, err := config.LoadSettings()
		if err != nil {
			return fmt.Errorf("failed to load settings: %w", err)
		}
		settings = s

		config.ApplyLogLevel(settings.LogLevel)
		store.SetConfigBusyTimeout(settings.BusyTimeout)

		// Command-line flags override settings
		if flagDataPath != "" {
			settings.DataPath = flagDataPath
		}
		if flagBackend != "" {
			settings.Backend = flagBackend
		}
		switch settings.Backend {
		case "sqlite", "json":
		default:
			return fmt.Errorf("unknown backend %q (want sqlite or json)", settings.Backend)
		}

		return nil
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetVersionTemplate("tangle version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVarP(&flagDataPath, "data", "d", "", "Path to the data file (overrides settings)")
	rootCmd.PersistentFlags().StringVarP(&flagBackend, "backend", "b", "", "Storage backend: sqlite or json (overrides settings)")
}

// storeOptions translates loaded settings into store options.
func storeOptions() []store.Option {
	opts := []store.Option{store.WithForkWindow(settings.ForkWindow())}
	if d := settings.WriteTimeout(); d > 0 {
		opts = append(opts, store.WithWriteTimeout(d))
	}
	return opts
}

// openStore opens the configured backend, creating the data file on first use.
func openStore() (store.Store, error) {
	if settings.Backend == "json" {
		return store.OpenFile(settings.DataPath, storeOptions()...)
	}
	return store.OpenSQLite(settings.DataPath, storeOptions()...)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
