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

	"tangle/internal/store"
)

var linkCmd = &cobra.Command{
	Use:   "link <source-id> <target-id>",
	Short: "Connect two notes",
	Long: `Connect two notes. A pair of notes can hold at most one connection,
except for the update-type connections recorded by version forks.

Examples:
  tangle link 4f1f… 9a3c…
  tangle link 4f1f… 9a3c… --type manual --label "see also"`,
	Args: cobra.ExactArgs(2),
	RunE: runLink,
}

var unlinkCmd = &cobra.Command{
	Use:   "unlink <connection-id>",
	Short: "Remove a connection",
	Args:  cobra.ExactArgs(1),
	RunE:  runUnlink,
}

var linksCmd = &cobra.Command{
	Use:   "links [note-id]",
	Short: "List connections, oldest first",
	Long: `List all connections, or with a note id only the connections
touching that note.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLinks,
}

// Flag variables
var (
	linkType       string
	linkLabel      string
	linkSourcePos  string
	linkTargetPos  string
	linkSourceLine int64
	linkTargetLine int64
)

func init() {
	linkCmd.Flags().StringVar(&linkType, "type", "", "Connection type: default, manual, reference")
	linkCmd.Flags().StringVar(&linkLabel, "label", "", "Connection label")
	linkCmd.Flags().StringVar(&linkSourcePos, "source-pos", "", "Source anchor: top, right, bottom, left")
	linkCmd.Flags().StringVar(&linkTargetPos, "target-pos", "", "Target anchor: top, right, bottom, left")
	linkCmd.Flags().Int64Var(&linkSourceLine, "source-line", 0, "Source line index")
	linkCmd.Flags().Int64Var(&linkTargetLine, "target-line", 0, "Target line index")
	rootCmd.AddCommand(linkCmd)

	rootCmd.AddCommand(unlinkCmd)
	rootCmd.AddCommand(linksCmd)
}

func runLink(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	conn, err := s.CreateConnection(cmd.Context(), args[0], args[1], store.ConnectionAttrs{
		Type:            store.LinkType(linkType),
		Label:           linkLabel,
		SourceLineIndex: linkSourceLine,
		TargetLineIndex: linkTargetLine,
		SourcePosition:  store.AnchorPosition(linkSourcePos),
		TargetPosition:  store.AnchorPosition(linkTargetPos),
	})
	if err != nil {
		return err
	}

	fmt.Printf("Created connection %s\n", conn.ID)
	return nil
}

func runUnlink(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	deleted, err := s.DeleteConnection(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if !deleted {
		fmt.Printf("Connection %s not found\n", args[0])
		return nil
	}
	fmt.Printf("Deleted connection %s\n", args[0])
	return nil
}

func runLinks(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	var conns []*store.Connection
	var err2 error
	if len(args) == 1 {
		conns, err2 = s.GetConnectionsForNote(cmd.Context(), args[0])
	} else {
		conns, err2 = s.GetAllConnections(cmd.Context())
	}
	if err2 != nil {
		return err2
	}

	if len(conns) == 0 {
		fmt.Println("No connections")
		return nil
	}
	for _, c := range conns {
		line := fmt.Sprintf("%s  %s -> %s  [%s]", shortID(c.ID), shortID(c.SourceID), shortID(c.TargetID), c.Type)
		if c.Label != "" {
			line += "  " + c.Label
		}
		fmt.Println(line)
	}
	return nil
}
