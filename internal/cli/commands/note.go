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
	"strings"

	"github.com/spf13/cobra"

	"tangle/internal/store"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a note",
	Long: `Create a note on the canvas.

Examples:
  # Create a note with content
  tangle create -t "Reading list" -c "Start with the essays"

  # Create a main note with tags at a position
  tangle create -t "Project" --main --tag work --tag q3 --x 120 --y 80`,
	Args: cobra.NoArgs,
	RunE: runCreate,
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a note",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Edit a note",
	Long: `Edit a note. Only the given flags change; everything else keeps its value.

If more than the fork window has passed since the note's last update, the
edit creates a new version of the note instead of changing it in place. The
new version carries exactly the given flags (unset fields start fresh) and
is linked to the original by an update-type connection.

Examples:
  tangle edit 4f1f… -c "Revised content"
  tangle edit 4f1f… --x 400 --y 250`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

var rmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a note and its descendants",
	Long: `Delete a note, every note descended from it, and all connections
touching any deleted note. The whole removal commits as one unit.`,
	Args: cobra.ExactArgs(1),
	RunE: runRm,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes, most recently updated first",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search notes by title, content, or tag",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

var connectedCmd = &cobra.Command{
	Use:   "connected <id>",
	Short: "List notes one connection away from a note",
	Args:  cobra.ExactArgs(1),
	RunE:  runConnected,
}

// Flag variables
var (
	// create flags
	createTitle   string
	createContent string
	createMain    bool
	createTags    []string
	createX       int64
	createY       int64
	createWidth   int64
	createHeight  int64
	createParent  string

	// edit flags
	editTitle   string
	editContent string
	editMain    bool
	editTags    []string
	editX       int64
	editY       int64
	editWidth   int64
	editHeight  int64

	// rm flags
	rmSkipConfirm bool

	// list flags
	listMainOnly    bool
	listRegularOnly bool
	listLong        bool
)

func init() {
	createCmd.Flags().StringVarP(&createTitle, "title", "t", "", "Note title")
	createCmd.Flags().StringVarP(&createContent, "content", "c", "", "Note content")
	createCmd.Flags().BoolVar(&createMain, "main", false, "Mark as a main note")
	createCmd.Flags().StringSliceVar(&createTags, "tag", nil, "Tag (repeatable)")
	createCmd.Flags().Int64Var(&createX, "x", 0, "Canvas x position")
	createCmd.Flags().Int64Var(&createY, "y", 0, "Canvas y position")
	createCmd.Flags().Int64Var(&createWidth, "width", 0, "Box width (0 = default)")
	createCmd.Flags().Int64Var(&createHeight, "height", 0, "Box height (0 = default)")
	createCmd.Flags().StringVar(&createParent, "parent", "", "Parent note id")
	rootCmd.AddCommand(createCmd)

	rootCmd.AddCommand(showCmd)

	editCmd.Flags().StringVarP(&editTitle, "title", "t", "", "New title")
	editCmd.Flags().StringVarP(&editContent, "content", "c", "", "New content")
	editCmd.Flags().BoolVar(&editMain, "main", false, "Mark as a main note")
	editCmd.Flags().StringSliceVar(&editTags, "tag", nil, "Replace tags (repeatable)")
	editCmd.Flags().Int64Var(&editX, "x", 0, "New x position")
	editCmd.Flags().Int64Var(&editY, "y", 0, "New y position")
	editCmd.Flags().Int64Var(&editWidth, "width", 0, "New box width")
	editCmd.Flags().Int64Var(&editHeight, "height", 0, "New box height")
	rootCmd.AddCommand(editCmd)

	rmCmd.Flags().BoolVarP(&rmSkipConfirm, "yes", "y", false, "Skip confirmation prompt")
	rootCmd.AddCommand(rmCmd)

	listCmd.Flags().BoolVar(&listMainOnly, "main", false, "Only main notes")
	listCmd.Flags().BoolVar(&listRegularOnly, "regular", false, "Only regular notes")
	listCmd.Flags().BoolVarP(&listLong, "long", "l", false, "Show full details")
	rootCmd.AddCommand(listCmd)

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(connectedCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	note, err := s.CreateNote(cmd.Context(), store.NoteDraft{
		Title:    createTitle,
		Content:  createContent,
		IsMain:   createMain,
		Tags:     createTags,
		X:        createX,
		Y:        createY,
		Width:    createWidth,
		Height:   createHeight,
		ParentID: createParent,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Created note %s\n", note.ID)
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	note, err := s.GetNote(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	printNote(note)
	return nil
}

func runEdit(cmd *cobra.Command, args []string) error {
	var patch store.NotePatch
	if cmd.Flags().Changed("title") {
		patch.Title = &editTitle
	}
	if cmd.Flags().Changed("content") {
		patch.Content = &editContent
	}
	if cmd.Flags().Changed("main") {
		patch.IsMain = &editMain
	}
	if cmd.Flags().Changed("tag") {
		patch.Tags = editTags
	}
	if cmd.Flags().Changed("x") {
		patch.X = &editX
	}
	if cmd.Flags().Changed("y") {
		patch.Y = &editY
	}
	if cmd.Flags().Changed("width") {
		patch.Width = &editWidth
	}
	if cmd.Flags().Changed("height") {
		patch.Height = &editHeight
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	note, err := s.UpdateNote(cmd.Context(), args[0], patch)
	if err != nil {
		return err
	}

	if note.ID != args[0] {
		fmt.Printf("Forked new version %s (original %s unchanged)\n", note.ID, args[0])
	} else {
		fmt.Printf("Updated note %s\n", note.ID)
	}
	return nil
}

func runRm(cmd *cobra.Command, args []string) error {
	id := args[0]

	if !rmSkipConfirm {
		fmt.Printf("This will delete note '%s', all its descendants, and their connections.\n", id)
		fmt.Print("Continue? [y/N] ")

		reader := bufio.NewReader(os.Stdin)
		response, _ := reader.ReadString('\n')
		response = strings.TrimSpace(strings.ToLower(response))

		if response != "y" && response != "yes" {
			fmt.Println("Delete cancelled")
			return nil
		}
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	deleted, err := s.DeleteNote(cmd.Context(), id)
	if err != nil {
		return err
	}
	if !deleted {
		fmt.Printf("Note %s not found\n", id)
		return nil
	}
	fmt.Printf("Deleted note %s\n", id)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	var notes []*store.Note
	switch {
	case listMainOnly:
		notes, err = s.NotesByKind(cmd.Context(), true)
	case listRegularOnly:
		notes, err = s.NotesByKind(cmd.Context(), false)
	default:
		notes, err = s.GetAllNotes(cmd.Context())
	}
	if err != nil {
		return err
	}

	if len(notes) == 0 {
		fmt.Println("No notes")
		return nil
	}
	printNoteList(notes, listLong)
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	notes, err := s.SearchNotes(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if len(notes) == 0 {
		fmt.Println("No matches")
		return nil
	}
	printNoteList(notes, false)
	return nil
}

func runConnected(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	notes, err := s.GetConnected(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if len(notes) == 0 {
		fmt.Println("No connected notes")
		return nil
	}
	printNoteList(notes, false)
	return nil
}

// printNote prints a full single-note view.
func printNote(n *store.Note) {
	kind := "note"
	if n.IsMain {
		kind = "main note"
	}
	fmt.Printf("%s %s\n", kind, n.ID)
	if n.Title != "" {
		fmt.Printf("Title:    %s\n", n.Title)
	}
	if len(n.Tags) > 0 {
		fmt.Printf("Tags:     %s\n", strings.Join(n.Tags, ", "))
	}
	fmt.Printf("Box:      %dx%d at (%d, %d)\n", n.Width, n.Height, n.X, n.Y)
	if n.ParentID != "" {
		fmt.Printf("Parent:   %s\n", n.ParentID)
	}
	if len(n.Children) > 0 {
		fmt.Printf("Children: %s\n", strings.Join(n.Children, ", "))
	}
	fmt.Printf("Created:  %s\n", n.CreatedAt.Format("Mon Jan 2 15:04:05 2006"))
	fmt.Printf("Updated:  %s\n", n.UpdatedAt.Format("Mon Jan 2 15:04:05 2006"))
	if n.Content != "" {
		fmt.Println()
		for _, line := range strings.Split(n.Content, "\n") {
			fmt.Printf("    %s\n", line)
		}
	}
}

// printNoteList prints notes one per line, or as full views with --long.
func printNoteList(notes []*store.Note, long bool) {
	if long {
		for i, n := range notes {
			if i > 0 {
				fmt.Println()
			}
			printNote(n)
		}
		return
	}
	for _, n := range notes {
		marker := " "
		if n.IsMain {
			marker = "*"
		}
		title := n.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("%s %s  %s  %s\n", marker, shortID(n.ID), n.UpdatedAt.Format("2006-01-02 15:04"), title)
	}
}

// shortID truncates a uuid for list output.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
