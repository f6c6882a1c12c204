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

package store

import (
	"testing"
	"time"
)

func TestShouldFork(t *testing.T) {
	base := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	window := time.Hour

	cases := []struct {
		name    string
		elapsed time.Duration
		want    bool
	}{
		{"immediately", 0, false},
		{"within window", 30 * time.Minute, false},
		{"exactly at window", time.Hour, false},
		{"one millisecond past", time.Hour + time.Millisecond, true},
		{"well past", 26 * time.Hour, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := shouldFork(base.Add(tc.elapsed), base, window)
			if got != tc.want {
				t.Errorf("shouldFork(elapsed=%s) = %v, want %v", tc.elapsed, got, tc.want)
			}
		})
	}
}

func TestForkNoteBuildsFreshVersion(t *testing.T) {
	now := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	original := &Note{
		ID:        "orig",
		Title:     "old title",
		Content:   "old content",
		IsMain:    true,
		Tags:      []string{"old"},
		X:         5,
		Y:         6,
		Width:     400,
		Height:    250,
		CreatedAt: now.Add(-48 * time.Hour),
		UpdatedAt: now.Add(-2 * time.Hour),
	}

	forked := forkNote(original, NotePatch{Content: strptr("new content")}, now)

	if forked.ID == original.ID || forked.ID == "" {
		t.Fatalf("fork should get a fresh id, got %q", forked.ID)
	}
	if forked.ParentID != original.ID {
		t.Errorf("ParentID = %q, want %q", forked.ParentID, original.ID)
	}
	if forked.Content != "new content" {
		t.Errorf("Content = %q, want patched content", forked.Content)
	}

	// The patch is the whole content of the new version. Nothing else is
	// inherited from the original.
	if forked.Title != "" {
		t.Errorf("Title = %q, want empty", forked.Title)
	}
	if forked.IsMain {
		t.Error("IsMain should not be inherited")
	}
	if len(forked.Tags) != 0 {
		t.Errorf("Tags = %v, want none", forked.Tags)
	}
	if forked.Width != DefaultNoteWidth || forked.Height != DefaultNoteHeight {
		t.Errorf("box = %dx%d, want defaults", forked.Width, forked.Height)
	}
	if !forked.CreatedAt.Equal(now) || !forked.UpdatedAt.Equal(now) {
		t.Errorf("timestamps = %v/%v, want %v", forked.CreatedAt, forked.UpdatedAt, now)
	}
}

func TestMergeNoteKeepsUnsetFields(t *testing.T) {
	now := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	stored := &Note{
		ID:        "n1",
		Title:     "title",
		Content:   "content",
		Tags:      []string{"a", "b"},
		X:         1,
		Y:         2,
		Width:     300,
		Height:    200,
		CreatedAt: now.Add(-time.Hour),
		UpdatedAt: now.Add(-time.Minute),
	}

	merged := mergeNote(stored, NotePatch{X: intptr(100), Y: intptr(200)}, now)

	if merged.Title != "title" || merged.Content != "content" {
		t.Error("unset fields should keep their stored values")
	}
	if merged.X != 100 || merged.Y != 200 {
		t.Errorf("position = (%d, %d), want (100, 200)", merged.X, merged.Y)
	}
	if !merged.UpdatedAt.Equal(now) {
		t.Errorf("UpdatedAt = %v, want %v", merged.UpdatedAt, now)
	}
	if !merged.CreatedAt.Equal(stored.CreatedAt) {
		t.Error("CreatedAt should never change on merge")
	}
	if stored.X != 1 {
		t.Error("mergeNote must not mutate the stored note")
	}
}

func TestMergeNoteEmptyStringIsAValue(t *testing.T) {
	now := time.Now()
	stored := &Note{ID: "n1", Title: "title", UpdatedAt: now.Add(-time.Minute)}

	merged := mergeNote(stored, NotePatch{Title: strptr("")}, now)
	if merged.Title != "" {
		t.Errorf("Title = %q, want cleared; a set pointer to empty clears the field", merged.Title)
	}
}

func TestUpdateLinkDirection(t *testing.T) {
	now := time.Now()
	link := updateLink("new-id", "old-id", now)

	if link.Type != LinkUpdate {
		t.Errorf("Type = %q, want %q", link.Type, LinkUpdate)
	}
	if link.SourceID != "new-id" || link.TargetID != "old-id" {
		t.Errorf("link %s -> %s, want new -> original", link.SourceID, link.TargetID)
	}
	if link.ID == "" {
		t.Error("link should get an id")
	}
}
