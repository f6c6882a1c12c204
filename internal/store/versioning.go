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
	"time"

	"github.com/google/uuid"
)

// shouldFork decides whether an update to a note last touched at updatedAt
// forks a new version. Forking is driven purely by elapsed time, never by a
// content diff: a no-op patch past the window still forks. The comparison is
// strictly greater-than, so an update at exactly the window edits in place.
func shouldFork(now, updatedAt time.Time, window time.Duration) bool {
	return now.Sub(updatedAt) > window
}

// forkNote builds the new note version for a fork. The patch is the complete
// content of the new version — unset fields take their defaults, they are NOT
// inherited from the original. The original record stays untouched.
func forkNote(original *Note, patch NotePatch, now time.Time) *Note {
	n := &Note{
		ID:        uuid.NewString(),
		Width:     DefaultNoteWidth,
		Height:    DefaultNoteHeight,
		ParentID:  original.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyPatch(n, patch)
	return n
}

// mergeNote applies the patch to a copy of the stored note in place and
// refreshes UpdatedAt. Unset fields are left unchanged (shallow merge).
func mergeNote(stored *Note, patch NotePatch, now time.Time) *Note {
	n := stored.Clone()
	applyPatch(n, patch)
	n.UpdatedAt = now
	return n
}

// updateLink builds the update-type connection recording a fork, pointing
// from the new version back to the original (forward edge newer → older).
func updateLink(newID, originalID string, now time.Time) *Connection {
	return &Connection{
		ID:        uuid.NewString(),
		SourceID:  newID,
		TargetID:  originalID,
		Type:      LinkUpdate,
		CreatedAt: now,
	}
}

func applyPatch(n *Note, patch NotePatch) {
	if patch.Title != nil {
		n.Title = *patch.Title
	}
	if patch.Content != nil {
		n.Content = *patch.Content
	}
	if patch.IsMain != nil {
		n.IsMain = *patch.IsMain
	}
	if patch.Tags != nil {
		n.Tags = append([]string(nil), patch.Tags...)
	}
	if patch.X != nil {
		n.X = *patch.X
	}
	if patch.Y != nil {
		n.Y = *patch.Y
	}
	if patch.Width != nil {
		n.Width = *patch.Width
	}
	if patch.Height != nil {
		n.Height = *patch.Height
	}
}
