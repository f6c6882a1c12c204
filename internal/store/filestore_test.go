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
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tangle/internal/common"
)

func TestOpenFileCreatesEmptyDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "canvas.json")

	s, err := OpenFile(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err, "document file should be written on first open")

	notes, err := s.GetAllNotes(context.Background())
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestOpenFileLockContention(t *testing.T) {
	path := filepath.Join(t.TempDir(), "canvas.json")

	s, err := OpenFile(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = OpenFile(path)
	assert.Error(t, err, "second open of a locked store should fail")

	// The lock is released on Close, after which reopening works.
	require.NoError(t, s.Close())
	s2, err := OpenFile(path)
	require.NoError(t, err)
	s2.Close()
}

func TestFileStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "canvas.json")
	clk := newTestClock()

	s, err := OpenFile(path, WithClock(clk.Now))
	require.NoError(t, err)

	parent, err := s.CreateNote(ctx, NoteDraft{Title: "parent"})
	require.NoError(t, err)
	child, err := s.CreateNote(ctx, NoteDraft{Title: "child", ParentID: parent.ID})
	require.NoError(t, err)
	conn, err := s.CreateConnection(ctx, parent.ID, child.ID, ConnectionAttrs{Label: "kept"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2, err := OpenFile(path, WithClock(clk.Now))
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.GetNote(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{child.ID}, got.Children, "children are rebuilt from parent ids on load")

	conns, err := s2.GetAllConnections(ctx)
	require.NoError(t, err)
	require.Len(t, conns, 1)
	assert.Equal(t, conn.ID, conns[0].ID)
	assert.Equal(t, "kept", conns[0].Label)
}

func TestFileStoreForkPersistsUpdateLink(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "canvas.json")
	clk := newTestClock()

	s, err := OpenFile(path, WithClock(clk.Now))
	require.NoError(t, err)

	note, err := s.CreateNote(ctx, NoteDraft{Content: "v1"})
	require.NoError(t, err)

	clk.Advance(DefaultForkWindow + time.Second)
	forked, err := s.UpdateNote(ctx, note.ID, NotePatch{Content: strptr("v2")})
	require.NoError(t, err)
	require.NotEqual(t, note.ID, forked.ID)
	require.NoError(t, s.Close())

	s2, err := OpenFile(path, WithClock(clk.Now))
	require.NoError(t, err)
	defer s2.Close()

	conns, err := s2.GetConnectionsForNote(ctx, forked.ID)
	require.NoError(t, err)
	require.Len(t, conns, 1)
	assert.Equal(t, LinkUpdate, conns[0].Type)

	orig, err := s2.GetNote(ctx, note.ID)
	require.NoError(t, err)
	assert.Contains(t, orig.Children, forked.ID)
}

func TestOpenFileRejectsCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("][\n"), 0600))

	_, err := OpenFile(path)
	assert.ErrorIs(t, err, common.ErrInvalidSnapshot)
}

func TestFileStoreFailedMutationLeavesStateIntact(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "canvas.json")

	s, err := OpenFile(path)
	require.NoError(t, err)
	defer s.Close()

	a, err := s.CreateNote(ctx, NoteDraft{Title: "a"})
	require.NoError(t, err)
	b, err := s.CreateNote(ctx, NoteDraft{Title: "b"})
	require.NoError(t, err)
	_, err = s.CreateConnection(ctx, a.ID, b.ID, ConnectionAttrs{})
	require.NoError(t, err)

	// A rejected mutation must not leave partial edits behind.
	_, err = s.CreateConnection(ctx, a.ID, b.ID, ConnectionAttrs{})
	require.ErrorIs(t, err, common.ErrDuplicateConnection)

	conns, err := s.GetAllConnections(ctx)
	require.NoError(t, err)
	assert.Len(t, conns, 1)

	// No temp files left behind by atomic writes.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp", "temp file %s should have been cleaned up", e.Name())
	}
}
