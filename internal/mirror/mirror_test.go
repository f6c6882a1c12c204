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

package mirror

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tangle/internal/common"
	"tangle/internal/store"
)

var errInjected = errors.New("injected store failure")

// fakeStore is a scriptable in-memory Store. Setting failNext makes the next
// mutating call fail; setting forkNext makes the next UpdateNote return a new
// version instead of merging in place.
type fakeStore struct {
	notes map[string]*store.Note
	conns map[string]*store.Connection

	failNext error
	forkNext bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		notes: make(map[string]*store.Note),
		conns: make(map[string]*store.Connection),
	}
}

func (f *fakeStore) takeFailure() error {
	err := f.failNext
	f.failNext = nil
	return err
}

func (f *fakeStore) seedNote(n *store.Note) *store.Note {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	f.notes[n.ID] = n
	if parent, ok := f.notes[n.ParentID]; ok {
		parent.Children = append(parent.Children, n.ID)
	}
	return n
}

func (f *fakeStore) CreateNote(ctx context.Context, draft store.NoteDraft) (*store.Note, error) {
	if err := f.takeFailure(); err != nil {
		return nil, err
	}
	n := &store.Note{
		ID:       uuid.NewString(),
		Title:    draft.Title,
		Content:  draft.Content,
		IsMain:   draft.IsMain,
		Tags:     draft.Tags,
		ParentID: draft.ParentID,
	}
	return f.seedNote(n), nil
}

func (f *fakeStore) GetNote(ctx context.Context, id string) (*store.Note, error) {
	n, ok := f.notes[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return n.Clone(), nil
}

func (f *fakeStore) GetAllNotes(ctx context.Context) ([]*store.Note, error) {
	out := make([]*store.Note, 0, len(f.notes))
	for _, n := range f.notes {
		out = append(out, n.Clone())
	}
	return out, nil
}

func (f *fakeStore) UpdateNote(ctx context.Context, id string, patch store.NotePatch) (*store.Note, error) {
	if err := f.takeFailure(); err != nil {
		return nil, err
	}
	stored, ok := f.notes[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	if f.forkNext {
		f.forkNext = false
		forked := &store.Note{ID: uuid.NewString(), ParentID: id}
		if patch.Content != nil {
			forked.Content = *patch.Content
		}
		f.notes[forked.ID] = forked
		stored.Children = append(stored.Children, forked.ID)
		link := &store.Connection{
			ID:       uuid.NewString(),
			SourceID: forked.ID,
			TargetID: id,
			Type:     store.LinkUpdate,
		}
		f.conns[link.ID] = link
		return forked.Clone(), nil
	}
	if patch.Title != nil {
		stored.Title = *patch.Title
	}
	if patch.Content != nil {
		stored.Content = *patch.Content
	}
	stored.UpdatedAt = time.Now()
	return stored.Clone(), nil
}

func (f *fakeStore) DeleteNote(ctx context.Context, id string) (bool, error) {
	if err := f.takeFailure(); err != nil {
		return false, err
	}
	if _, ok := f.notes[id]; !ok {
		return false, nil
	}
	delete(f.notes, id)
	return true, nil
}

func (f *fakeStore) CreateConnection(ctx context.Context, sourceID, targetID string, attrs store.ConnectionAttrs) (*store.Connection, error) {
	if err := f.takeFailure(); err != nil {
		return nil, err
	}
	c := &store.Connection{ID: uuid.NewString(), SourceID: sourceID, TargetID: targetID, Type: attrs.Type}
	if c.Type == "" {
		c.Type = store.LinkDefault
	}
	f.conns[c.ID] = c
	return c.Clone(), nil
}

func (f *fakeStore) DeleteConnection(ctx context.Context, id string) (bool, error) {
	if err := f.takeFailure(); err != nil {
		return false, err
	}
	if _, ok := f.conns[id]; !ok {
		return false, nil
	}
	delete(f.conns, id)
	return true, nil
}

func (f *fakeStore) GetAllConnections(ctx context.Context) ([]*store.Connection, error) {
	out := make([]*store.Connection, 0, len(f.conns))
	for _, c := range f.conns {
		out = append(out, c.Clone())
	}
	return out, nil
}

func (f *fakeStore) GetConnectionsForNote(ctx context.Context, noteID string) ([]*store.Connection, error) {
	var out []*store.Connection
	for _, c := range f.conns {
		if c.Touches(noteID) {
			out = append(out, c.Clone())
		}
	}
	return out, nil
}

func (f *fakeStore) GetConnected(ctx context.Context, noteID string) ([]*store.Note, error) {
	return nil, nil
}

func (f *fakeStore) SearchNotes(ctx context.Context, query string) ([]*store.Note, error) {
	return nil, nil
}

func (f *fakeStore) NotesByKind(ctx context.Context, isMain bool) ([]*store.Note, error) {
	return nil, nil
}

func (f *fakeStore) Stats(ctx context.Context) (*store.Stats, error) { return &store.Stats{}, nil }

func (f *fakeStore) Validate(ctx context.Context) ([]store.Issue, error) { return nil, nil }

func (f *fakeStore) ExportSnapshot(ctx context.Context, path string) error { return nil }

func (f *fakeStore) ImportSnapshot(ctx context.Context, path string) error { return nil }

func (f *fakeStore) Close() error { return nil }

var _ store.Store = (*fakeStore)(nil)

// loadedMirror builds a mirror preloaded with the fake store's state.
func loadedMirror(t *testing.T, f *fakeStore) *Mirror {
	t.Helper()
	m := New(f)
	require.NoError(t, m.Load(context.Background()))
	return m
}

func TestMirrorLoad(t *testing.T) {
	f := newFakeStore()
	a := f.seedNote(&store.Note{Title: "a"})
	b := f.seedNote(&store.Note{Title: "b"})
	c := &store.Connection{ID: "c1", SourceID: a.ID, TargetID: b.ID}
	f.conns[c.ID] = c

	m := loadedMirror(t, f)

	assert.Len(t, m.Notes(), 2)
	assert.Len(t, m.Connections(), 1)
	require.NotNil(t, m.Note(a.ID))
	assert.Equal(t, "a", m.Note(a.ID).Title)
}

func TestMirrorCreateNote(t *testing.T) {
	t.Run("success swaps placeholder for canonical note", func(t *testing.T) {
		f := newFakeStore()
		m := loadedMirror(t, f)

		n, err := m.CreateNote(context.Background(), store.NoteDraft{Title: "new"})
		require.NoError(t, err)

		notes := m.Notes()
		require.Len(t, notes, 1, "exactly one note; the placeholder must not linger")
		assert.Equal(t, n.ID, notes[0].ID)
		_, inStore := f.notes[n.ID]
		assert.True(t, inStore, "canonical id comes from the store")
	})

	t.Run("parent children entry follows the id swap", func(t *testing.T) {
		f := newFakeStore()
		parent := f.seedNote(&store.Note{Title: "parent"})
		m := loadedMirror(t, f)

		child, err := m.CreateNote(context.Background(), store.NoteDraft{Title: "child", ParentID: parent.ID})
		require.NoError(t, err)

		got := m.Note(parent.ID)
		assert.Equal(t, []string{child.ID}, got.Children)
	})

	t.Run("failure removes the optimistic insert", func(t *testing.T) {
		f := newFakeStore()
		parent := f.seedNote(&store.Note{Title: "parent"})
		m := loadedMirror(t, f)
		f.failNext = errInjected

		_, err := m.CreateNote(context.Background(), store.NoteDraft{Title: "doomed", ParentID: parent.ID})
		require.ErrorIs(t, err, errInjected)

		assert.Len(t, m.Notes(), 1, "only the parent remains")
		assert.Empty(t, m.Note(parent.ID).Children, "parent's children entry was rolled back")
	})
}

func TestMirrorUpdateNote(t *testing.T) {
	t.Run("success commits canonical result", func(t *testing.T) {
		f := newFakeStore()
		n := f.seedNote(&store.Note{Title: "old"})
		m := loadedMirror(t, f)

		title := "new"
		got, err := m.UpdateNote(context.Background(), n.ID, store.NotePatch{Title: &title})
		require.NoError(t, err)
		assert.Equal(t, n.ID, got.ID)
		assert.Equal(t, "new", m.Note(n.ID).Title)
	})

	t.Run("failure restores the prior value exactly", func(t *testing.T) {
		f := newFakeStore()
		n := f.seedNote(&store.Note{Title: "old", Content: "body", Tags: []string{"t"}})
		m := loadedMirror(t, f)
		before := m.Note(n.ID)
		f.failNext = errInjected

		title := "new"
		_, err := m.UpdateNote(context.Background(), n.ID, store.NotePatch{Title: &title})
		require.ErrorIs(t, err, errInjected)

		after := m.Note(n.ID)
		assert.Equal(t, before, after, "rollback must restore the snapshot, not re-derive it")
	})

	t.Run("fork keeps original and adds the new version", func(t *testing.T) {
		f := newFakeStore()
		n := f.seedNote(&store.Note{Title: "original", Content: "v1"})
		m := loadedMirror(t, f)
		f.forkNext = true

		content := "v2"
		forked, err := m.UpdateNote(context.Background(), n.ID, store.NotePatch{Content: &content})
		require.NoError(t, err)
		require.NotEqual(t, n.ID, forked.ID)

		orig := m.Note(n.ID)
		require.NotNil(t, orig)
		assert.Equal(t, "v1", orig.Content, "the original keeps its pre-edit content")
		assert.Contains(t, orig.Children, forked.ID)

		got := m.Note(forked.ID)
		require.NotNil(t, got)
		assert.Equal(t, "v2", got.Content)

		// The update-type connection recorded by the fork is picked up.
		conns := m.Connections()
		require.Len(t, conns, 1)
		assert.Equal(t, store.LinkUpdate, conns[0].Type)
		assert.Equal(t, forked.ID, conns[0].SourceID)
		assert.Equal(t, n.ID, conns[0].TargetID)
	})

	t.Run("unknown note forwards to the store", func(t *testing.T) {
		f := newFakeStore()
		n := f.seedNote(&store.Note{Title: "unseen"})
		m := New(f) // not loaded; mirror is empty

		title := "renamed"
		got, err := m.UpdateNote(context.Background(), n.ID, store.NotePatch{Title: &title})
		require.NoError(t, err)
		assert.Nil(t, got, "forwarded updates adopt silently")
		require.NotNil(t, m.Note(n.ID))
		assert.Equal(t, "renamed", m.Note(n.ID).Title)
	})
}

func TestMirrorDeleteNote(t *testing.T) {
	t.Run("success removes subtree and touching connections", func(t *testing.T) {
		f := newFakeStore()
		root := f.seedNote(&store.Note{Title: "root"})
		child := f.seedNote(&store.Note{Title: "child", ParentID: root.ID})
		other := f.seedNote(&store.Note{Title: "other"})
		c := &store.Connection{ID: "c1", SourceID: other.ID, TargetID: child.ID}
		f.conns[c.ID] = c
		m := loadedMirror(t, f)

		deleted, err := m.DeleteNote(context.Background(), root.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		assert.Nil(t, m.Note(root.ID))
		assert.Nil(t, m.Note(child.ID))
		assert.NotNil(t, m.Note(other.ID))
		assert.Empty(t, m.Connections())
	})

	t.Run("failure reinstates everything removed", func(t *testing.T) {
		f := newFakeStore()
		root := f.seedNote(&store.Note{Title: "root"})
		child := f.seedNote(&store.Note{Title: "child", ParentID: root.ID})
		c := &store.Connection{ID: "c1", SourceID: root.ID, TargetID: child.ID, Type: store.LinkUpdate}
		f.conns[c.ID] = c
		m := loadedMirror(t, f)
		f.failNext = errInjected

		_, err := m.DeleteNote(context.Background(), root.ID)
		require.ErrorIs(t, err, errInjected)

		require.NotNil(t, m.Note(root.ID))
		require.NotNil(t, m.Note(child.ID))
		assert.Contains(t, m.Note(root.ID).Children, child.ID)
		require.Len(t, m.Connections(), 1)
		assert.Equal(t, "c1", m.Connections()[0].ID)
	})
}

func TestMirrorConnections(t *testing.T) {
	t.Run("create success swaps placeholder", func(t *testing.T) {
		f := newFakeStore()
		a := f.seedNote(&store.Note{})
		b := f.seedNote(&store.Note{})
		m := loadedMirror(t, f)

		c, err := m.CreateConnection(context.Background(), a.ID, b.ID, store.ConnectionAttrs{})
		require.NoError(t, err)

		conns := m.Connections()
		require.Len(t, conns, 1)
		assert.Equal(t, c.ID, conns[0].ID)
	})

	t.Run("create failure leaves no residue", func(t *testing.T) {
		f := newFakeStore()
		a := f.seedNote(&store.Note{})
		b := f.seedNote(&store.Note{})
		m := loadedMirror(t, f)
		f.failNext = errInjected

		_, err := m.CreateConnection(context.Background(), a.ID, b.ID, store.ConnectionAttrs{})
		require.ErrorIs(t, err, errInjected)
		assert.Empty(t, m.Connections())
	})

	t.Run("delete failure restores the connection", func(t *testing.T) {
		f := newFakeStore()
		a := f.seedNote(&store.Note{})
		b := f.seedNote(&store.Note{})
		c := &store.Connection{ID: "c1", SourceID: a.ID, TargetID: b.ID, Label: "kept"}
		f.conns[c.ID] = c
		m := loadedMirror(t, f)
		f.failNext = errInjected

		_, err := m.DeleteConnection(context.Background(), "c1")
		require.ErrorIs(t, err, errInjected)

		conns := m.Connections()
		require.Len(t, conns, 1)
		assert.Equal(t, "kept", conns[0].Label)
	})
}
