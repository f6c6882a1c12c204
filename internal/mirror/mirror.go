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

// Package mirror keeps an in-memory optimistic copy of store state for a UI
// session. Every mutation is applied to the mirror first, then forwarded to
// the store; the mirror commits the store's canonical result on success and
// runs the mutation's inverse on failure, so it never diverges permanently.
package mirror

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"tangle/internal/store"
)

// Mirror is the optimistic client-side cache in front of a Store.
type Mirror struct {
	mu    sync.Mutex
	store store.Store
	notes map[string]*store.Note
	conns map[string]*store.Connection
}

// New builds an empty mirror over the given store. Call Load to populate it.
func New(s store.Store) *Mirror {
	return &Mirror{
		store: s,
		notes: make(map[string]*store.Note),
		conns: make(map[string]*store.Connection),
	}
}

// Load replaces the mirror contents with the store's current state.
func (m *Mirror) Load(ctx context.Context) error {
	notes, err := m.store.GetAllNotes(ctx)
	if err != nil {
		return err
	}
	conns, err := m.store.GetAllConnections(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes = make(map[string]*store.Note, len(notes))
	for _, n := range notes {
		m.notes[n.ID] = n.Clone()
	}
	m.conns = make(map[string]*store.Connection, len(conns))
	for _, c := range conns {
		m.conns[c.ID] = c.Clone()
	}
	return nil
}

// Note returns the mirrored note, or nil if unknown.
func (m *Mirror) Note(id string) *store.Note {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.notes[id]; ok {
		return n.Clone()
	}
	return nil
}

// Connection returns the mirrored connection, or nil if unknown.
func (m *Mirror) Connection(id string) *store.Connection {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.conns[id]; ok {
		return c.Clone()
	}
	return nil
}

// Notes returns all mirrored notes, most recently updated first.
func (m *Mirror) Notes() []*store.Note {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*store.Note, 0, len(m.notes))
	for _, n := range m.notes {
		out = append(out, n.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// Connections returns all mirrored connections in creation order.
func (m *Mirror) Connections() []*store.Connection {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*store.Connection, 0, len(m.conns))
	for _, c := range m.conns {
		out = append(out, c.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// CreateNote optimistically inserts a placeholder note, forwards the create,
// and swaps in the store's canonical note (which carries the real id).
func (m *Mirror) CreateNote(ctx context.Context, draft store.NoteDraft) (*store.Note, error) {
	placeholder := &store.Note{
		ID:       uuid.NewString(),
		Title:    draft.Title,
		Content:  draft.Content,
		IsMain:   draft.IsMain,
		Tags:     append([]string(nil), draft.Tags...),
		X:        draft.X,
		Y:        draft.Y,
		Width:    draft.Width,
		Height:   draft.Height,
		ParentID: draft.ParentID,
	}
	if placeholder.Width == 0 {
		placeholder.Width = store.DefaultNoteWidth
	}
	if placeholder.Height == 0 {
		placeholder.Height = store.DefaultNoteHeight
	}

	cmd := m.applyCreateNote(placeholder)

	canonical, err := m.store.CreateNote(ctx, draft)
	if err != nil {
		m.rollback(cmd, err)
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.notes, placeholder.ID)
	if parent, ok := m.notes[placeholder.ParentID]; ok {
		parent.Children = replaceID(parent.Children, placeholder.ID, canonical.ID)
	}
	m.notes[canonical.ID] = canonical.Clone()
	return canonical.Clone(), nil
}

// UpdateNote optimistically merges the patch, forwards the update, and
// reconciles with the canonical result. A fork result (different id) restores
// the original note untouched and inserts the new version alongside it.
func (m *Mirror) UpdateNote(ctx context.Context, id string, patch store.NotePatch) (*store.Note, error) {
	cmd, ok := m.applyUpdateNote(id, patch)
	if !ok {
		return nil, m.forward(ctx, id, patch)
	}

	canonical, err := m.store.UpdateNote(ctx, id, patch)
	if err != nil {
		m.rollback(cmd, err)
		return nil, err
	}

	m.mu.Lock()
	if canonical.ID == id {
		m.notes[id] = canonical.Clone()
		m.mu.Unlock()
		return canonical.Clone(), nil
	}

	// Fork: the original record is untouched in the store, so put the
	// pre-call value back and add the new version as its child.
	prior := cmd.priorNote.Clone()
	prior.Children = append(prior.Children, canonical.ID)
	m.notes[id] = prior
	m.notes[canonical.ID] = canonical.Clone()
	m.mu.Unlock()

	// Pick up the update-type connection recorded by the fork.
	if conns, err := m.store.GetConnectionsForNote(ctx, canonical.ID); err == nil {
		m.mu.Lock()
		for _, c := range conns {
			m.conns[c.ID] = c.Clone()
		}
		m.mu.Unlock()
	} else {
		log.Warnf("[Mirror] updateNote id=%s: fetching fork connections failed: %v", id, err)
	}
	return canonical.Clone(), nil
}

// forward sends an update for a note the mirror does not hold. The store is
// authoritative; if it knows the id, the result is adopted into the mirror.
func (m *Mirror) forward(ctx context.Context, id string, patch store.NotePatch) error {
	canonical, err := m.store.UpdateNote(ctx, id, patch)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.notes[canonical.ID] = canonical.Clone()
	m.mu.Unlock()
	return nil
}

// DeleteNote optimistically removes the note, its descendants, and touching
// connections, re-inserting all of them if the store call fails.
func (m *Mirror) DeleteNote(ctx context.Context, id string) (bool, error) {
	cmd := m.applyDeleteNote(id)

	deleted, err := m.store.DeleteNote(ctx, id)
	if err != nil {
		m.rollback(cmd, err)
		return false, err
	}
	return deleted, nil
}

// CreateConnection optimistically inserts a placeholder connection and swaps
// in the store's canonical one.
func (m *Mirror) CreateConnection(ctx context.Context, sourceID, targetID string, attrs store.ConnectionAttrs) (*store.Connection, error) {
	placeholder := &store.Connection{
		ID:              uuid.NewString(),
		SourceID:        sourceID,
		TargetID:        targetID,
		Type:            attrs.Type,
		Label:           attrs.Label,
		SourceLineIndex: attrs.SourceLineIndex,
		TargetLineIndex: attrs.TargetLineIndex,
		SourcePosition:  attrs.SourcePosition,
		TargetPosition:  attrs.TargetPosition,
	}
	if placeholder.Type == "" {
		placeholder.Type = store.LinkDefault
	}

	cmd := m.applyCreateConnection(placeholder)

	canonical, err := m.store.CreateConnection(ctx, sourceID, targetID, attrs)
	if err != nil {
		m.rollback(cmd, err)
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.conns, placeholder.ID)
	m.conns[canonical.ID] = canonical.Clone()
	return canonical.Clone(), nil
}

// DeleteConnection optimistically removes the connection, re-inserting it if
// the store call fails.
func (m *Mirror) DeleteConnection(ctx context.Context, id string) (bool, error) {
	cmd := m.applyDeleteConnection(id)

	deleted, err := m.store.DeleteConnection(ctx, id)
	if err != nil {
		m.rollback(cmd, err)
		return false, err
	}
	return deleted, nil
}

func replaceID(ids []string, from, to string) []string {
	for i, v := range ids {
		if v == from {
			ids[i] = to
		}
	}
	return ids
}
