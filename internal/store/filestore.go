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
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"tangle/internal/common"
)

// FileStore is the single-document backend: the whole store lives in one
// JSON file, rewritten atomically on every mutation.
//
// Mutations run against a clone of the in-memory document; the clone is
// swapped in only after the file write succeeds, so a failed write leaves
// both memory and disk at the prior state.
type FileStore struct {
	path string
	lock *flock.Flock

	mu     sync.Mutex
	doc    *Document
	closed bool

	forkWindow   time.Duration
	writeTimeout time.Duration
	now          func() time.Time
}

var _ Store = (*FileStore)(nil)

// OpenFile opens the JSON store at path, creating an empty one if absent.
// An advisory file lock guards against a second process opening the same
// store.
func OpenFile(path string, opts ...Option) (*FileStore, error) {
	o := buildOptions(opts)

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s is locked by another process", common.ErrExists, path)
	}

	var doc *Document
	if _, err := os.Stat(path); os.IsNotExist(err) {
		doc = NewDocument()
		doc.LastModified = o.now().UnixMilli()
		if err := writeDocument(path, doc); err != nil {
			lock.Unlock()
			return nil, err
		}
	} else {
		doc, err = readDocument(path)
		if err != nil {
			lock.Unlock()
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		// Children is derived state; recompute rather than trusting the file.
		rebuildChildren(doc.Notes)
	}

	return &FileStore{
		path:         path,
		lock:         lock,
		doc:          doc,
		forkWindow:   o.forkWindow,
		writeTimeout: o.writeTimeout,
		now:          o.now,
	}, nil
}

// Path returns the document file path.
func (s *FileStore) Path() string {
	return s.path
}

// Close releases the file lock.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.lock.Unlock()
}

// mutate clones the document, lets fn edit the clone, persists it, and swaps
// it in. fn returning an error, or the write failing, leaves prior state
// intact.
func (s *FileStore) mutate(ctx context.Context, op, id string, fn func(doc *Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return common.ErrClosed
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()
	if err := ctx.Err(); err != nil {
		return s.wrapErr(op, id, err)
	}

	next := s.doc.Clone()
	if err := fn(next); err != nil {
		return s.wrapErr(op, id, err)
	}
	next.LastModified = s.now().UnixMilli()
	if err := writeDocument(s.path, next); err != nil {
		log.Errorf("[FileStore] %s id=%s: persisting document failed: %v", op, id, err)
		return err
	}
	s.doc = next
	return nil
}

func (s *FileStore) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.writeTimeout > 0 {
		return context.WithTimeout(ctx, s.writeTimeout)
	}
	return ctx, func() {}
}

func (s *FileStore) wrapErr(op, id string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, common.ErrNotFound),
		errors.Is(err, common.ErrDuplicateConnection),
		errors.Is(err, common.ErrSameNote),
		errors.Is(err, common.ErrInvalidSnapshot):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		log.Errorf("[FileStore] %s id=%s timed out", op, id)
		return fmt.Errorf("%w: %s %s", common.ErrStorageTimeout, op, id)
	default:
		log.Errorf("[FileStore] %s id=%s failed: %v", op, id, err)
		return fmt.Errorf("%w: %s %s: %v", common.ErrStorageWrite, op, id, err)
	}
}

// CreateNote assigns a fresh id, applies defaults, and stores the note,
// appending it to its parent's Children when a parent is supplied.
func (s *FileStore) CreateNote(ctx context.Context, draft NoteDraft) (*Note, error) {
	now := s.now()
	note := &Note{
		ID:        uuid.NewString(),
		Title:     draft.Title,
		Content:   draft.Content,
		IsMain:    draft.IsMain,
		Tags:      append([]string(nil), draft.Tags...),
		X:         draft.X,
		Y:         draft.Y,
		Width:     draft.Width,
		Height:    draft.Height,
		ParentID:  draft.ParentID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if note.Width == 0 {
		note.Width = DefaultNoteWidth
	}
	if note.Height == 0 {
		note.Height = DefaultNoteHeight
	}

	err := s.mutate(ctx, "createNote", note.ID, func(doc *Document) error {
		if note.ParentID != "" {
			parent, ok := doc.Notes[note.ParentID]
			if !ok {
				return fmt.Errorf("parent %s: %w", note.ParentID, common.ErrNotFound)
			}
			parent.Children = append(parent.Children, note.ID)
		}
		doc.Notes[note.ID] = note.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Debugf("[FileStore] created note id=%s parent=%q", note.ID, note.ParentID)
	return note, nil
}

// GetNote retrieves a note by id.
func (s *FileStore) GetNote(ctx context.Context, id string) (*Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.doc.Notes[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return n.Clone(), nil
}

// GetAllNotes retrieves every note, most recently updated first.
func (s *FileStore) GetAllNotes(ctx context.Context) ([]*Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allNotesLocked(), nil
}

func (s *FileStore) allNotesLocked() []*Note {
	notes := make([]*Note, 0, len(s.doc.Notes))
	for _, n := range s.doc.Notes {
		notes = append(notes, n.Clone())
	}
	sort.Slice(notes, func(i, j int) bool {
		if notes[i].UpdatedAt.Equal(notes[j].UpdatedAt) {
			return notes[i].ID < notes[j].ID
		}
		return notes[i].UpdatedAt.After(notes[j].UpdatedAt)
	})
	return notes
}

// UpdateNote applies the versioning policy: fork past the window, merge
// within it.
func (s *FileStore) UpdateNote(ctx context.Context, id string, patch NotePatch) (*Note, error) {
	var result *Note
	err := s.mutate(ctx, "updateNote", id, func(doc *Document) error {
		stored, ok := doc.Notes[id]
		if !ok {
			return common.ErrNotFound
		}
		now := s.now()

		if shouldFork(now, stored.UpdatedAt, s.forkWindow) {
			forked := forkNote(stored, patch, now)
			doc.Notes[forked.ID] = forked
			stored.Children = append(stored.Children, forked.ID)
			link := updateLink(forked.ID, stored.ID, now)
			doc.Connections[link.ID] = link
			log.Debugf("[FileStore] forked note %s -> %s (elapsed %s > %s)",
				stored.ID, forked.ID, now.Sub(stored.UpdatedAt), s.forkWindow)
			result = forked.Clone()
			return nil
		}

		merged := mergeNote(stored, patch, now)
		doc.Notes[id] = merged
		result = merged.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteNote removes the note, its descendants via Children, and every
// connection touching a removed note, as one document swap.
func (s *FileStore) DeleteNote(ctx context.Context, id string) (bool, error) {
	found := false
	err := s.mutate(ctx, "deleteNote", id, func(doc *Document) error {
		root, ok := doc.Notes[id]
		if !ok {
			return nil
		}
		found = true

		// Collect the removal set post-order before touching the maps.
		var removal []string
		visited := map[string]bool{}
		var walk func(nid string)
		walk = func(nid string) {
			if visited[nid] {
				return
			}
			visited[nid] = true
			if n, ok := doc.Notes[nid]; ok {
				for _, child := range n.Children {
					walk(child)
				}
			}
			removal = append(removal, nid)
		}
		walk(id)

		if root.ParentID != "" {
			if parent, ok := doc.Notes[root.ParentID]; ok {
				parent.Children = removeID(parent.Children, id)
			}
		}
		for connID, conn := range doc.Connections {
			for _, nid := range removal {
				if conn.Touches(nid) {
					delete(doc.Connections, connID)
					break
				}
			}
		}
		for _, nid := range removal {
			delete(doc.Notes, nid)
		}
		log.Debugf("[FileStore] deleted note %s and %d descendants", id, len(removal)-1)
		return nil
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// CreateConnection links two existing, distinct notes, rejecting duplicate
// undirected pairs (update-type links excepted).
func (s *FileStore) CreateConnection(ctx context.Context, sourceID, targetID string, attrs ConnectionAttrs) (*Connection, error) {
	if sourceID == targetID {
		return nil, common.ErrSameNote
	}
	if attrs.Type == "" {
		attrs.Type = LinkDefault
	}

	conn := &Connection{
		ID:              uuid.NewString(),
		SourceID:        sourceID,
		TargetID:        targetID,
		Type:            attrs.Type,
		Label:           attrs.Label,
		SourceLineIndex: attrs.SourceLineIndex,
		TargetLineIndex: attrs.TargetLineIndex,
		SourcePosition:  attrs.SourcePosition,
		TargetPosition:  attrs.TargetPosition,
		CreatedAt:       s.now(),
	}

	err := s.mutate(ctx, "createConnection", conn.ID, func(doc *Document) error {
		if _, ok := doc.Notes[sourceID]; !ok {
			return fmt.Errorf("source %s: %w", sourceID, common.ErrNotFound)
		}
		if _, ok := doc.Notes[targetID]; !ok {
			return fmt.Errorf("target %s: %w", targetID, common.ErrNotFound)
		}
		if conn.Type != LinkUpdate {
			for _, existing := range doc.Connections {
				if existing.Type == LinkUpdate {
					continue
				}
				if existing.SamePair(sourceID, targetID) {
					return common.ErrDuplicateConnection
				}
			}
		}
		doc.Connections[conn.ID] = conn.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Debugf("[FileStore] created %s connection %s: %s -> %s", conn.Type, conn.ID, sourceID, targetID)
	return conn, nil
}

// DeleteConnection removes a connection by id.
func (s *FileStore) DeleteConnection(ctx context.Context, id string) (bool, error) {
	found := false
	err := s.mutate(ctx, "deleteConnection", id, func(doc *Document) error {
		if _, ok := doc.Connections[id]; !ok {
			return nil
		}
		found = true
		delete(doc.Connections, id)
		return nil
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

// GetAllConnections retrieves every connection ordered by creation time.
func (s *FileStore) GetAllConnections(ctx context.Context) ([]*Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allConnectionsLocked(), nil
}

func (s *FileStore) allConnectionsLocked() []*Connection {
	conns := make([]*Connection, 0, len(s.doc.Connections))
	for _, c := range s.doc.Connections {
		conns = append(conns, c.Clone())
	}
	sort.Slice(conns, func(i, j int) bool {
		if conns[i].CreatedAt.Equal(conns[j].CreatedAt) {
			return conns[i].ID < conns[j].ID
		}
		return conns[i].CreatedAt.Before(conns[j].CreatedAt)
	})
	return conns
}

// GetConnectionsForNote retrieves the connections touching noteID.
func (s *FileStore) GetConnectionsForNote(ctx context.Context, noteID string) ([]*Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Connection
	for _, c := range s.allConnectionsLocked() {
		if c.Touches(noteID) {
			out = append(out, c)
		}
	}
	return out, nil
}

// GetConnected returns the notes one connection away from noteID, in link
// creation order.
func (s *FileStore) GetConnected(ctx context.Context, noteID string) ([]*Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var notes []*Note
	seen := map[string]bool{}
	for _, c := range s.allConnectionsLocked() {
		if !c.Touches(noteID) {
			continue
		}
		other := c.TargetID
		if other == noteID {
			other = c.SourceID
		}
		if seen[other] {
			continue
		}
		seen[other] = true
		if n, ok := s.doc.Notes[other]; ok {
			notes = append(notes, n.Clone())
		}
	}
	return notes, nil
}

// SearchNotes filters notes by a case-insensitive substring query over
// title, content, and tags.
func (s *FileStore) SearchNotes(ctx context.Context, query string) ([]*Note, error) {
	notes, err := s.GetAllNotes(ctx)
	if err != nil {
		return nil, err
	}
	return filterNotes(notes, query), nil
}

// NotesByKind returns main (hub) notes or regular notes.
func (s *FileStore) NotesByKind(ctx context.Context, isMain bool) ([]*Note, error) {
	notes, err := s.GetAllNotes(ctx)
	if err != nil {
		return nil, err
	}
	var out []*Note
	for _, n := range notes {
		if n.IsMain == isMain {
			out = append(out, n)
		}
	}
	return out, nil
}

// Stats summarizes the store contents.
func (s *FileStore) Stats(ctx context.Context) (*Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return computeStats(s.allNotesLocked(), s.allConnectionsLocked()), nil
}

// Validate reports orphaned and duplicate connections.
func (s *FileStore) Validate(ctx context.Context) ([]Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return validateEntities(s.allNotesLocked(), s.allConnectionsLocked()), nil
}

// ExportSnapshot writes the current document to path.
func (s *FileStore) ExportSnapshot(ctx context.Context, path string) error {
	s.mu.Lock()
	doc := s.doc.Clone()
	s.mu.Unlock()

	doc.LastModified = s.now().UnixMilli()
	if err := writeDocument(path, doc); err != nil {
		return s.wrapErr("exportSnapshot", path, err)
	}
	log.Infof("[FileStore] exported %d notes, %d connections to %s", len(doc.Notes), len(doc.Connections), path)
	return nil
}

// ImportSnapshot replaces the store contents with the document at path.
func (s *FileStore) ImportSnapshot(ctx context.Context, path string) error {
	doc, err := readDocument(path)
	if err != nil {
		return s.wrapErr("importSnapshot", path, err)
	}
	if err := checkSnapshot(doc); err != nil {
		return err
	}
	rebuildChildren(doc.Notes)

	err = s.mutate(ctx, "importSnapshot", path, func(next *Document) error {
		next.Notes = doc.Notes
		next.Connections = doc.Connections
		return nil
	})
	if err != nil {
		return err
	}
	log.Infof("[FileStore] imported %d notes, %d connections from %s", len(doc.Notes), len(doc.Connections), path)
	return nil
}
