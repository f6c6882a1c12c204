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
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	_ "github.com/tursodatabase/go-libsql"
	"github.com/uptrace/bun"

	"tangle/internal/common"
	"tangle/internal/util"
)

// SQLiteStore is the relational backend: notes and links tables in a single
// SQLite database file.
type SQLiteStore struct {
	path  string
	db    *sql.DB
	bunDB *BunDB

	// mu serializes mutating operations so overlapping writes cannot
	// interleave mid-merge; last commit wins.
	mu     sync.Mutex
	closed bool

	forkWindow   time.Duration
	writeTimeout time.Duration
	now          func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

// CreateSQLite creates a new tangle database at path. Fails if a file
// already exists there.
func CreateSQLite(path string, opts ...Option) (*SQLiteStore, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%w: %s", common.ErrExists, path)
	}

	db, err := sql.Open("libsql", BuildDSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		os.Remove(path)
		return nil, err
	}

	if err := execStatements(db, databaseSchema); err != nil {
		db.Close()
		os.Remove(path)
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	if err := execStatements(db, initSchemaInfo, SchemaVersion); err != nil {
		db.Close()
		os.Remove(path)
		return nil, fmt.Errorf("failed to initialize schema info: %w", err)
	}

	return newSQLiteStore(path, db, opts), nil
}

// OpenSQLite opens an existing tangle database, creating it if absent.
func OpenSQLite(path string, opts ...Option) (*SQLiteStore, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return CreateSQLite(path, opts...)
	}

	db, err := sql.Open("libsql", BuildDSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}

	// Idempotent: brings older files up to the current schema.
	if err := execStatements(db, databaseSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	return newSQLiteStore(path, db, opts), nil
}

func newSQLiteStore(path string, db *sql.DB, opts []Option) *SQLiteStore {
	o := buildOptions(opts)
	return &SQLiteStore{
		path:         path,
		db:           db,
		bunDB:        NewBunDB(db),
		forkWindow:   o.forkWindow,
		writeTimeout: o.writeTimeout,
		now:          o.now,
	}
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// opContext bounds a mutating operation with the configured write timeout.
func (s *SQLiteStore) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.writeTimeout > 0 {
		return context.WithTimeout(ctx, s.writeTimeout)
	}
	return ctx, func() {}
}

// wrapWriteErr maps low-level persistence failures onto the store's error
// kinds. Domain sentinels pass through untouched.
func wrapWriteErr(op, id string, err error) error {
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
		log.Errorf("[SQLiteStore] %s id=%s timed out: %v", op, id, err)
		return fmt.Errorf("%w: %s %s", common.ErrStorageTimeout, op, id)
	default:
		log.Errorf("[SQLiteStore] %s id=%s failed: %v", op, id, err)
		return fmt.Errorf("%w: %s %s: %v", common.ErrStorageWrite, op, id, err)
	}
}

// CreateNote assigns a fresh id, applies defaults, and inserts the note.
// A supplied ParentID must resolve to an existing note.
func (s *SQLiteStore) CreateNote(ctx context.Context, draft NoteDraft) (*Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, common.ErrClosed
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

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

	err := util.Retry(ctx, func() error {
		return s.bunDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if note.ParentID != "" {
				if _, err := s.bunDB.GetNoteWith(tx, ctx, note.ParentID); err != nil {
					return fmt.Errorf("parent %s: %w", note.ParentID, err)
				}
			}
			return s.bunDB.InsertNoteWith(tx, ctx, NoteModelFromNote(note))
		})
	}, util.DatabaseRetryOptions(ctx)...)
	if err != nil {
		return nil, wrapWriteErr("createNote", note.ID, err)
	}

	log.Debugf("[SQLiteStore] created note id=%s parent=%q", note.ID, note.ParentID)
	return note, nil
}

// GetNote retrieves a note with its derived Children list.
func (s *SQLiteStore) GetNote(ctx context.Context, id string) (*Note, error) {
	model, err := s.bunDB.GetNote(ctx, id)
	if err != nil {
		return nil, err
	}
	note := model.ToNote()
	children, err := s.bunDB.ListChildIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	note.Children = children
	return note, nil
}

// GetAllNotes retrieves every note, most recently updated first, with
// Children lists derived in one pass.
func (s *SQLiteStore) GetAllNotes(ctx context.Context) ([]*Note, error) {
	models, err := s.bunDB.ListNotes(ctx)
	if err != nil {
		return nil, err
	}
	notes := make([]*Note, len(models))
	byID := make(map[string]*Note, len(models))
	for i := range models {
		notes[i] = models[i].ToNote()
		byID[notes[i].ID] = notes[i]
	}
	for _, n := range notes {
		if n.ParentID == "" {
			continue
		}
		if parent, ok := byID[n.ParentID]; ok {
			parent.Children = append(parent.Children, n.ID)
		}
	}
	return notes, nil
}

// UpdateNote applies the versioning policy inside a single transaction.
func (s *SQLiteStore) UpdateNote(ctx context.Context, id string, patch NotePatch) (*Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, common.ErrClosed
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var result *Note
	err := util.Retry(ctx, func() error {
		return s.bunDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			model, err := s.bunDB.GetNoteWith(tx, ctx, id)
			if err != nil {
				return err
			}
			stored := model.ToNote()
			now := s.now()

			if shouldFork(now, stored.UpdatedAt, s.forkWindow) {
				forked := forkNote(stored, patch, now)
				if err := s.bunDB.InsertNoteWith(tx, ctx, NoteModelFromNote(forked)); err != nil {
					return err
				}
				link := updateLink(forked.ID, stored.ID, now)
				if err := s.bunDB.InsertLinkWith(tx, ctx, LinkModelFromConnection(link)); err != nil {
					return err
				}
				log.Debugf("[SQLiteStore] forked note %s -> %s (elapsed %s > %s)",
					stored.ID, forked.ID, now.Sub(stored.UpdatedAt), s.forkWindow)
				result = forked
				return nil
			}

			merged := mergeNote(stored, patch, now)
			if err := s.bunDB.UpdateNoteRowWith(tx, ctx, NoteModelFromNote(merged)); err != nil {
				return err
			}
			result = merged
			return nil
		})
	}, util.DatabaseRetryOptions(ctx)...)
	if err != nil {
		return nil, wrapWriteErr("updateNote", id, err)
	}

	children, err := s.bunDB.ListChildIDs(ctx, result.ID)
	if err == nil {
		result.Children = children
	}
	return result, nil
}

// DeleteNote removes the note, its descendants, and every touching link as
// one transaction. Returns false without side effects for an unknown id.
func (s *SQLiteStore) DeleteNote(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, common.ErrClosed
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	found := false
	err := util.Retry(ctx, func() error {
		found = false
		return s.bunDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := s.bunDB.GetNoteWith(tx, ctx, id); err != nil {
				if errors.Is(err, common.ErrNotFound) {
					return nil
				}
				return err
			}
			found = true

			removal, err := s.collectRemovalSet(tx, ctx, id)
			if err != nil {
				return err
			}
			if err := s.bunDB.DeleteLinksTouchingWith(tx, ctx, removal); err != nil {
				return err
			}
			// removal is post-order: children before parents, so the
			// parent_id foreign key is never violated mid-delete.
			if err := s.bunDB.DeleteNotesWith(tx, ctx, removal); err != nil {
				return err
			}
			log.Debugf("[SQLiteStore] deleted note %s and %d descendants", id, len(removal)-1)
			return nil
		})
	}, util.DatabaseRetryOptions(ctx)...)
	if err != nil {
		return false, wrapWriteErr("deleteNote", id, err)
	}
	return found, nil
}

// collectRemovalSet walks the children tree under root and returns every id
// in post-order (children before parents). The set is collected before any
// row is touched so the cascade is a single batch of edits.
func (s *SQLiteStore) collectRemovalSet(tx bun.Tx, ctx context.Context, root string) ([]string, error) {
	var ordered []string
	visited := map[string]bool{}

	var walk func(id string) error
	walk = func(id string) error {
		if visited[id] {
			return nil
		}
		visited[id] = true
		children, err := s.bunDB.ListChildIDsWith(tx, ctx, id)
		if err != nil {
			return err
		}
		for _, child := range children {
			if err := walk(child); err != nil {
				return err
			}
		}
		ordered = append(ordered, id)
		return nil
	}
	if err := walk(root); err != nil {
		return nil, err
	}
	return ordered, nil
}

// CreateConnection links two existing, distinct notes. A second link between
// the same unordered pair is rejected unless it is an update-type link.
func (s *SQLiteStore) CreateConnection(ctx context.Context, sourceID, targetID string, attrs ConnectionAttrs) (*Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, common.ErrClosed
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

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

	err := util.Retry(ctx, func() error {
		return s.bunDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := s.bunDB.GetNoteWith(tx, ctx, sourceID); err != nil {
				return fmt.Errorf("source %s: %w", sourceID, err)
			}
			if _, err := s.bunDB.GetNoteWith(tx, ctx, targetID); err != nil {
				return fmt.Errorf("target %s: %w", targetID, err)
			}
			if conn.Type != LinkUpdate {
				exists, err := s.bunDB.HasLinkBetweenWith(tx, ctx, sourceID, targetID)
				if err != nil {
					return err
				}
				if exists {
					return common.ErrDuplicateConnection
				}
			}
			return s.bunDB.InsertLinkWith(tx, ctx, LinkModelFromConnection(conn))
		})
	}, util.DatabaseRetryOptions(ctx)...)
	if err != nil {
		return nil, wrapWriteErr("createConnection", conn.ID, err)
	}

	log.Debugf("[SQLiteStore] created %s connection %s: %s -> %s", conn.Type, conn.ID, sourceID, targetID)
	return conn, nil
}

// DeleteConnection removes a link by id.
func (s *SQLiteStore) DeleteConnection(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, common.ErrClosed
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	deleted, err := util.RetryWithResult(ctx, func() (bool, error) {
		return s.bunDB.DeleteLink(ctx, id)
	}, util.DatabaseRetryOptions(ctx)...)
	if err != nil {
		return false, wrapWriteErr("deleteConnection", id, err)
	}
	return deleted, nil
}

// GetAllConnections retrieves every link ordered by creation time.
func (s *SQLiteStore) GetAllConnections(ctx context.Context) ([]*Connection, error) {
	models, err := s.bunDB.ListLinks(ctx)
	if err != nil {
		return nil, err
	}
	conns := make([]*Connection, len(models))
	for i := range models {
		conns[i] = models[i].ToConnection()
	}
	return conns, nil
}

// GetConnectionsForNote retrieves the links touching noteID.
func (s *SQLiteStore) GetConnectionsForNote(ctx context.Context, noteID string) ([]*Connection, error) {
	models, err := s.bunDB.ListLinksForNote(ctx, noteID)
	if err != nil {
		return nil, err
	}
	conns := make([]*Connection, len(models))
	for i := range models {
		conns[i] = models[i].ToConnection()
	}
	return conns, nil
}

// GetConnected returns the notes one connection away from noteID, in link
// creation order.
func (s *SQLiteStore) GetConnected(ctx context.Context, noteID string) ([]*Note, error) {
	links, err := s.bunDB.ListLinksForNote(ctx, noteID)
	if err != nil {
		return nil, err
	}
	var notes []*Note
	seen := map[string]bool{}
	for _, l := range links {
		other := l.TargetNoteID
		if other == noteID {
			other = l.SourceNoteID
		}
		if seen[other] {
			continue
		}
		seen[other] = true
		note, err := s.GetNote(ctx, other)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				continue // orphaned link; reported by Validate
			}
			return nil, err
		}
		notes = append(notes, note)
	}
	return notes, nil
}

// SearchNotes filters notes by a case-insensitive substring query over
// title, content, and tags.
func (s *SQLiteStore) SearchNotes(ctx context.Context, query string) ([]*Note, error) {
	notes, err := s.GetAllNotes(ctx)
	if err != nil {
		return nil, err
	}
	return filterNotes(notes, query), nil
}

// NotesByKind returns main (hub) notes or regular notes.
func (s *SQLiteStore) NotesByKind(ctx context.Context, isMain bool) ([]*Note, error) {
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
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	notes, err := s.GetAllNotes(ctx)
	if err != nil {
		return nil, err
	}
	conns, err := s.GetAllConnections(ctx)
	if err != nil {
		return nil, err
	}
	return computeStats(notes, conns), nil
}

// Validate reports orphaned and duplicate connections.
func (s *SQLiteStore) Validate(ctx context.Context) ([]Issue, error) {
	notes, err := s.GetAllNotes(ctx)
	if err != nil {
		return nil, err
	}
	conns, err := s.GetAllConnections(ctx)
	if err != nil {
		return nil, err
	}
	return validateEntities(notes, conns), nil
}

// ExportSnapshot serializes the full store to a JSON document at path.
func (s *SQLiteStore) ExportSnapshot(ctx context.Context, path string) error {
	doc, err := s.buildDocument(ctx)
	if err != nil {
		return wrapWriteErr("exportSnapshot", path, err)
	}
	doc.LastModified = s.now().UnixMilli()
	if err := writeDocument(path, doc); err != nil {
		return wrapWriteErr("exportSnapshot", path, err)
	}
	log.Infof("[SQLiteStore] exported %d notes, %d connections to %s", len(doc.Notes), len(doc.Connections), path)
	return nil
}

func (s *SQLiteStore) buildDocument(ctx context.Context) (*Document, error) {
	doc := NewDocument()
	notes, err := s.GetAllNotes(ctx)
	if err != nil {
		return nil, err
	}
	for _, n := range notes {
		doc.Notes[n.ID] = n
	}
	conns, err := s.GetAllConnections(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range conns {
		doc.Connections[c.ID] = c
	}
	return doc, nil
}

// ImportSnapshot replaces the store contents with the document at path, as
// one transaction.
func (s *SQLiteStore) ImportSnapshot(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return common.ErrClosed
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	doc, err := readDocument(path)
	if err != nil {
		return wrapWriteErr("importSnapshot", path, err)
	}
	if err := checkSnapshot(doc); err != nil {
		return err
	}

	err = util.Retry(ctx, func() error {
		return s.bunDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if err := s.bunDB.DeleteAllWith(tx, ctx); err != nil {
				return err
			}
			for _, n := range notesInParentOrder(doc) {
				if err := s.bunDB.InsertNoteWith(tx, ctx, NoteModelFromNote(n)); err != nil {
					return err
				}
			}
			for _, c := range doc.Connections {
				if err := s.bunDB.InsertLinkWith(tx, ctx, LinkModelFromConnection(c)); err != nil {
					return err
				}
			}
			return nil
		})
	}, util.DatabaseRetryOptions(ctx)...)
	if err != nil {
		return wrapWriteErr("importSnapshot", path, err)
	}

	log.Infof("[SQLiteStore] imported %d notes, %d connections from %s", len(doc.Notes), len(doc.Connections), path)
	return nil
}
