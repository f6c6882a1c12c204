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

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"tangle/internal/common"
)

// BunDB wraps a Bun database instance for type-safe queries.
type BunDB struct {
	*bun.DB
}

// NewBunDB wraps an existing *sql.DB with Bun's type-safe query builder.
func NewBunDB(sqlDB *sql.DB) *BunDB {
	bunDB := bun.NewDB(sqlDB, sqlitedialect.New())
	return &BunDB{DB: bunDB}
}

// --- Note Operations ---

// GetNote retrieves a note row by id. Returns common.ErrNotFound if absent.
func (db *BunDB) GetNote(ctx context.Context, id string) (*NoteModel, error) {
	return db.getNoteWith(db.DB, ctx, id)
}

// GetNoteWith is like GetNote but uses the provided bun.IDB (for transaction support).
func (db *BunDB) GetNoteWith(idb bun.IDB, ctx context.Context, id string) (*NoteModel, error) {
	return db.getNoteWith(idb, ctx, id)
}

func (db *BunDB) getNoteWith(idb bun.IDB, ctx context.Context, id string) (*NoteModel, error) {
	var note NoteModel
	err := idb.NewSelect().
		Model(&note).
		Where("id = ?", id).
		Scan(ctx)
	if err == sql.ErrNoRows {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &note, nil
}

// ListNotes retrieves all note rows, most recently updated first.
func (db *BunDB) ListNotes(ctx context.Context) ([]NoteModel, error) {
	var notes []NoteModel
	err := db.NewSelect().
		Model(&notes).
		Order("updated_at DESC").
		Scan(ctx)
	return notes, err
}

// ListChildIDs returns the ids of notes whose parent_id is id.
func (db *BunDB) ListChildIDs(ctx context.Context, id string) ([]string, error) {
	return db.listChildIDsWith(db.DB, ctx, id)
}

// ListChildIDsWith is like ListChildIDs but uses the provided bun.IDB.
func (db *BunDB) ListChildIDsWith(idb bun.IDB, ctx context.Context, id string) ([]string, error) {
	return db.listChildIDsWith(idb, ctx, id)
}

func (db *BunDB) listChildIDsWith(idb bun.IDB, ctx context.Context, id string) ([]string, error) {
	var ids []string
	err := idb.NewSelect().
		Model((*NoteModel)(nil)).
		Column("id").
		Where("parent_id = ?", id).
		Order("created_at").
		Scan(ctx, &ids)
	return ids, err
}

// InsertNote inserts a new note row.
func (db *BunDB) InsertNote(ctx context.Context, note *NoteModel) error {
	return db.insertNoteWith(db.DB, ctx, note)
}

// InsertNoteWith is like InsertNote but uses the provided bun.IDB.
func (db *BunDB) InsertNoteWith(idb bun.IDB, ctx context.Context, note *NoteModel) error {
	return db.insertNoteWith(idb, ctx, note)
}

func (db *BunDB) insertNoteWith(idb bun.IDB, ctx context.Context, note *NoteModel) error {
	_, err := idb.NewInsert().Model(note).Exec(ctx)
	return err
}

// UpdateNoteRowWith overwrites the mutable fields of an existing note row.
// id, parent_id and created_at are immutable once assigned.
func (db *BunDB) UpdateNoteRowWith(idb bun.IDB, ctx context.Context, note *NoteModel) error {
	_, err := idb.NewUpdate().
		Model(note).
		Column("title", "content", "is_main", "tags", "x", "y", "width", "height", "updated_at").
		Where("id = ?", note.ID).
		Exec(ctx)
	return err
}

// DeleteNotesWith deletes the given note rows. Callers must order ids so that
// children precede parents (the parent_id foreign key).
func (db *BunDB) DeleteNotesWith(idb bun.IDB, ctx context.Context, ids []string) error {
	for _, id := range ids {
		if _, err := idb.NewDelete().
			Model((*NoteModel)(nil)).
			Where("id = ?", id).
			Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

// --- Link Operations ---

// GetLink retrieves a link row by id. Returns common.ErrNotFound if absent.
func (db *BunDB) GetLink(ctx context.Context, id string) (*LinkModel, error) {
	var link LinkModel
	err := db.NewSelect().
		Model(&link).
		Where("id = ?", id).
		Scan(ctx)
	if err == sql.ErrNoRows {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// ListLinks retrieves all link rows ordered by creation time.
func (db *BunDB) ListLinks(ctx context.Context) ([]LinkModel, error) {
	var links []LinkModel
	err := db.NewSelect().
		Model(&links).
		Order("created_at", "id").
		Scan(ctx)
	return links, err
}

// ListLinksForNote retrieves the links touching noteID, oldest first.
// The (created_at, id) order keeps GetConnected stable within a session.
func (db *BunDB) ListLinksForNote(ctx context.Context, noteID string) ([]LinkModel, error) {
	var links []LinkModel
	err := db.NewSelect().
		Model(&links).
		Where("source_note_id = ? OR target_note_id = ?", noteID, noteID).
		Order("created_at", "id").
		Scan(ctx)
	return links, err
}

// InsertLink inserts a new link row.
func (db *BunDB) InsertLink(ctx context.Context, link *LinkModel) error {
	return db.insertLinkWith(db.DB, ctx, link)
}

// InsertLinkWith is like InsertLink but uses the provided bun.IDB.
func (db *BunDB) InsertLinkWith(idb bun.IDB, ctx context.Context, link *LinkModel) error {
	return db.insertLinkWith(idb, ctx, link)
}

func (db *BunDB) insertLinkWith(idb bun.IDB, ctx context.Context, link *LinkModel) error {
	_, err := idb.NewInsert().Model(link).Exec(ctx)
	return err
}

// DeleteLink deletes a link row by id and reports whether a row was removed.
func (db *BunDB) DeleteLink(ctx context.Context, id string) (bool, error) {
	result, err := db.NewDelete().
		Model((*LinkModel)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

// DeleteLinksTouchingWith deletes every link with an endpoint in ids.
func (db *BunDB) DeleteLinksTouchingWith(idb bun.IDB, ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := idb.NewDelete().
		Model((*LinkModel)(nil)).
		Where("source_note_id IN (?) OR target_note_id IN (?)", bun.In(ids), bun.In(ids)).
		Exec(ctx)
	return err
}

// HasLinkBetweenWith reports whether a non-update link already exists between
// the unordered pair (a, b). Update-type links are exempt from the duplicate
// rule: they link two distinct versions of the same note.
func (db *BunDB) HasLinkBetweenWith(idb bun.IDB, ctx context.Context, a, b string) (bool, error) {
	exists, err := idb.NewSelect().
		Model((*LinkModel)(nil)).
		Where("type != ?", string(LinkUpdate)).
		Where("(source_note_id = ? AND target_note_id = ?) OR (source_note_id = ? AND target_note_id = ?)",
			a, b, b, a).
		Exists(ctx)
	return exists, err
}

// DeleteAllWith clears every link and note row. Used by snapshot import.
func (db *BunDB) DeleteAllWith(idb bun.IDB, ctx context.Context) error {
	if _, err := idb.NewDelete().Model((*LinkModel)(nil)).Where("1 = 1").Exec(ctx); err != nil {
		return err
	}
	if _, err := idb.NewDelete().Model((*NoteModel)(nil)).Where("1 = 1").Exec(ctx); err != nil {
		return err
	}
	return nil
}
