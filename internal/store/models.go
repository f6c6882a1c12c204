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
	"database/sql"
	"encoding/json"
	"time"

	"github.com/uptrace/bun"
)

// Bun ORM models for the tangle database tables.

// SchemaInfoModel represents the schema_info table
type SchemaInfoModel struct {
	bun.BaseModel `bun:"table:schema_info"`

	Key   string `bun:"key,pk"`
	Value string `bun:"value,notnull"`
}

// NoteModel represents the notes table.
// Note: Times are stored as Unix milliseconds in the database.
type NoteModel struct {
	bun.BaseModel `bun:"table:notes"`

	ID        string         `bun:"id,pk"`
	Title     string         `bun:"title,notnull"`
	Content   string         `bun:"content,notnull"`
	IsMain    bool           `bun:"is_main,notnull"`
	Tags      string         `bun:"tags,notnull"` // JSON-encoded string array
	X         int64          `bun:"x,notnull"`
	Y         int64          `bun:"y,notnull"`
	Width     int64          `bun:"width,notnull"`
	Height    int64          `bun:"height,notnull"`
	ParentID  sql.NullString `bun:"parent_id"`
	CreatedAt int64          `bun:"created_at,notnull"`
	UpdatedAt int64          `bun:"updated_at,notnull"`
}

// ToNote converts a NoteModel to the domain Note struct.
// Children is derived from parent_id rows and filled in by the caller.
func (m *NoteModel) ToNote() *Note {
	var tags []string
	if m.Tags != "" && m.Tags != "[]" {
		// Tags were written by us; a decode failure means a hand-edited row,
		// which we surface as no tags rather than failing the read.
		_ = json.Unmarshal([]byte(m.Tags), &tags)
	}
	return &Note{
		ID:        m.ID,
		Title:     m.Title,
		Content:   m.Content,
		IsMain:    m.IsMain,
		Tags:      tags,
		X:         m.X,
		Y:         m.Y,
		Width:     m.Width,
		Height:    m.Height,
		ParentID:  m.ParentID.String,
		CreatedAt: time.UnixMilli(m.CreatedAt),
		UpdatedAt: time.UnixMilli(m.UpdatedAt),
	}
}

// NoteModelFromNote converts a domain Note to a NoteModel.
func NoteModelFromNote(n *Note) *NoteModel {
	tags := "[]"
	if len(n.Tags) > 0 {
		if b, err := json.Marshal(n.Tags); err == nil {
			tags = string(b)
		}
	}
	return &NoteModel{
		ID:        n.ID,
		Title:     n.Title,
		Content:   n.Content,
		IsMain:    n.IsMain,
		Tags:      tags,
		X:         n.X,
		Y:         n.Y,
		Width:     n.Width,
		Height:    n.Height,
		ParentID:  sql.NullString{String: n.ParentID, Valid: n.ParentID != ""},
		CreatedAt: n.CreatedAt.UnixMilli(),
		UpdatedAt: n.UpdatedAt.UnixMilli(),
	}
}

// LinkModel represents the links table.
type LinkModel struct {
	bun.BaseModel `bun:"table:links"`

	ID              string         `bun:"id,pk"`
	SourceNoteID    string         `bun:"source_note_id,notnull"`
	SourceLineIndex int64          `bun:"source_line_index,notnull"`
	TargetNoteID    string         `bun:"target_note_id,notnull"`
	TargetLineIndex int64          `bun:"target_line_index,notnull"`
	SourcePosition  sql.NullString `bun:"source_position"`
	TargetPosition  sql.NullString `bun:"target_position"`
	Type            string         `bun:"type,notnull"`
	Label           string         `bun:"label,notnull"`
	CreatedAt       int64          `bun:"created_at,notnull"`
}

// ToConnection converts a LinkModel to the domain Connection struct.
func (m *LinkModel) ToConnection() *Connection {
	return &Connection{
		ID:              m.ID,
		SourceID:        m.SourceNoteID,
		TargetID:        m.TargetNoteID,
		Type:            LinkType(m.Type),
		Label:           m.Label,
		SourceLineIndex: m.SourceLineIndex,
		TargetLineIndex: m.TargetLineIndex,
		SourcePosition:  AnchorPosition(m.SourcePosition.String),
		TargetPosition:  AnchorPosition(m.TargetPosition.String),
		CreatedAt:       time.UnixMilli(m.CreatedAt),
	}
}

// LinkModelFromConnection converts a domain Connection to a LinkModel.
func LinkModelFromConnection(c *Connection) *LinkModel {
	return &LinkModel{
		ID:              c.ID,
		SourceNoteID:    c.SourceID,
		SourceLineIndex: c.SourceLineIndex,
		TargetNoteID:    c.TargetID,
		TargetLineIndex: c.TargetLineIndex,
		SourcePosition:  sql.NullString{String: string(c.SourcePosition), Valid: c.SourcePosition != AnchorNone},
		TargetPosition:  sql.NullString{String: string(c.TargetPosition), Valid: c.TargetPosition != AnchorNone},
		Type:            string(c.Type),
		Label:           c.Label,
		CreatedAt:       c.CreatedAt.UnixMilli(),
	}
}
