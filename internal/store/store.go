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

// Package store implements the tangle persistence core: an entity store for
// notes and connections with an elapsed-time versioning policy, cascading
// deletes, and snapshot export/import. Two backends share one contract: a
// SQLite database and a single JSON document file.
package store

import (
	"context"
	"time"
)

// Store is the persistence contract consumed by the UI collaborator.
//
// All mutating operations are atomic: a call either fully commits (including
// derived fields such as parent Children lists) or fails leaving prior state
// unchanged. Writes that touch overlapping entities are serialized by a
// store-wide write lock; last commit wins.
type Store interface {
	CreateNote(ctx context.Context, draft NoteDraft) (*Note, error)
	GetNote(ctx context.Context, id string) (*Note, error)
	GetAllNotes(ctx context.Context) ([]*Note, error)

	// UpdateNote applies the versioning policy: if more than the fork window
	// has elapsed since the note's last update, a new note version is created
	// (fresh id, ParentID set to the original, linked by an update-type
	// connection) and returned; otherwise the patch is merged in place.
	UpdateNote(ctx context.Context, id string, patch NotePatch) (*Note, error)

	// DeleteNote removes the note, all its descendants (via Children), and
	// every connection touching a removed note, as one unit. Returns false
	// without side effects if id is unknown.
	DeleteNote(ctx context.Context, id string) (bool, error)

	CreateConnection(ctx context.Context, sourceID, targetID string, attrs ConnectionAttrs) (*Connection, error)
	DeleteConnection(ctx context.Context, id string) (bool, error)
	GetAllConnections(ctx context.Context) ([]*Connection, error)
	GetConnectionsForNote(ctx context.Context, noteID string) ([]*Connection, error)

	// GetConnected returns the notes reachable via exactly one connection
	// from noteID, ordered by connection creation time.
	GetConnected(ctx context.Context, noteID string) ([]*Note, error)

	SearchNotes(ctx context.Context, query string) ([]*Note, error)
	NotesByKind(ctx context.Context, isMain bool) ([]*Note, error)
	Stats(ctx context.Context) (*Stats, error)

	// Validate reports orphaned and duplicate connections without repairing.
	Validate(ctx context.Context) ([]Issue, error)

	ExportSnapshot(ctx context.Context, path string) error
	ImportSnapshot(ctx context.Context, path string) error

	Close() error
}

// DefaultForkWindow is how long a note must sit untouched before the next
// update forks a new version instead of editing in place.
const DefaultForkWindow = time.Hour

// Default canvas box for notes created without explicit dimensions.
const (
	DefaultNoteWidth  = 300
	DefaultNoteHeight = 200
)

type options struct {
	forkWindow   time.Duration
	writeTimeout time.Duration
	now          func() time.Time
}

// Option configures a store backend.
type Option func(*options)

// WithForkWindow overrides the versioning fork window.
func WithForkWindow(d time.Duration) Option {
	return func(o *options) { o.forkWindow = d }
}

// WithWriteTimeout bounds each mutating operation. Zero (the default) means
// no timeout; a stalled write then stalls the caller.
func WithWriteTimeout(d time.Duration) Option {
	return func(o *options) { o.writeTimeout = d }
}

// WithClock replaces the wall clock. Used by tests to simulate elapsed time.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{
		forkWindow: DefaultForkWindow,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
