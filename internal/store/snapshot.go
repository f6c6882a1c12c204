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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"tangle/internal/common"
)

// Document is the single-file JSON layout: the whole store as one snapshot.
// It doubles as the on-disk format of the file backend and the exchange
// format of ExportSnapshot / ImportSnapshot.
type Document struct {
	Notes        map[string]*Note       `json:"notes"`
	Connections  map[string]*Connection `json:"connections"`
	LastModified int64                  `json:"lastModified"` // Unix milliseconds
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{
		Notes:       make(map[string]*Note),
		Connections: make(map[string]*Connection),
	}
}

// Clone deep-copies the document. The file backend mutates a clone and swaps
// it in only after a successful write, which makes every mutation all-or-nothing.
func (d *Document) Clone() *Document {
	c := &Document{
		Notes:        make(map[string]*Note, len(d.Notes)),
		Connections:  make(map[string]*Connection, len(d.Connections)),
		LastModified: d.LastModified,
	}
	for id, n := range d.Notes {
		c.Notes[id] = n.Clone()
	}
	for id, conn := range d.Connections {
		c.Connections[id] = conn.Clone()
	}
	return c
}

// writeDocument writes the document to path atomically: marshal to a temp
// file in the same directory, fsync, then rename over the target.
func writeDocument(path string, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode document: %v", common.ErrStorageWrite, err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tangle-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrStorageWrite, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", common.ErrStorageWrite, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", common.ErrStorageWrite, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", common.ErrStorageWrite, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", common.ErrStorageWrite, err)
	}
	return nil
}

// readDocument loads and decodes a document from path.
func readDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidSnapshot, err)
	}
	if doc.Notes == nil {
		doc.Notes = make(map[string]*Note)
	}
	if doc.Connections == nil {
		doc.Connections = make(map[string]*Connection)
	}
	return &doc, nil
}

// checkSnapshot rejects documents whose connections reference notes that are
// not part of the same document. Importing such a snapshot would seed the
// store with orphans.
func checkSnapshot(doc *Document) error {
	for id, n := range doc.Notes {
		if n == nil || n.ID != id {
			return fmt.Errorf("%w: note entry %q is malformed", common.ErrInvalidSnapshot, id)
		}
	}
	for id, c := range doc.Connections {
		if c == nil || c.ID != id {
			return fmt.Errorf("%w: connection entry %q is malformed", common.ErrInvalidSnapshot, id)
		}
		if _, ok := doc.Notes[c.SourceID]; !ok {
			return fmt.Errorf("%w: connection %s references missing note %s", common.ErrInvalidSnapshot, id, c.SourceID)
		}
		if _, ok := doc.Notes[c.TargetID]; !ok {
			return fmt.Errorf("%w: connection %s references missing note %s", common.ErrInvalidSnapshot, id, c.TargetID)
		}
	}
	return nil
}

// notesInParentOrder returns the document's notes with every parent before
// its children, so inserts satisfy the parent_id foreign key. Notes whose
// parent is missing from the document (or part of a cycle) come last.
func notesInParentOrder(doc *Document) []*Note {
	ordered := make([]*Note, 0, len(doc.Notes))
	placed := make(map[string]bool, len(doc.Notes))

	var place func(n *Note)
	place = func(n *Note) {
		if placed[n.ID] {
			return
		}
		placed[n.ID] = true // marked before recursing to break cycles
		if n.ParentID != "" {
			if parent, ok := doc.Notes[n.ParentID]; ok {
				place(parent)
			}
		}
		ordered = append(ordered, n)
	}
	for _, n := range doc.Notes {
		place(n)
	}
	return ordered
}

// rebuildChildren recomputes every note's Children list from ParentID
// back-references, keeping the derived invariant true after load or import.
func rebuildChildren(notes map[string]*Note) {
	for _, n := range notes {
		n.Children = nil
	}
	for _, n := range notes {
		if n.ParentID == "" {
			continue
		}
		if parent, ok := notes[n.ParentID]; ok {
			parent.Children = append(parent.Children, n.ID)
		}
	}
}
