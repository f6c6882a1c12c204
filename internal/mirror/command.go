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
	log "github.com/sirupsen/logrus"

	"tangle/internal/store"
)

// command records one optimistic mutation together with the snapshots needed
// to invert it exactly: removed entities are re-inserted, created entities
// removed, and updated entities restored field for field. Inversion is a
// compensating edit, never a full reload.
type command struct {
	op       string
	entityID string

	priorNote   *store.Note // updateNote: pre-call value
	placeholder string      // create ops: optimistic id to remove

	removedNotes []*store.Note       // deleteNote: subtree to re-insert
	removedConns []*store.Connection // deleteNote: touching connections
	removedConn  *store.Connection   // deleteConnection
	parentID     string              // parent whose Children list was edited
}

// applyCreateNote inserts the placeholder note (and parent child entry) and
// returns the inverting command.
func (m *Mirror) applyCreateNote(n *store.Note) *command {
	m.mu.Lock()
	defer m.mu.Unlock()
	cmd := &command{op: "createNote", entityID: n.ID, placeholder: n.ID}
	if parent, ok := m.notes[n.ParentID]; ok {
		parent.Children = append(parent.Children, n.ID)
		cmd.parentID = n.ParentID
	}
	m.notes[n.ID] = n.Clone()
	return cmd
}

// applyUpdateNote merges the patch into the mirrored note, keeping the prior
// value for rollback. Returns false if the mirror does not hold the note.
func (m *Mirror) applyUpdateNote(id string, patch store.NotePatch) (*command, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notes[id]
	if !ok {
		return nil, false
	}
	cmd := &command{op: "updateNote", entityID: id, priorNote: n.Clone()}

	merged := n.Clone()
	if patch.Title != nil {
		merged.Title = *patch.Title
	}
	if patch.Content != nil {
		merged.Content = *patch.Content
	}
	if patch.IsMain != nil {
		merged.IsMain = *patch.IsMain
	}
	if patch.Tags != nil {
		merged.Tags = append([]string(nil), patch.Tags...)
	}
	if patch.X != nil {
		merged.X = *patch.X
	}
	if patch.Y != nil {
		merged.Y = *patch.Y
	}
	if patch.Width != nil {
		merged.Width = *patch.Width
	}
	if patch.Height != nil {
		merged.Height = *patch.Height
	}
	m.notes[id] = merged
	return cmd, true
}

// applyDeleteNote removes the note's subtree and touching connections,
// snapshotting everything for rollback.
func (m *Mirror) applyDeleteNote(id string) *command {
	m.mu.Lock()
	defer m.mu.Unlock()
	cmd := &command{op: "deleteNote", entityID: id}

	root, ok := m.notes[id]
	if !ok {
		return cmd
	}

	var removal []string
	visited := map[string]bool{}
	var walk func(nid string)
	walk = func(nid string) {
		if visited[nid] {
			return
		}
		visited[nid] = true
		if n, ok := m.notes[nid]; ok {
			for _, child := range n.Children {
				walk(child)
			}
		}
		removal = append(removal, nid)
	}
	walk(id)

	if parent, ok := m.notes[root.ParentID]; ok {
		cmd.parentID = root.ParentID
		parent.Children = removeID(parent.Children, id)
	}
	for _, nid := range removal {
		if n, ok := m.notes[nid]; ok {
			cmd.removedNotes = append(cmd.removedNotes, n)
			delete(m.notes, nid)
		}
	}
	for cid, c := range m.conns {
		for _, nid := range removal {
			if c.Touches(nid) {
				cmd.removedConns = append(cmd.removedConns, c)
				delete(m.conns, cid)
				break
			}
		}
	}
	return cmd
}

// applyCreateConnection inserts the placeholder connection.
func (m *Mirror) applyCreateConnection(c *store.Connection) *command {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conns[c.ID] = c.Clone()
	return &command{op: "createConnection", entityID: c.ID, placeholder: c.ID}
}

// applyDeleteConnection removes the connection, snapshotting it for rollback.
func (m *Mirror) applyDeleteConnection(id string) *command {
	m.mu.Lock()
	defer m.mu.Unlock()
	cmd := &command{op: "deleteConnection", entityID: id}
	if c, ok := m.conns[id]; ok {
		cmd.removedConn = c
		delete(m.conns, id)
	}
	return cmd
}

// rollback applies the command's inverse after a failed store call.
func (m *Mirror) rollback(cmd *command, cause error) {
	log.Warnf("[Mirror] %s id=%s failed, rolling back: %v", cmd.op, cmd.entityID, cause)

	m.mu.Lock()
	defer m.mu.Unlock()
	switch cmd.op {
	case "createNote":
		delete(m.notes, cmd.placeholder)
		if parent, ok := m.notes[cmd.parentID]; ok {
			parent.Children = removeID(parent.Children, cmd.placeholder)
		}
	case "updateNote":
		m.notes[cmd.entityID] = cmd.priorNote
	case "deleteNote":
		for _, n := range cmd.removedNotes {
			m.notes[n.ID] = n
		}
		for _, c := range cmd.removedConns {
			m.conns[c.ID] = c
		}
		if parent, ok := m.notes[cmd.parentID]; ok {
			parent.Children = append(parent.Children, cmd.entityID)
		}
	case "createConnection":
		delete(m.conns, cmd.placeholder)
	case "deleteConnection":
		if cmd.removedConn != nil {
			m.conns[cmd.removedConn.ID] = cmd.removedConn
		}
	}
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
