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

import "time"

// LinkType classifies a connection between two notes.
type LinkType string

const (
	LinkDefault   LinkType = "default"
	LinkManual    LinkType = "manual"
	LinkUpdate    LinkType = "update"
	LinkReference LinkType = "reference"
)

// AnchorPosition is the side of a note's box a link end is attached to.
// The empty value means the link is not anchored.
type AnchorPosition string

const (
	AnchorNone   AnchorPosition = ""
	AnchorTop    AnchorPosition = "top"
	AnchorRight  AnchorPosition = "right"
	AnchorBottom AnchorPosition = "bottom"
	AnchorLeft   AnchorPosition = "left"
)

// Note is the core persisted unit: a positioned, titled box on the canvas.
//
// ParentID is set when the note was forked from an older version (or created
// under an organizing parent); Children is derived and always holds exactly
// the ids of notes whose ParentID points back here.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	IsMain    bool      `json:"isMain"`
	Tags      []string  `json:"tags,omitempty"`
	X         int64     `json:"x"`
	Y         int64     `json:"y"`
	Width     int64     `json:"width"`
	Height    int64     `json:"height"`
	ParentID  string    `json:"parentId,omitempty"`
	Children  []string  `json:"children,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a deep copy of the note.
func (n *Note) Clone() *Note {
	c := *n
	if n.Tags != nil {
		c.Tags = append([]string(nil), n.Tags...)
	}
	if n.Children != nil {
		c.Children = append([]string(nil), n.Children...)
	}
	return &c
}

// Connection links two distinct notes, optionally anchored to a side of each
// note's box. Update-type connections are created by the versioning policy and
// point from the newer version to the older one.
type Connection struct {
	ID              string         `json:"id"`
	SourceID        string         `json:"source"`
	TargetID        string         `json:"target"`
	Type            LinkType       `json:"type"`
	Label           string         `json:"label,omitempty"`
	SourceLineIndex int64          `json:"sourceLineIndex"`
	TargetLineIndex int64          `json:"targetLineIndex"`
	SourcePosition  AnchorPosition `json:"sourcePosition,omitempty"`
	TargetPosition  AnchorPosition `json:"targetPosition,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
}

// Clone returns a copy of the connection.
func (c *Connection) Clone() *Connection {
	cp := *c
	return &cp
}

// Touches reports whether either endpoint of the connection is noteID.
func (c *Connection) Touches(noteID string) bool {
	return c.SourceID == noteID || c.TargetID == noteID
}

// SamePair reports whether the connection links the unordered pair (a, b).
func (c *Connection) SamePair(a, b string) bool {
	return (c.SourceID == a && c.TargetID == b) || (c.SourceID == b && c.TargetID == a)
}

// NoteDraft carries the caller-supplied fields for CreateNote. Zero width and
// height fall back to the canvas defaults.
type NoteDraft struct {
	Title    string
	Content  string
	IsMain   bool
	Tags     []string
	X        int64
	Y        int64
	Width    int64
	Height   int64
	ParentID string
}

// NotePatch carries the fields of an UpdateNote call. Nil pointers mean
// "unchanged" on the merge path; on the fork path the patch is treated as the
// complete content of the new version.
type NotePatch struct {
	Title   *string
	Content *string
	IsMain  *bool
	Tags    []string
	X       *int64
	Y       *int64
	Width   *int64
	Height  *int64
}

// ConnectionAttrs carries the optional attributes of CreateConnection.
// An empty Type defaults to LinkDefault.
type ConnectionAttrs struct {
	Type            LinkType
	Label           string
	SourceLineIndex int64
	TargetLineIndex int64
	SourcePosition  AnchorPosition
	TargetPosition  AnchorPosition
}

// Stats summarizes store contents.
type Stats struct {
	TotalNotes       int
	MainNotes        int
	RegularNotes     int
	TotalConnections int
	LastUpdated      time.Time
}

// IssueKind tags a validation finding.
type IssueKind string

const (
	IssueOrphanedConnection  IssueKind = "orphaned_connection"
	IssueDuplicateConnection IssueKind = "duplicate_connection"
)

// Issue is a diagnostic finding from Validate. Validation only reports;
// it never repairs.
type Issue struct {
	Kind         IssueKind
	ConnectionID string
	Detail       string
}
