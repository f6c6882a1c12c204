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

import "strings"

// matchesQuery reports whether the note matches a case-insensitive substring
// query against title, content, or any tag.
func matchesQuery(n *Note, term string) bool {
	if strings.Contains(strings.ToLower(n.Title), term) {
		return true
	}
	if strings.Contains(strings.ToLower(n.Content), term) {
		return true
	}
	for _, tag := range n.Tags {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	return false
}

// filterNotes applies a search query to a note list. An empty or blank query
// returns all notes.
func filterNotes(notes []*Note, query string) []*Note {
	term := strings.ToLower(strings.TrimSpace(query))
	if term == "" {
		return notes
	}
	var out []*Note
	for _, n := range notes {
		if matchesQuery(n, term) {
			out = append(out, n)
		}
	}
	return out
}

// computeStats summarizes a note/connection set.
func computeStats(notes []*Note, conns []*Connection) *Stats {
	s := &Stats{
		TotalNotes:       len(notes),
		TotalConnections: len(conns),
	}
	for _, n := range notes {
		if n.IsMain {
			s.MainNotes++
		} else {
			s.RegularNotes++
		}
		if n.UpdatedAt.After(s.LastUpdated) {
			s.LastUpdated = n.UpdatedAt
		}
	}
	return s
}
