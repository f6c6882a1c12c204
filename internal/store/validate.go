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

import "fmt"

// validateEntities runs the integrity diagnostics shared by both backends:
// connections whose endpoint note no longer exists, and connections that
// duplicate another's unordered endpoint pair. Update-type links are skipped
// by the duplicate check, mirroring the creation-time rule.
//
// This pass only reports; repair is left to maintenance tooling.
func validateEntities(notes []*Note, conns []*Connection) []Issue {
	var issues []Issue

	noteIDs := make(map[string]struct{}, len(notes))
	for _, n := range notes {
		noteIDs[n.ID] = struct{}{}
	}

	for _, c := range conns {
		_, srcOK := noteIDs[c.SourceID]
		_, tgtOK := noteIDs[c.TargetID]
		if !srcOK || !tgtOK {
			issues = append(issues, Issue{
				Kind:         IssueOrphanedConnection,
				ConnectionID: c.ID,
				Detail:       fmt.Sprintf("connection %s references missing note (source=%s target=%s)", c.ID, c.SourceID, c.TargetID),
			})
		}
	}

	seen := make(map[string]struct{}, len(conns))
	for _, c := range conns {
		if c.Type == LinkUpdate {
			continue
		}
		key := pairKey(c.SourceID, c.TargetID)
		if _, dup := seen[key]; dup {
			issues = append(issues, Issue{
				Kind:         IssueDuplicateConnection,
				ConnectionID: c.ID,
				Detail:       fmt.Sprintf("connection %s duplicates pair %s <-> %s", c.ID, c.SourceID, c.TargetID),
			})
			continue
		}
		seen[key] = struct{}{}
	}

	return issues
}

// pairKey builds an order-independent key for a note pair.
func pairKey(a, b string) string {
	if a < b {
		return a + "\x00" + b
	}
	return b + "\x00" + a
}
