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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEntities(t *testing.T) {
	notes := []*Note{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	t.Run("clean set", func(t *testing.T) {
		conns := []*Connection{
			{ID: "c1", SourceID: "a", TargetID: "b"},
			{ID: "c2", SourceID: "b", TargetID: "c"},
		}
		assert.Empty(t, validateEntities(notes, conns))
	})

	t.Run("orphaned connection", func(t *testing.T) {
		conns := []*Connection{
			{ID: "c1", SourceID: "a", TargetID: "gone"},
		}
		issues := validateEntities(notes, conns)
		require.Len(t, issues, 1)
		assert.Equal(t, IssueOrphanedConnection, issues[0].Kind)
		assert.Equal(t, "c1", issues[0].ConnectionID)
	})

	t.Run("duplicate pair reported once per extra", func(t *testing.T) {
		conns := []*Connection{
			{ID: "c1", SourceID: "a", TargetID: "b"},
			{ID: "c2", SourceID: "b", TargetID: "a"}, // reversed direction, same pair
			{ID: "c3", SourceID: "a", TargetID: "b"},
		}
		issues := validateEntities(notes, conns)
		require.Len(t, issues, 2)
		assert.Equal(t, IssueDuplicateConnection, issues[0].Kind)
		assert.Equal(t, "c2", issues[0].ConnectionID)
		assert.Equal(t, "c3", issues[1].ConnectionID)
	})

	t.Run("update links exempt from duplicate check", func(t *testing.T) {
		conns := []*Connection{
			{ID: "c1", SourceID: "a", TargetID: "b"},
			{ID: "c2", SourceID: "b", TargetID: "a", Type: LinkUpdate},
		}
		assert.Empty(t, validateEntities(notes, conns))
	})

	t.Run("orphaned update link still reported", func(t *testing.T) {
		conns := []*Connection{
			{ID: "c1", SourceID: "gone", TargetID: "a", Type: LinkUpdate},
		}
		issues := validateEntities(notes, conns)
		require.Len(t, issues, 1)
		assert.Equal(t, IssueOrphanedConnection, issues[0].Kind)
	})
}

func TestPairKeyOrderIndependent(t *testing.T) {
	assert.Equal(t, pairKey("x", "y"), pairKey("y", "x"))
	assert.NotEqual(t, pairKey("x", "y"), pairKey("x", "z"))
}
