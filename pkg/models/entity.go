package models

import (
	"encoding/json"
	"time"
)

// Entity is an identity record aggregating zero or more data items and a
// sectioned profile (section -> key -> value).
//
// A merged entity is never deleted. The discarded side of a merge is kept
// as a tombstone with MergedInto set, so historical relationships and
// audit records stay resolvable.
type Entity struct {
	ID         string          `json:"id"`
	Name       string          `json:"name,omitempty"`
	Profile    json.RawMessage `json:"profile,omitempty"`
	MergedInto string          `json:"merged_into,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Tombstoned reports whether this entity was discarded by a merge.
// Tombstoned entities reject all further linking operations; callers must
// re-target explicitly rather than follow the MergedInto pointer.
func (e *Entity) Tombstoned() bool {
	return e.MergedInto != ""
}

// ProfileMap decodes the sectioned profile. A missing or malformed profile
// decodes to an empty map.
func (e *Entity) ProfileMap() map[string]map[string]any {
	out := map[string]map[string]any{}
	if len(e.Profile) == 0 {
		return out
	}
	if err := json.Unmarshal(e.Profile, &out); err != nil {
		return map[string]map[string]any{}
	}
	return out
}

// Relationship is a typed edge between two records (entity-entity or
// item-item). Symmetry is a property of the relationship type, not a guess
// made per edge.
type Relationship struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	FromID     string    `json:"from_id"`
	ToID       string    `json:"to_id"`
	Symmetric  bool      `json:"symmetric"`
	Confidence float64   `json:"confidence"`
	Note       string    `json:"note,omitempty"` // provenance note
	CreatedAt  time.Time `json:"created_at"`
}

// RelationshipTypeLinkedTo is the symmetric edge created between two data
// items by an explicit link action.
const RelationshipTypeLinkedTo = "LINKED_TO"

// symmetricRelationshipTypes declares which relationship types are
// symmetric. Types not listed are directional.
var symmetricRelationshipTypes = map[string]bool{
	RelationshipTypeLinkedTo: true,
	"ASSOCIATED_WITH":        true,
	"SAME_AS":                true,
}

// RelationshipTypeSymmetric reports whether a relationship type declares
// itself symmetric.
func RelationshipTypeSymmetric(relType string) bool {
	return symmetricRelationshipTypes[relType]
}
