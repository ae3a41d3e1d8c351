package graph

import (
	"encoding/json"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Ramsey-B/tendril/pkg/models"
)

// Neo4jStore implements Store against a Bolt-compatible graph database
// (Neo4j or Memgraph).
//
// Data model:
//
//	(:Entity   {id, name, profile, merged_into, created_at, updated_at})
//	(:Orphan   {id, source, created_at})
//	(:DataItem {id, type, raw_value, normalized_value, content_hash,
//	            metadata, normalize_note, created_at})
//	(owner)-[:OWNS]->(:DataItem)
//	()-[:RELATED {id, rel_type, symmetric, confidence, note, created_at}]->()
//	(owner)-[:DISMISSED {reason, created_at}]->(:DataItem)
//
// Relationships carry their type as an edge property rather than as the
// edge label, so a merge can move them with plain Cypher (no APOC).
// Profile and metadata are stored as JSON strings.
type Neo4jStore struct {
	client *Client
	logger ectologger.Logger
}

// NewNeo4jStore creates a new graph-backed store.
func NewNeo4jStore(client *Client, logger ectologger.Logger) *Neo4jStore {
	return &Neo4jStore{
		client: client,
		logger: logger,
	}
}

const timeFormat = "2006-01-02T15:04:05Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(v any) time.Time {
	s, ok := v.(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func propString(props map[string]any, key string) string {
	if v, ok := props[key].(string); ok {
		return v
	}
	return ""
}

func propFloat(props map[string]any, key string) float64 {
	switch v := props[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	}
	return 0
}

func propBool(props map[string]any, key string) bool {
	if v, ok := props[key].(bool); ok {
		return v
	}
	return false
}

func entityFromProps(props map[string]any) *models.Entity {
	e := &models.Entity{
		ID:         propString(props, "id"),
		Name:       propString(props, "name"),
		MergedInto: propString(props, "merged_into"),
		CreatedAt:  parseTime(props["created_at"]),
		UpdatedAt:  parseTime(props["updated_at"]),
	}
	if p := propString(props, "profile"); p != "" {
		e.Profile = json.RawMessage(p)
	}
	return e
}

func orphanFromProps(props map[string]any) *models.Orphan {
	return &models.Orphan{
		ID:        propString(props, "id"),
		Source:    propString(props, "source"),
		CreatedAt: parseTime(props["created_at"]),
	}
}

func dataItemFromProps(props map[string]any, ownerID string, ownerKind models.OwnerKind) *models.DataItem {
	item := &models.DataItem{
		ID:              propString(props, "id"),
		Type:            models.ItemType(propString(props, "type")),
		RawValue:        propString(props, "raw_value"),
		NormalizedValue: propString(props, "normalized_value"),
		ContentHash:     propString(props, "content_hash"),
		OwnerID:         ownerID,
		OwnerKind:       ownerKind,
		NormalizeNote:   propString(props, "normalize_note"),
		CreatedAt:       parseTime(props["created_at"]),
	}
	if raw := propString(props, "metadata"); raw != "" {
		meta := map[string]string{}
		if err := json.Unmarshal([]byte(raw), &meta); err == nil {
			item.Metadata = meta
		}
	}
	return item
}

func relationshipFromProps(props map[string]any, fromID string, toID string) *models.Relationship {
	return &models.Relationship{
		ID:         propString(props, "id"),
		Type:       propString(props, "rel_type"),
		FromID:     fromID,
		ToID:       toID,
		Symmetric:  propBool(props, "symmetric"),
		Confidence: propFloat(props, "confidence"),
		Note:       propString(props, "note"),
		CreatedAt:  parseTime(props["created_at"]),
	}
}

// sanitizeLabel strips anything that is not alphanumeric or underscore so
// a label can be interpolated into Cypher safely. Labels cannot be passed
// as query parameters.
func sanitizeLabel(label string) string {
	result := ""
	for _, c := range label {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			result += string(c)
		}
	}
	if result == "" {
		return "Entity"
	}
	return result
}

// ownerFromRecord extracts the owning record's id and kind from a query
// that returned owner_labels and owner_id via OPTIONAL MATCH.
func ownerFromRecord(record *neo4j.Record) (string, models.OwnerKind) {
	idVal, _ := record.Get("owner_id")
	id, _ := idVal.(string)
	if id == "" {
		return "", models.OwnerKindNone
	}

	labelsVal, _ := record.Get("owner_labels")
	labels, _ := labelsVal.([]any)
	for _, l := range labels {
		switch l {
		case "Entity":
			return id, models.OwnerKindEntity
		case "Orphan":
			return id, models.OwnerKindOrphan
		}
	}
	return id, models.OwnerKindNone
}
