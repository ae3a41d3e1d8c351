package models

import (
	"time"
)

// ItemType classifies a data item's value for normalization and matching.
type ItemType string

const (
	ItemTypeEmail      ItemType = "email"
	ItemTypePhone      ItemType = "phone"
	ItemTypeAddress    ItemType = "address"
	ItemTypeName       ItemType = "name"
	ItemTypeURL        ItemType = "url"
	ItemTypeHash       ItemType = "hash"
	ItemTypeIdentifier ItemType = "identifier"
	ItemTypeOther      ItemType = "other"
)

// OwnerKind says who owns a data item. An item belongs to exactly one of
// an entity, an orphan record, or nobody.
type OwnerKind string

const (
	OwnerKindEntity OwnerKind = "entity"
	OwnerKindOrphan OwnerKind = "orphan"
	OwnerKindNone   OwnerKind = "none"
)

// DataItem is a single atomic fact (an email, phone, hash, ...) with a
// stable id. NormalizedValue is always derived from RawValue and never
// hand-edited.
type DataItem struct {
	ID              string            `json:"id"`
	Type            ItemType          `json:"type"`
	RawValue        string            `json:"raw_value"`
	NormalizedValue string            `json:"normalized_value"`
	ContentHash     string            `json:"content_hash,omitempty"` // only for binary/file-backed items
	OwnerID         string            `json:"owner_id,omitempty"`
	OwnerKind       OwnerKind         `json:"owner_kind"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	NormalizeNote   string            `json:"normalize_note,omitempty"` // non-fatal normalization warning
	CreatedAt       time.Time         `json:"created_at"`
}

// OwnedByEntity reports whether the item currently belongs to an entity.
func (d *DataItem) OwnedByEntity() bool {
	return d.OwnerKind == OwnerKindEntity && d.OwnerID != ""
}

// IsOrphaned reports whether the item belongs to an orphan record.
func (d *DataItem) IsOrphaned() bool {
	return d.OwnerKind == OwnerKindOrphan && d.OwnerID != ""
}

// Orphan is a holding record for data items that have not been attributed
// to an entity yet.
type Orphan struct {
	ID        string    `json:"id"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
