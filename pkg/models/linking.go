package models

import (
	"encoding/json"
	"time"
)

// ActionType enumerates the human-approved graph mutations the linking
// service records.
type ActionType string

const (
	ActionTypeLinkDataItems      ActionType = "link_data_items"
	ActionTypeMergeEntities      ActionType = "merge_entities"
	ActionTypeCreateRelationship ActionType = "create_relationship"
	ActionTypeLinkOrphan         ActionType = "link_orphan"
)

// LinkingAction is an append-only audit record of a linking operation.
// Actions are never mutated or deleted.
type LinkingAction struct {
	ID         string          `json:"id" db:"id"`
	ActionType ActionType      `json:"action_type" db:"action_type"`
	EntityID   string          `json:"entity_id" db:"entity_id"`
	TargetID   string          `json:"target_id,omitempty" db:"target_id"`
	Actor      string          `json:"actor" db:"actor"`
	Reason     string          `json:"reason" db:"reason"`
	Confidence float64         `json:"confidence" db:"confidence"`
	Details    json.RawMessage `json:"details,omitempty" db:"details"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// LinkDataItemsRequest asks for a symmetric LINKED_TO edge between two
// data items. Ownership is not touched.
type LinkDataItemsRequest struct {
	ItemID1    string  `json:"item_id_1" validate:"required"`
	ItemID2    string  `json:"item_id_2" validate:"required,nefield=ItemID1"`
	Actor      string  `json:"actor" validate:"required"`
	Reason     string  `json:"reason" validate:"required"`
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`
}

// LinkedResult is returned after linking two data items.
type LinkedResult struct {
	Relationship *Relationship `json:"relationship"`
	ActionID     string        `json:"action_id"`
}

// MergeEntitiesRequest asks for an irreversible merge of two entities.
// KeepID must be one of the two entity ids.
type MergeEntitiesRequest struct {
	EntityID1 string `json:"entity_id_1" validate:"required"`
	EntityID2 string `json:"entity_id_2" validate:"required,nefield=EntityID1"`
	KeepID    string `json:"keep_id" validate:"required"`
	Actor     string `json:"actor" validate:"required"`
	Reason    string `json:"reason" validate:"required"`
}

// MergeResult reports what an entity merge moved.
type MergeResult struct {
	KeptID             string `json:"kept_id"`
	TombstonedID       string `json:"tombstoned_id"`
	DataItemsMoved     int    `json:"data_items_moved"`
	RelationshipsMoved int    `json:"relationships_moved"`
	ActionID           string `json:"action_id"`
}

// CreateRelationshipRequest asks for a typed edge between two entities.
type CreateRelationshipRequest struct {
	EntityID1  string  `json:"entity_id_1" validate:"required"`
	EntityID2  string  `json:"entity_id_2" validate:"required,nefield=EntityID1"`
	Type       string  `json:"type" validate:"required"`
	Actor      string  `json:"actor" validate:"required"`
	Reason     string  `json:"reason" validate:"required"`
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`
}

// RelationshipResult is returned after a relationship request. If an
// identical-type edge already existed between the pair, Existed is true
// and Relationship is the existing edge.
type RelationshipResult struct {
	Relationship *Relationship `json:"relationship"`
	Existed      bool          `json:"existed"`
	ActionID     string        `json:"action_id,omitempty"`
}

// LinkOrphanRequest asks to reassign an orphan data item to an entity.
type LinkOrphanRequest struct {
	OrphanItemID string `json:"orphan_item_id" validate:"required"`
	EntityID     string `json:"entity_id" validate:"required"`
	Actor        string `json:"actor" validate:"required"`
	Reason       string `json:"reason" validate:"required"`
}

// LinkResult is returned after attaching an orphan item to an entity.
type LinkResult struct {
	DataItemID string `json:"data_item_id"`
	EntityID   string `json:"entity_id"`
	ActionID   string `json:"action_id"`
}

// BatchLinkOrphansRequest attaches up to MaxBatchLinkItems orphan items to
// one entity, reporting per-item outcomes.
type BatchLinkOrphansRequest struct {
	EntityID      string   `json:"entity_id" validate:"required"`
	OrphanItemIDs []string `json:"orphan_item_ids" validate:"required,min=1"`
	Actor         string   `json:"actor" validate:"required"`
	Reason        string   `json:"reason" validate:"required"`
}

// MaxBatchLinkItems bounds a single batch linking call.
const MaxBatchLinkItems = 100

// BatchLinkItemResult is the outcome for one item in a batch link.
type BatchLinkItemResult struct {
	DataItemID string `json:"data_item_id"`
	Linked     bool   `json:"linked"`
	Error      string `json:"error,omitempty"`
}

// BatchLinkResult reports per-item success and failure for a batch link.
type BatchLinkResult struct {
	EntityID  string                `json:"entity_id"`
	Items     []BatchLinkItemResult `json:"items"`
	Succeeded int                   `json:"succeeded"`
	Failed    int                   `json:"failed"`
}

// HistoryQuery pages through an entity's audit trail.
type HistoryQuery struct {
	ActionType ActionType `json:"action_type,omitempty"`
	Limit      int        `json:"limit"`
	Offset     int        `json:"offset"`
}
