package graph

import (
	"context"
	"encoding/json"

	"github.com/Ramsey-B/tendril/pkg/models"
)

// MergeStats reports what a merge moved from the discarded entity to the
// kept one.
type MergeStats struct {
	DataItemsMoved     int `json:"data_items_moved"`
	RelationshipsMoved int `json:"relationships_moved"`
}

// Store is the persistence boundary for entities, orphans, data items,
// relationships, and dismissal edges.
//
// Lookups return (nil, nil) when the record does not exist; callers decide
// whether absence is an error. MergeEntities is the one composite write:
// every graph mutation of a merge commits or rolls back together.
type Store interface {
	// Entities
	CreateEntity(ctx context.Context, entity *models.Entity) error
	GetEntity(ctx context.Context, id string) (*models.Entity, error)
	TombstoneEntity(ctx context.Context, id string, mergedInto string) error
	MergeEntities(ctx context.Context, keepID string, dropID string, mergedProfile json.RawMessage) (*MergeStats, error)

	// Orphans
	CreateOrphan(ctx context.Context, orphan *models.Orphan) error
	GetOrphan(ctx context.Context, id string) (*models.Orphan, error)

	// Data items
	CreateDataItem(ctx context.Context, item *models.DataItem) error
	GetDataItem(ctx context.Context, id string) (*models.DataItem, error)
	ListDataItemsByOwner(ctx context.Context, ownerID string) ([]*models.DataItem, error)
	ListDataItemsByType(ctx context.Context, itemType models.ItemType) ([]*models.DataItem, error)
	FindByNormalizedValue(ctx context.Context, itemType models.ItemType, normalized string) ([]*models.DataItem, error)
	FindByHash(ctx context.Context, contentHash string) ([]*models.DataItem, error)
	MoveOwnership(ctx context.Context, itemID string, entityID string) error

	// Relationships
	CreateEdge(ctx context.Context, rel *models.Relationship) error
	GetRelationship(ctx context.Context, fromID string, toID string, relType string) (*models.Relationship, error)
	ListRelationships(ctx context.Context, recordID string) ([]*models.Relationship, error)

	// Dismissals
	CreateDismissal(ctx context.Context, dismissal *models.DismissedSuggestion) error
	RemoveDismissal(ctx context.Context, ownerID string, itemID string) error
	ListDismissals(ctx context.Context, ownerID string) ([]*models.DismissedSuggestion, error)
}
