package graph

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/tendril/pkg/models"
)

func newEntity(id string) *models.Entity {
	now := time.Now().UTC()
	return &models.Entity{ID: id, Name: id, CreatedAt: now, UpdatedAt: now}
}

func newItem(id string, ownerID string, kind models.OwnerKind) *models.DataItem {
	return &models.DataItem{
		ID:              id,
		Type:            models.ItemTypeEmail,
		RawValue:        id + "@example.com",
		NormalizedValue: id + "@example.com",
		OwnerID:         ownerID,
		OwnerKind:       kind,
		CreatedAt:       time.Now().UTC(),
	}
}

func TestMemoryStoreAbsentLookups(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	entity, err := store.GetEntity(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, entity)

	orphan, err := store.GetOrphan(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, orphan)

	item, err := store.GetDataItem(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, item)

	rel, err := store.GetRelationship(ctx, "a", "b", "LINKED_TO")
	require.NoError(t, err)
	assert.Nil(t, rel)
}

func TestMemoryStoreCopyOnRead(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.CreateEntity(ctx, newEntity("entity-a")))

	first, err := store.GetEntity(ctx, "entity-a")
	require.NoError(t, err)
	first.Name = "mutated"

	second, err := store.GetEntity(ctx, "entity-a")
	require.NoError(t, err)
	assert.Equal(t, "entity-a", second.Name)
}

func TestMemoryStoreSymmetricRelationshipLookup(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.CreateEdge(ctx, &models.Relationship{
		ID:        "rel-1",
		Type:      models.RelationshipTypeLinkedTo,
		FromID:    "item-1",
		ToID:      "item-2",
		Symmetric: true,
		CreatedAt: time.Now().UTC(),
	}))
	require.NoError(t, store.CreateEdge(ctx, &models.Relationship{
		ID:        "rel-2",
		Type:      "EMPLOYED_BY",
		FromID:    "entity-a",
		ToID:      "entity-b",
		CreatedAt: time.Now().UTC(),
	}))

	// Symmetric types match in either direction.
	rel, err := store.GetRelationship(ctx, "item-2", "item-1", models.RelationshipTypeLinkedTo)
	require.NoError(t, err)
	require.NotNil(t, rel)
	assert.Equal(t, "rel-1", rel.ID)

	// Directional types only match their stored direction.
	rel, err = store.GetRelationship(ctx, "entity-b", "entity-a", "EMPLOYED_BY")
	require.NoError(t, err)
	assert.Nil(t, rel)

	rel, err = store.GetRelationship(ctx, "entity-a", "entity-b", "EMPLOYED_BY")
	require.NoError(t, err)
	require.NotNil(t, rel)
	assert.Equal(t, "rel-2", rel.ID)
}

func TestMemoryStoreMergeEntities(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.CreateEntity(ctx, newEntity("entity-a")))
	require.NoError(t, store.CreateEntity(ctx, newEntity("entity-b")))
	require.NoError(t, store.CreateEntity(ctx, newEntity("entity-c")))
	require.NoError(t, store.CreateDataItem(ctx, newItem("item-b1", "entity-b", models.OwnerKindEntity)))
	require.NoError(t, store.CreateDataItem(ctx, newItem("item-b2", "entity-b", models.OwnerKindEntity)))

	// One edge between the merging pair (must be dropped), one outgoing and
	// one incoming edge on the dropped side (must be moved).
	now := time.Now().UTC()
	require.NoError(t, store.CreateEdge(ctx, &models.Relationship{ID: "rel-pair", Type: "SAME_AS", FromID: "entity-a", ToID: "entity-b", Symmetric: true, CreatedAt: now}))
	require.NoError(t, store.CreateEdge(ctx, &models.Relationship{ID: "rel-out", Type: "EMPLOYED_BY", FromID: "entity-b", ToID: "entity-c", CreatedAt: now}))
	require.NoError(t, store.CreateEdge(ctx, &models.Relationship{ID: "rel-in", Type: "EMPLOYED_BY", FromID: "entity-c", ToID: "entity-b", CreatedAt: now}))

	profile := json.RawMessage(`{"contact":{"email":"a@b.com"}}`)
	stats, err := store.MergeEntities(ctx, "entity-a", "entity-b", profile)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.DataItemsMoved)
	assert.Equal(t, 2, stats.RelationshipsMoved)

	items, err := store.ListDataItemsByOwner(ctx, "entity-a")
	require.NoError(t, err)
	assert.Len(t, items, 2)

	// The pair edge is gone; the moved edges keep their direction.
	rels, err := store.ListRelationships(ctx, "entity-a")
	require.NoError(t, err)
	require.Len(t, rels, 2)
	assert.Equal(t, "rel-in", rels[0].ID)
	assert.Equal(t, "entity-a", rels[0].ToID)
	assert.Equal(t, "rel-out", rels[1].ID)
	assert.Equal(t, "entity-a", rels[1].FromID)

	dropped, err := store.GetEntity(ctx, "entity-b")
	require.NoError(t, err)
	assert.Equal(t, "entity-a", dropped.MergedInto)

	kept, err := store.GetEntity(ctx, "entity-a")
	require.NoError(t, err)
	assert.JSONEq(t, string(profile), string(kept.Profile))
}

func TestMemoryStoreFindByHashIgnoresEmpty(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	withHash := newItem("item-1", "entity-a", models.OwnerKindEntity)
	withHash.ContentHash = "sha256:aaa"
	require.NoError(t, store.CreateDataItem(ctx, withHash))
	require.NoError(t, store.CreateDataItem(ctx, newItem("item-2", "entity-b", models.OwnerKindEntity)))

	found, err := store.FindByHash(ctx, "sha256:aaa")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "item-1", found[0].ID)

	// An empty hash never matches the items that carry no hash.
	found, err = store.FindByHash(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestMemoryStoreDismissalsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	dismissal := &models.DismissedSuggestion{
		OwnerID:    "entity-a",
		DataItemID: "item-1",
		Reason:     "different person",
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, store.CreateDismissal(ctx, dismissal))
	require.NoError(t, store.CreateDismissal(ctx, dismissal))

	dismissals, err := store.ListDismissals(ctx, "entity-a")
	require.NoError(t, err)
	assert.Len(t, dismissals, 1)

	require.NoError(t, store.RemoveDismissal(ctx, "entity-a", "item-1"))
	require.NoError(t, store.RemoveDismissal(ctx, "entity-a", "item-1"))

	dismissals, err = store.ListDismissals(ctx, "entity-a")
	require.NoError(t, err)
	assert.Empty(t, dismissals)
}

func TestMemoryStoreMoveOwnership(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.CreateEntity(ctx, newEntity("entity-a")))
	require.NoError(t, store.CreateDataItem(ctx, newItem("item-1", "orphan-1", models.OwnerKindOrphan)))

	require.NoError(t, store.MoveOwnership(ctx, "item-1", "entity-a"))

	item, err := store.GetDataItem(ctx, "item-1")
	require.NoError(t, err)
	assert.Equal(t, "entity-a", item.OwnerID)
	assert.Equal(t, models.OwnerKindEntity, item.OwnerKind)

	assert.Error(t, store.MoveOwnership(ctx, "missing", "entity-a"))
	assert.Error(t, store.MoveOwnership(ctx, "item-1", "missing"))
}
