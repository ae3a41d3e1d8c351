package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Ramsey-B/tendril/pkg/models"
)

// MemoryStore is an in-memory Store for unit tests and local development.
// Semantics track Neo4jStore: lookups return (nil, nil) when absent,
// dismissals are idempotent, and MergeEntities applies all of its
// mutations under one lock hold.
type MemoryStore struct {
	mu         sync.RWMutex
	entities   map[string]*models.Entity
	orphans    map[string]*models.Orphan
	items      map[string]*models.DataItem
	rels       []*models.Relationship
	dismissals map[string]map[string]*models.DismissedSuggestion
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entities:   make(map[string]*models.Entity),
		orphans:    make(map[string]*models.Orphan),
		items:      make(map[string]*models.DataItem),
		dismissals: make(map[string]map[string]*models.DismissedSuggestion),
	}
}

// CreateEntity creates or replaces an entity.
func (s *MemoryStore) CreateEntity(_ context.Context, entity *models.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entities[entity.ID] = copyEntity(entity)
	return nil
}

// GetEntity retrieves an entity by id.
func (s *MemoryStore) GetEntity(_ context.Context, id string) (*models.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entities[id]
	if !ok {
		return nil, nil
	}
	return copyEntity(e), nil
}

// TombstoneEntity marks an entity as discarded by a merge.
func (s *MemoryStore) TombstoneEntity(_ context.Context, id string, mergedInto string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entities[id]
	if !ok {
		return fmt.Errorf("entity %s not found", id)
	}
	e.MergedInto = mergedInto
	e.UpdatedAt = time.Now().UTC()
	return nil
}

// MergeEntities moves data items and relationships from the dropped entity
// onto the kept one, sets the merged profile, and tombstones the dropped
// entity, all under one lock hold.
func (s *MemoryStore) MergeEntities(_ context.Context, keepID string, dropID string, mergedProfile json.RawMessage) (*MergeStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keep, ok := s.entities[keepID]
	if !ok {
		return nil, fmt.Errorf("entity %s not found", keepID)
	}
	drop, ok := s.entities[dropID]
	if !ok {
		return nil, fmt.Errorf("entity %s not found", dropID)
	}

	stats := &MergeStats{}

	for _, item := range s.items {
		if item.OwnerKind == models.OwnerKindEntity && item.OwnerID == dropID {
			item.OwnerID = keepID
			stats.DataItemsMoved++
		}
	}

	kept := s.rels[:0]
	for _, rel := range s.rels {
		between := (rel.FromID == dropID && rel.ToID == keepID) ||
			(rel.FromID == keepID && rel.ToID == dropID)
		if between {
			continue
		}
		if rel.FromID == dropID {
			rel.FromID = keepID
			stats.RelationshipsMoved++
		}
		if rel.ToID == dropID {
			rel.ToID = keepID
			stats.RelationshipsMoved++
		}
		kept = append(kept, rel)
	}
	s.rels = kept

	now := time.Now().UTC()
	keep.Profile = append(json.RawMessage(nil), mergedProfile...)
	keep.UpdatedAt = now
	drop.MergedInto = keepID
	drop.UpdatedAt = now

	return stats, nil
}

// CreateOrphan creates or replaces an orphan record.
func (s *MemoryStore) CreateOrphan(_ context.Context, orphan *models.Orphan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o := *orphan
	s.orphans[orphan.ID] = &o
	return nil
}

// GetOrphan retrieves an orphan record by id.
func (s *MemoryStore) GetOrphan(_ context.Context, id string) (*models.Orphan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orphans[id]
	if !ok {
		return nil, nil
	}
	out := *o
	return &out, nil
}

// CreateDataItem creates or replaces a data item.
func (s *MemoryStore) CreateDataItem(_ context.Context, item *models.DataItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[item.ID] = copyDataItem(item)
	return nil
}

// GetDataItem retrieves a data item by id.
func (s *MemoryStore) GetDataItem(_ context.Context, id string) (*models.DataItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return nil, nil
	}
	return copyDataItem(item), nil
}

// ListDataItemsByOwner lists the data items owned by an entity or orphan.
func (s *MemoryStore) ListDataItemsByOwner(_ context.Context, ownerID string) ([]*models.DataItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectItems(func(item *models.DataItem) bool {
		return item.OwnerID == ownerID
	}), nil
}

// ListDataItemsByType lists every data item of a type.
func (s *MemoryStore) ListDataItemsByType(_ context.Context, itemType models.ItemType) ([]*models.DataItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectItems(func(item *models.DataItem) bool {
		return item.Type == itemType
	}), nil
}

// FindByNormalizedValue finds data items of a type with an exact
// normalized value.
func (s *MemoryStore) FindByNormalizedValue(_ context.Context, itemType models.ItemType, normalized string) ([]*models.DataItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectItems(func(item *models.DataItem) bool {
		return item.Type == itemType && item.NormalizedValue == normalized
	}), nil
}

// FindByHash finds data items carrying an exact content hash.
func (s *MemoryStore) FindByHash(_ context.Context, contentHash string) ([]*models.DataItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectItems(func(item *models.DataItem) bool {
		return item.ContentHash != "" && item.ContentHash == contentHash
	}), nil
}

// MoveOwnership reassigns a data item to an entity.
func (s *MemoryStore) MoveOwnership(_ context.Context, itemID string, entityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[itemID]
	if !ok {
		return fmt.Errorf("data item %s not found", itemID)
	}
	if _, ok := s.entities[entityID]; !ok {
		return fmt.Errorf("entity %s not found", entityID)
	}

	item.OwnerID = entityID
	item.OwnerKind = models.OwnerKindEntity
	return nil
}

// CreateEdge creates a typed relationship edge.
func (s *MemoryStore) CreateEdge(_ context.Context, rel *models.Relationship) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := *rel
	s.rels = append(s.rels, &r)
	return nil
}

// GetRelationship finds an edge of the given type between two records.
// Symmetric types match in either direction.
func (s *MemoryStore) GetRelationship(_ context.Context, fromID string, toID string, relType string) (*models.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	symmetric := models.RelationshipTypeSymmetric(relType)
	for _, rel := range s.rels {
		if rel.Type != relType {
			continue
		}
		if rel.FromID == fromID && rel.ToID == toID {
			r := *rel
			return &r, nil
		}
		if symmetric && rel.FromID == toID && rel.ToID == fromID {
			r := *rel
			return &r, nil
		}
	}
	return nil, nil
}

// ListRelationships lists every edge touching a record.
func (s *MemoryStore) ListRelationships(_ context.Context, recordID string) ([]*models.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Relationship
	for _, rel := range s.rels {
		if rel.FromID == recordID || rel.ToID == recordID {
			r := *rel
			out = append(out, &r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CreateDismissal records a dismissal edge. Idempotent.
func (s *MemoryStore) CreateDismissal(_ context.Context, dismissal *models.DismissedSuggestion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byItem, ok := s.dismissals[dismissal.OwnerID]
	if !ok {
		byItem = make(map[string]*models.DismissedSuggestion)
		s.dismissals[dismissal.OwnerID] = byItem
	}
	if _, exists := byItem[dismissal.DataItemID]; exists {
		return nil
	}
	d := *dismissal
	byItem[dismissal.DataItemID] = &d
	return nil
}

// RemoveDismissal deletes a dismissal edge. Idempotent.
func (s *MemoryStore) RemoveDismissal(_ context.Context, ownerID string, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if byItem, ok := s.dismissals[ownerID]; ok {
		delete(byItem, itemID)
	}
	return nil
}

// ListDismissals lists the dismissal edges recorded for an owner.
func (s *MemoryStore) ListDismissals(_ context.Context, ownerID string) ([]*models.DismissedSuggestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.DismissedSuggestion
	for _, d := range s.dismissals[ownerID] {
		dd := *d
		out = append(out, &dd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DataItemID < out[j].DataItemID })
	return out, nil
}

func (s *MemoryStore) collectItems(match func(*models.DataItem) bool) []*models.DataItem {
	var out []*models.DataItem
	for _, item := range s.items {
		if match(item) {
			out = append(out, copyDataItem(item))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func copyEntity(e *models.Entity) *models.Entity {
	out := *e
	out.Profile = append(json.RawMessage(nil), e.Profile...)
	return &out
}

func copyDataItem(item *models.DataItem) *models.DataItem {
	out := *item
	if item.Metadata != nil {
		out.Metadata = make(map[string]string, len(item.Metadata))
		for k, v := range item.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}
