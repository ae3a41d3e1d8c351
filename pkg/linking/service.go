// Package linking implements the explicit, human-initiated write
// operations: linking data items, merging entities, creating typed
// relationships, and attributing orphan items. Every successful operation
// appends exactly one audit record.
package linking

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Ramsey-B/tendril/internal/database"
	"github.com/Ramsey-B/tendril/pkg/events"
	"github.com/Ramsey-B/tendril/pkg/graph"
	"github.com/Ramsey-B/tendril/pkg/models"
	"github.com/Ramsey-B/tendril/pkg/tracing"
)

// AuditSink records linking actions. Append is append-only and must never
// fail silently: a failed write surfaces as an error on the operation.
type AuditSink interface {
	Append(ctx context.Context, action *models.LinkingAction) error
	ListByEntity(ctx context.Context, entityID string, query models.HistoryQuery) ([]*models.LinkingAction, error)
}

// DefaultHistoryLimit is applied when a history query gives no limit.
const DefaultHistoryLimit = 50

// Service performs linking operations against the graph store.
type Service struct {
	logger   ectologger.Logger
	store    graph.Store
	audit    AuditSink
	db       database.DB
	emitter  *events.Emitter
	validate *validator.Validate
}

// NewService creates a new linking service. The db carries the audit
// transaction for merges; it and the emitter may be nil.
func NewService(logger ectologger.Logger, store graph.Store, audit AuditSink, db database.DB, emitter *events.Emitter) *Service {
	return &Service{
		logger:   logger,
		store:    store,
		audit:    audit,
		db:       db,
		emitter:  emitter,
		validate: validator.New(),
	}
}

// LinkDataItems creates a symmetric LINKED_TO relationship between two
// data items without touching ownership. Re-linking an already linked pair
// returns the existing edge without a new audit record.
func (s *Service) LinkDataItems(ctx context.Context, req *models.LinkDataItemsRequest) (*models.LinkedResult, error) {
	ctx, span := tracing.StartSpan(ctx, "linking.Service.LinkDataItems")
	defer span.End()

	if err := s.validate.Struct(req); err != nil {
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid link request: %s", err)
	}

	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"item_id_1": req.ItemID1,
		"item_id_2": req.ItemID2,
		"actor":     req.Actor,
	})

	for _, id := range []string{req.ItemID1, req.ItemID2} {
		item, err := s.store.GetDataItem(ctx, id)
		if err != nil {
			return nil, err
		}
		if item == nil {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "data item %s not found", id)
		}
	}

	existing, err := s.store.GetRelationship(ctx, req.ItemID1, req.ItemID2, models.RelationshipTypeLinkedTo)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		log.Debug("Data items already linked")
		return &models.LinkedResult{Relationship: existing}, nil
	}

	rel := &models.Relationship{
		ID:         uuid.NewString(),
		Type:       models.RelationshipTypeLinkedTo,
		FromID:     req.ItemID1,
		ToID:       req.ItemID2,
		Symmetric:  true,
		Confidence: req.Confidence,
		Note:       req.Reason,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.CreateEdge(ctx, rel); err != nil {
		return nil, err
	}

	actionID, err := s.appendAction(ctx, &models.LinkingAction{
		ActionType: models.ActionTypeLinkDataItems,
		EntityID:   req.ItemID1,
		TargetID:   req.ItemID2,
		Actor:      req.Actor,
		Reason:     req.Reason,
		Confidence: req.Confidence,
	}, map[string]any{"relationship_id": rel.ID})
	if err != nil {
		return nil, err
	}

	if err := s.emitter.EmitLinkCreated(ctx, rel, req.Actor); err != nil {
		log.WithError(err).Warn("Link event not delivered")
	}

	log.Info("Linked data items")
	return &models.LinkedResult{Relationship: rel, ActionID: actionID}, nil
}

// MergeEntities irreversibly merges two entities: every data item and
// relationship of the discarded entity moves to the kept one, profiles are
// unioned with the kept entity winning conflicts, and the discarded entity
// becomes a tombstone. Preconditions are checked before anything is
// written; a precondition violation never leaves a partial merge.
func (s *Service) MergeEntities(ctx context.Context, req *models.MergeEntitiesRequest) (*models.MergeResult, error) {
	ctx, span := tracing.StartSpan(ctx, "linking.Service.MergeEntities")
	defer span.End()

	if err := s.validate.Struct(req); err != nil {
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid merge request: %s", err)
	}
	if req.KeepID != req.EntityID1 && req.KeepID != req.EntityID2 {
		return nil, httperror.NewHTTPErrorf(http.StatusConflict, "keep_id %s is not one of the entities being merged", req.KeepID)
	}

	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"entity_id_1": req.EntityID1,
		"entity_id_2": req.EntityID2,
		"keep_id":     req.KeepID,
		"actor":       req.Actor,
	})

	entities := make(map[string]*models.Entity, 2)
	for _, id := range []string{req.EntityID1, req.EntityID2} {
		entity, err := s.store.GetEntity(ctx, id)
		if err != nil {
			return nil, err
		}
		if entity == nil {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "entity %s not found", id)
		}
		if entity.Tombstoned() {
			return nil, httperror.NewHTTPErrorf(http.StatusConflict, "entity %s was merged into %s", id, entity.MergedInto)
		}
		entities[id] = entity
	}

	dropID := req.EntityID1
	if req.KeepID == req.EntityID1 {
		dropID = req.EntityID2
	}
	keep := entities[req.KeepID]
	drop := entities[dropID]

	mergedProfile := UnionProfiles(keep.Profile, drop.Profile)

	pending, err := s.pendingMergeStats(ctx, req.KeepID, dropID)
	if err != nil {
		return nil, err
	}

	// The audit row is written before the graph merge, inside a transaction
	// when the sink is backed by Postgres: a failed append leaves the graph
	// untouched, and a failed graph merge rolls the row back. The graph
	// write is the last fallible step before commit because it cannot be
	// reversed.
	auditCtx := ctx
	var tx database.Tx
	if s.db != nil {
		auditCtx, tx, err = database.GetTx(ctx, s.logger, s.db, nil)
		if err != nil {
			return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to begin audit transaction: %s", err)
		}
		defer tx.Rollback(ctx)
	}

	actionID, err := s.appendAction(auditCtx, &models.LinkingAction{
		ActionType: models.ActionTypeMergeEntities,
		EntityID:   req.KeepID,
		TargetID:   dropID,
		Actor:      req.Actor,
		Reason:     req.Reason,
	}, map[string]any{
		"data_items_moved":    pending.DataItemsMoved,
		"relationships_moved": pending.RelationshipsMoved,
	})
	if err != nil {
		return nil, err
	}

	stats, err := s.store.MergeEntities(ctx, req.KeepID, dropID, mergedProfile)
	if err != nil {
		return nil, err
	}

	if tx != nil {
		if err := tx.Commit(ctx); err != nil {
			log.WithError(err).Error("Merge applied but audit commit failed")
			return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to commit audit record: %s", err)
		}
	}

	result := &models.MergeResult{
		KeptID:             req.KeepID,
		TombstonedID:       dropID,
		DataItemsMoved:     stats.DataItemsMoved,
		RelationshipsMoved: stats.RelationshipsMoved,
		ActionID:           actionID,
	}

	if err := s.emitter.EmitEntityMerged(ctx, result, req.Actor); err != nil {
		log.WithError(err).Warn("Merge event not delivered")
	}

	log.WithFields(map[string]any{
		"data_items_moved":    stats.DataItemsMoved,
		"relationships_moved": stats.RelationshipsMoved,
	}).Info("Merged entities")
	return result, nil
}

// CreateRelationship adds a typed edge between two entities without
// touching ownership. If an identical-type edge already exists between the
// pair, the existing edge is returned instead of a duplicate.
func (s *Service) CreateRelationship(ctx context.Context, req *models.CreateRelationshipRequest) (*models.RelationshipResult, error) {
	ctx, span := tracing.StartSpan(ctx, "linking.Service.CreateRelationship")
	defer span.End()

	if err := s.validate.Struct(req); err != nil {
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid relationship request: %s", err)
	}

	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"entity_id_1": req.EntityID1,
		"entity_id_2": req.EntityID2,
		"rel_type":    req.Type,
		"actor":       req.Actor,
	})

	for _, id := range []string{req.EntityID1, req.EntityID2} {
		entity, err := s.store.GetEntity(ctx, id)
		if err != nil {
			return nil, err
		}
		if entity == nil {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "entity %s not found", id)
		}
		if entity.Tombstoned() {
			return nil, httperror.NewHTTPErrorf(http.StatusConflict, "entity %s was merged into %s", id, entity.MergedInto)
		}
	}

	existing, err := s.store.GetRelationship(ctx, req.EntityID1, req.EntityID2, req.Type)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		log.Debug("Relationship already exists")
		return &models.RelationshipResult{Relationship: existing, Existed: true}, nil
	}

	rel := &models.Relationship{
		ID:         uuid.NewString(),
		Type:       req.Type,
		FromID:     req.EntityID1,
		ToID:       req.EntityID2,
		Symmetric:  models.RelationshipTypeSymmetric(req.Type),
		Confidence: req.Confidence,
		Note:       req.Reason,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.CreateEdge(ctx, rel); err != nil {
		return nil, err
	}

	actionID, err := s.appendAction(ctx, &models.LinkingAction{
		ActionType: models.ActionTypeCreateRelationship,
		EntityID:   req.EntityID1,
		TargetID:   req.EntityID2,
		Actor:      req.Actor,
		Reason:     req.Reason,
		Confidence: req.Confidence,
	}, map[string]any{
		"relationship_id": rel.ID,
		"rel_type":        rel.Type,
	})
	if err != nil {
		return nil, err
	}

	if err := s.emitter.EmitRelationshipCreated(ctx, rel, req.Actor); err != nil {
		log.WithError(err).Warn("Relationship event not delivered")
	}

	log.Info("Created relationship")
	return &models.RelationshipResult{Relationship: rel, ActionID: actionID}, nil
}

// LinkOrphanToEntity reassigns an orphan data item to an entity.
func (s *Service) LinkOrphanToEntity(ctx context.Context, req *models.LinkOrphanRequest) (*models.LinkResult, error) {
	ctx, span := tracing.StartSpan(ctx, "linking.Service.LinkOrphanToEntity")
	defer span.End()

	if err := s.validate.Struct(req); err != nil {
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid orphan link request: %s", err)
	}

	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"orphan_item_id": req.OrphanItemID,
		"entity_id":      req.EntityID,
		"actor":          req.Actor,
	})

	entity, err := s.entityForWrite(ctx, req.EntityID)
	if err != nil {
		return nil, err
	}

	if err := s.linkOrphanItem(ctx, req.OrphanItemID, entity, req.Actor, req.Reason); err != nil {
		return nil, err
	}

	actionID, err := s.appendAction(ctx, &models.LinkingAction{
		ActionType: models.ActionTypeLinkOrphan,
		EntityID:   req.EntityID,
		TargetID:   req.OrphanItemID,
		Actor:      req.Actor,
		Reason:     req.Reason,
	}, nil)
	if err != nil {
		return nil, err
	}

	if err := s.emitter.EmitOrphanLinked(ctx, req.OrphanItemID, req.EntityID, req.Actor); err != nil {
		log.WithError(err).Warn("Orphan link event not delivered")
	}

	log.Info("Linked orphan data item to entity")
	return &models.LinkResult{
		DataItemID: req.OrphanItemID,
		EntityID:   req.EntityID,
		ActionID:   actionID,
	}, nil
}

// LinkOrphansBatch attaches up to MaxBatchLinkItems orphan data items to
// one entity, reporting per-item success and failure. A bad item never
// blocks the rest of the batch.
func (s *Service) LinkOrphansBatch(ctx context.Context, req *models.BatchLinkOrphansRequest) (*models.BatchLinkResult, error) {
	ctx, span := tracing.StartSpan(ctx, "linking.Service.LinkOrphansBatch")
	defer span.End()

	if err := s.validate.Struct(req); err != nil {
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid batch link request: %s", err)
	}
	if len(req.OrphanItemIDs) > models.MaxBatchLinkItems {
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "batch exceeds %d items", models.MaxBatchLinkItems)
	}

	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"entity_id":  req.EntityID,
		"batch_size": len(req.OrphanItemIDs),
		"actor":      req.Actor,
	})

	entity, err := s.entityForWrite(ctx, req.EntityID)
	if err != nil {
		return nil, err
	}

	result := &models.BatchLinkResult{EntityID: req.EntityID}
	for _, itemID := range req.OrphanItemIDs {
		itemResult := models.BatchLinkItemResult{DataItemID: itemID}

		if err := s.linkOrphanItem(ctx, itemID, entity, req.Actor, req.Reason); err != nil {
			itemResult.Error = err.Error()
			result.Failed++
			result.Items = append(result.Items, itemResult)
			continue
		}

		if _, err := s.appendAction(ctx, &models.LinkingAction{
			ActionType: models.ActionTypeLinkOrphan,
			EntityID:   req.EntityID,
			TargetID:   itemID,
			Actor:      req.Actor,
			Reason:     req.Reason,
		}, nil); err != nil {
			itemResult.Error = err.Error()
			result.Failed++
			result.Items = append(result.Items, itemResult)
			continue
		}

		itemResult.Linked = true
		result.Succeeded++
		result.Items = append(result.Items, itemResult)
	}

	linked := make([]string, 0, result.Succeeded)
	for _, item := range result.Items {
		if item.Linked {
			linked = append(linked, item.DataItemID)
		}
	}
	if err := s.emitter.EmitOrphansLinked(ctx, linked, req.EntityID, req.Actor); err != nil {
		log.WithError(err).Warn("Orphan link events not delivered")
	}

	log.WithFields(map[string]any{
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
	}).Info("Batch linked orphan data items")
	return result, nil
}

// GetLinkingHistory pages through the audit trail for an entity, newest
// first, optionally filtered by action type.
func (s *Service) GetLinkingHistory(ctx context.Context, entityID string, query models.HistoryQuery) ([]*models.LinkingAction, error) {
	ctx, span := tracing.StartSpan(ctx, "linking.Service.GetLinkingHistory")
	defer span.End()

	if entityID == "" {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "entity id is required")
	}
	if query.Limit <= 0 {
		query.Limit = DefaultHistoryLimit
	}
	if query.Offset < 0 {
		query.Offset = 0
	}

	return s.audit.ListByEntity(ctx, entityID, query)
}

// pendingMergeStats counts what a merge will move before anything is
// written, so the audit row can be recorded ahead of the irreversible
// graph write. The edge between the pair is dropped by the merge, not
// moved.
func (s *Service) pendingMergeStats(ctx context.Context, keepID string, dropID string) (*graph.MergeStats, error) {
	items, err := s.store.ListDataItemsByOwner(ctx, dropID)
	if err != nil {
		return nil, err
	}
	rels, err := s.store.ListRelationships(ctx, dropID)
	if err != nil {
		return nil, err
	}

	stats := &graph.MergeStats{DataItemsMoved: len(items)}
	for _, rel := range rels {
		if (rel.FromID == keepID && rel.ToID == dropID) || (rel.FromID == dropID && rel.ToID == keepID) {
			continue
		}
		if rel.FromID == dropID {
			stats.RelationshipsMoved++
		}
		if rel.ToID == dropID {
			stats.RelationshipsMoved++
		}
	}
	return stats, nil
}

// entityForWrite loads an entity that is about to be mutated, rejecting
// absent and tombstoned entities.
func (s *Service) entityForWrite(ctx context.Context, entityID string) (*models.Entity, error) {
	entity, err := s.store.GetEntity(ctx, entityID)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "entity %s not found", entityID)
	}
	if entity.Tombstoned() {
		return nil, httperror.NewHTTPErrorf(http.StatusConflict, "entity %s was merged into %s", entityID, entity.MergedInto)
	}
	return entity, nil
}

func (s *Service) linkOrphanItem(ctx context.Context, itemID string, entity *models.Entity, actor string, reason string) error {
	item, err := s.store.GetDataItem(ctx, itemID)
	if err != nil {
		return err
	}
	if item == nil {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "data item %s not found", itemID)
	}
	if item.OwnedByEntity() {
		if item.OwnerID == entity.ID {
			return httperror.NewHTTPErrorf(http.StatusConflict, "data item %s already belongs to entity %s", itemID, entity.ID)
		}
		return httperror.NewHTTPErrorf(http.StatusConflict, "data item %s is owned by entity %s", itemID, item.OwnerID)
	}

	return s.store.MoveOwnership(ctx, itemID, entity.ID)
}

func (s *Service) appendAction(ctx context.Context, action *models.LinkingAction, details map[string]any) (string, error) {
	action.ID = uuid.NewString()
	action.CreatedAt = time.Now().UTC()
	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			return "", fmt.Errorf("failed to encode action details: %w", err)
		}
		action.Details = raw
	}

	if err := s.audit.Append(ctx, action); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"action_type": action.ActionType,
			"entity_id":   action.EntityID,
		}).Error("Failed to append linking action")
		return "", err
	}
	return action.ID, nil
}
