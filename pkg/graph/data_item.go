package graph

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Ramsey-B/tendril/pkg/models"
	"github.com/Ramsey-B/tendril/pkg/tracing"
)

// CreateDataItem creates or updates a data item node and, when the item
// has an owner, its OWNS edge.
func (s *Neo4jStore) CreateDataItem(ctx context.Context, item *models.DataItem) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Neo4jStore.CreateDataItem")
	defer span.End()

	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"data_item_id": item.ID,
		"item_type":    item.Type,
	})

	metadata := ""
	if len(item.Metadata) > 0 {
		raw, err := json.Marshal(item.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode data item metadata: %w", err)
		}
		metadata = string(raw)
	}

	props := map[string]any{
		"id":               item.ID,
		"type":             string(item.Type),
		"raw_value":        item.RawValue,
		"normalized_value": item.NormalizedValue,
		"content_hash":     item.ContentHash,
		"metadata":         metadata,
		"normalize_note":   item.NormalizeNote,
		"created_at":       formatTime(item.CreatedAt),
	}

	var ownerLabel string
	switch item.OwnerKind {
	case models.OwnerKindEntity:
		ownerLabel = "Entity"
	case models.OwnerKindOrphan:
		ownerLabel = "Orphan"
	}

	_, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		cypher := `
			MERGE (d:DataItem {id: $id})
			SET d = $props
		`
		if _, err := tx.Run(ctx, cypher, map[string]any{
			"id":    item.ID,
			"props": props,
		}); err != nil {
			return nil, err
		}

		if ownerLabel != "" && item.OwnerID != "" {
			ownCypher := fmt.Sprintf(`
				MATCH (o:%s {id: $owner_id})
				MATCH (d:DataItem {id: $item_id})
				MERGE (o)-[:OWNS]->(d)
			`, sanitizeLabel(ownerLabel))
			if _, err := tx.Run(ctx, ownCypher, map[string]any{
				"owner_id": item.OwnerID,
				"item_id":  item.ID,
			}); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})

	if err != nil {
		log.WithError(err).Error("Failed to create data item in graph")
		return fmt.Errorf("failed to create data item in graph: %w", err)
	}

	log.Debug("Created data item in graph")
	return nil
}

// GetDataItem retrieves a data item with its owner. Returns (nil, nil)
// when absent.
func (s *Neo4jStore) GetDataItem(ctx context.Context, id string) (*models.DataItem, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.Neo4jStore.GetDataItem")
	defer span.End()

	cypher := `
		MATCH (d:DataItem {id: $id})
		OPTIONAL MATCH (o)-[:OWNS]->(d)
		RETURN d, labels(o) AS owner_labels, o.id AS owner_id
	`

	result, err := s.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{"id": id})
		if err != nil {
			return nil, err
		}

		if result.Next(ctx) {
			record := result.Record()
			node, ok := record.Get("d")
			if !ok {
				return nil, nil
			}
			n := node.(neo4j.Node)
			ownerID, ownerKind := ownerFromRecord(record)
			return dataItemFromProps(n.Props, ownerID, ownerKind), nil
		}
		return nil, result.Err()
	})

	if err != nil {
		return nil, fmt.Errorf("failed to get data item from graph: %w", err)
	}
	if result == nil {
		return nil, nil
	}
	return result.(*models.DataItem), nil
}

// ListDataItemsByOwner lists the data items owned by an entity or orphan.
func (s *Neo4jStore) ListDataItemsByOwner(ctx context.Context, ownerID string) ([]*models.DataItem, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.Neo4jStore.ListDataItemsByOwner")
	defer span.End()

	cypher := `
		MATCH (o {id: $owner_id})-[:OWNS]->(d:DataItem)
		RETURN d, labels(o) AS owner_labels, o.id AS owner_id
		ORDER BY d.id
	`

	return s.queryDataItems(ctx, cypher, map[string]any{"owner_id": ownerID})
}

// ListDataItemsByType lists every data item of a type.
func (s *Neo4jStore) ListDataItemsByType(ctx context.Context, itemType models.ItemType) ([]*models.DataItem, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.Neo4jStore.ListDataItemsByType")
	defer span.End()

	cypher := `
		MATCH (d:DataItem {type: $type})
		OPTIONAL MATCH (o)-[:OWNS]->(d)
		RETURN d, labels(o) AS owner_labels, o.id AS owner_id
		ORDER BY d.id
	`

	return s.queryDataItems(ctx, cypher, map[string]any{"type": string(itemType)})
}

// FindByNormalizedValue finds data items of a type whose normalized value
// matches exactly.
func (s *Neo4jStore) FindByNormalizedValue(ctx context.Context, itemType models.ItemType, normalized string) ([]*models.DataItem, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.Neo4jStore.FindByNormalizedValue")
	defer span.End()

	cypher := `
		MATCH (d:DataItem {type: $type, normalized_value: $value})
		OPTIONAL MATCH (o)-[:OWNS]->(d)
		RETURN d, labels(o) AS owner_labels, o.id AS owner_id
		ORDER BY d.id
	`

	return s.queryDataItems(ctx, cypher, map[string]any{
		"type":  string(itemType),
		"value": normalized,
	})
}

// FindByHash finds data items carrying an exact content hash.
func (s *Neo4jStore) FindByHash(ctx context.Context, contentHash string) ([]*models.DataItem, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.Neo4jStore.FindByHash")
	defer span.End()

	cypher := `
		MATCH (d:DataItem {content_hash: $hash})
		OPTIONAL MATCH (o)-[:OWNS]->(d)
		RETURN d, labels(o) AS owner_labels, o.id AS owner_id
		ORDER BY d.id
	`

	return s.queryDataItems(ctx, cypher, map[string]any{"hash": contentHash})
}

// MoveOwnership reassigns a data item to an entity, detaching any previous
// owner.
func (s *Neo4jStore) MoveOwnership(ctx context.Context, itemID string, entityID string) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Neo4jStore.MoveOwnership")
	defer span.End()

	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"data_item_id": itemID,
		"entity_id":    entityID,
	})

	cypher := `
		MATCH (d:DataItem {id: $item_id})
		MATCH (e:Entity {id: $entity_id})
		OPTIONAL MATCH (prev)-[r:OWNS]->(d)
		DELETE r
		MERGE (e)-[:OWNS]->(d)
	`

	_, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"item_id":   itemID,
			"entity_id": entityID,
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})

	if err != nil {
		log.WithError(err).Error("Failed to move data item ownership")
		return fmt.Errorf("failed to move data item ownership: %w", err)
	}

	log.Debug("Moved data item ownership")
	return nil
}

func (s *Neo4jStore) queryDataItems(ctx context.Context, cypher string, params map[string]any) ([]*models.DataItem, error) {
	result, err := s.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}

		var items []*models.DataItem
		for result.Next(ctx) {
			record := result.Record()
			node, ok := record.Get("d")
			if !ok {
				continue
			}
			n := node.(neo4j.Node)
			ownerID, ownerKind := ownerFromRecord(record)
			items = append(items, dataItemFromProps(n.Props, ownerID, ownerKind))
		}
		return items, result.Err()
	})

	if err != nil {
		return nil, fmt.Errorf("failed to query data items from graph: %w", err)
	}
	if result == nil {
		return nil, nil
	}
	return result.([]*models.DataItem), nil
}
