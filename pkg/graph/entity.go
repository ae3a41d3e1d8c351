package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Ramsey-B/tendril/pkg/models"
	"github.com/Ramsey-B/tendril/pkg/tracing"
)

// CreateEntity creates or updates an entity node.
func (s *Neo4jStore) CreateEntity(ctx context.Context, entity *models.Entity) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Neo4jStore.CreateEntity")
	defer span.End()

	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"entity_id": entity.ID,
	})

	props := map[string]any{
		"id":          entity.ID,
		"name":        entity.Name,
		"profile":     string(entity.Profile),
		"merged_into": entity.MergedInto,
		"created_at":  formatTime(entity.CreatedAt),
		"updated_at":  formatTime(entity.UpdatedAt),
	}

	cypher := `
		MERGE (e:Entity {id: $id})
		SET e = $props
		RETURN e
	`

	_, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"id":    entity.ID,
			"props": props,
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})

	if err != nil {
		log.WithError(err).Error("Failed to create entity in graph")
		return fmt.Errorf("failed to create entity in graph: %w", err)
	}

	log.Debug("Created entity in graph")
	return nil
}

// GetEntity retrieves an entity by id. Returns (nil, nil) when absent.
func (s *Neo4jStore) GetEntity(ctx context.Context, id string) (*models.Entity, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.Neo4jStore.GetEntity")
	defer span.End()

	cypher := `
		MATCH (e:Entity {id: $id})
		RETURN e
	`

	result, err := s.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{"id": id})
		if err != nil {
			return nil, err
		}

		if result.Next(ctx) {
			record := result.Record()
			node, ok := record.Get("e")
			if !ok {
				return nil, nil
			}
			n := node.(neo4j.Node)
			return entityFromProps(n.Props), nil
		}
		return nil, result.Err()
	})

	if err != nil {
		return nil, fmt.Errorf("failed to get entity from graph: %w", err)
	}
	if result == nil {
		return nil, nil
	}
	return result.(*models.Entity), nil
}

// CreateOrphan creates or updates an orphan holding record.
func (s *Neo4jStore) CreateOrphan(ctx context.Context, orphan *models.Orphan) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Neo4jStore.CreateOrphan")
	defer span.End()

	props := map[string]any{
		"id":         orphan.ID,
		"source":     orphan.Source,
		"created_at": formatTime(orphan.CreatedAt),
	}

	cypher := `
		MERGE (o:Orphan {id: $id})
		SET o = $props
		RETURN o
	`

	_, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"id":    orphan.ID,
			"props": props,
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})

	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to create orphan in graph")
		return fmt.Errorf("failed to create orphan in graph: %w", err)
	}
	return nil
}

// GetOrphan retrieves an orphan record by id. Returns (nil, nil) when absent.
func (s *Neo4jStore) GetOrphan(ctx context.Context, id string) (*models.Orphan, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.Neo4jStore.GetOrphan")
	defer span.End()

	cypher := `
		MATCH (o:Orphan {id: $id})
		RETURN o
	`

	result, err := s.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{"id": id})
		if err != nil {
			return nil, err
		}

		if result.Next(ctx) {
			record := result.Record()
			node, ok := record.Get("o")
			if !ok {
				return nil, nil
			}
			n := node.(neo4j.Node)
			return orphanFromProps(n.Props), nil
		}
		return nil, result.Err()
	})

	if err != nil {
		return nil, fmt.Errorf("failed to get orphan from graph: %w", err)
	}
	if result == nil {
		return nil, nil
	}
	return result.(*models.Orphan), nil
}
