package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Ramsey-B/tendril/pkg/models"
	"github.com/Ramsey-B/tendril/pkg/tracing"
)

// CreateEdge creates a typed relationship edge between two records.
func (s *Neo4jStore) CreateEdge(ctx context.Context, rel *models.Relationship) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Neo4jStore.CreateEdge")
	defer span.End()

	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"relationship_id": rel.ID,
		"rel_type":        rel.Type,
		"from_id":         rel.FromID,
		"to_id":           rel.ToID,
	})

	cypher := `
		MATCH (a {id: $from_id})
		MATCH (b {id: $to_id})
		CREATE (a)-[r:RELATED {
			id: $id,
			rel_type: $rel_type,
			symmetric: $symmetric,
			confidence: $confidence,
			note: $note,
			created_at: $created_at
		}]->(b)
	`

	_, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"from_id":    rel.FromID,
			"to_id":      rel.ToID,
			"id":         rel.ID,
			"rel_type":   rel.Type,
			"symmetric":  rel.Symmetric,
			"confidence": rel.Confidence,
			"note":       rel.Note,
			"created_at": formatTime(rel.CreatedAt),
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})

	if err != nil {
		log.WithError(err).Error("Failed to create relationship in graph")
		return fmt.Errorf("failed to create relationship in graph: %w", err)
	}

	log.Debug("Created relationship in graph")
	return nil
}

// GetRelationship finds an edge of the given type between two records.
// Symmetric types match in either direction; directional types match only
// from -> to. Returns (nil, nil) when no such edge exists.
func (s *Neo4jStore) GetRelationship(ctx context.Context, fromID string, toID string, relType string) (*models.Relationship, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.Neo4jStore.GetRelationship")
	defer span.End()

	pattern := `(a {id: $from_id})-[r:RELATED {rel_type: $rel_type}]->(b {id: $to_id})`
	if models.RelationshipTypeSymmetric(relType) {
		pattern = `(a {id: $from_id})-[r:RELATED {rel_type: $rel_type}]-(b {id: $to_id})`
	}

	cypher := fmt.Sprintf(`
		MATCH %s
		RETURN r, startNode(r).id AS from_id, endNode(r).id AS to_id
		LIMIT 1
	`, pattern)

	result, err := s.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"from_id":  fromID,
			"to_id":    toID,
			"rel_type": relType,
		})
		if err != nil {
			return nil, err
		}

		if result.Next(ctx) {
			return relationshipFromRecord(result.Record())
		}
		return nil, result.Err()
	})

	if err != nil {
		return nil, fmt.Errorf("failed to get relationship from graph: %w", err)
	}
	if result == nil {
		return nil, nil
	}
	return result.(*models.Relationship), nil
}

// ListRelationships lists every edge touching a record, in either
// direction.
func (s *Neo4jStore) ListRelationships(ctx context.Context, recordID string) ([]*models.Relationship, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.Neo4jStore.ListRelationships")
	defer span.End()

	cypher := `
		MATCH (a {id: $record_id})-[r:RELATED]-(b)
		RETURN r, startNode(r).id AS from_id, endNode(r).id AS to_id
		ORDER BY r.id
	`

	result, err := s.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{"record_id": recordID})
		if err != nil {
			return nil, err
		}

		var rels []*models.Relationship
		for result.Next(ctx) {
			rel, err := relationshipFromRecord(result.Record())
			if err != nil {
				return nil, err
			}
			if rel != nil {
				rels = append(rels, rel)
			}
		}
		return rels, result.Err()
	})

	if err != nil {
		return nil, fmt.Errorf("failed to list relationships from graph: %w", err)
	}
	if result == nil {
		return nil, nil
	}
	return result.([]*models.Relationship), nil
}

// CreateDismissal records that an operator dismissed a candidate item for
// an owner. Dismissing an already-dismissed pair is a no-op.
func (s *Neo4jStore) CreateDismissal(ctx context.Context, dismissal *models.DismissedSuggestion) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Neo4jStore.CreateDismissal")
	defer span.End()

	cypher := `
		MATCH (o {id: $owner_id})
		MATCH (d:DataItem {id: $item_id})
		MERGE (o)-[r:DISMISSED]->(d)
		ON CREATE SET r.reason = $reason, r.created_at = $created_at
	`

	_, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"owner_id":   dismissal.OwnerID,
			"item_id":    dismissal.DataItemID,
			"reason":     dismissal.Reason,
			"created_at": formatTime(dismissal.CreatedAt),
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})

	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to create dismissal in graph")
		return fmt.Errorf("failed to create dismissal in graph: %w", err)
	}
	return nil
}

// RemoveDismissal deletes a dismissal edge. Removing an absent dismissal
// is a no-op.
func (s *Neo4jStore) RemoveDismissal(ctx context.Context, ownerID string, itemID string) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Neo4jStore.RemoveDismissal")
	defer span.End()

	cypher := `
		MATCH (o {id: $owner_id})-[r:DISMISSED]->(d:DataItem {id: $item_id})
		DELETE r
	`

	_, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"owner_id": ownerID,
			"item_id":  itemID,
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})

	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to remove dismissal in graph")
		return fmt.Errorf("failed to remove dismissal in graph: %w", err)
	}
	return nil
}

// ListDismissals lists the dismissal edges recorded for an owner.
func (s *Neo4jStore) ListDismissals(ctx context.Context, ownerID string) ([]*models.DismissedSuggestion, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.Neo4jStore.ListDismissals")
	defer span.End()

	cypher := `
		MATCH (o {id: $owner_id})-[r:DISMISSED]->(d:DataItem)
		RETURN r, d.id AS item_id
		ORDER BY d.id
	`

	result, err := s.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{"owner_id": ownerID})
		if err != nil {
			return nil, err
		}

		var dismissals []*models.DismissedSuggestion
		for result.Next(ctx) {
			record := result.Record()
			edge, ok := record.Get("r")
			if !ok {
				continue
			}
			r := edge.(neo4j.Relationship)

			itemVal, _ := record.Get("item_id")
			itemID, _ := itemVal.(string)

			dismissals = append(dismissals, &models.DismissedSuggestion{
				OwnerID:    ownerID,
				DataItemID: itemID,
				Reason:     propString(r.Props, "reason"),
				CreatedAt:  parseTime(r.Props["created_at"]),
			})
		}
		return dismissals, result.Err()
	})

	if err != nil {
		return nil, fmt.Errorf("failed to list dismissals from graph: %w", err)
	}
	if result == nil {
		return nil, nil
	}
	return result.([]*models.DismissedSuggestion), nil
}

func relationshipFromRecord(record *neo4j.Record) (*models.Relationship, error) {
	edge, ok := record.Get("r")
	if !ok {
		return nil, nil
	}
	r, ok := edge.(neo4j.Relationship)
	if !ok {
		return nil, fmt.Errorf("unexpected relationship record type %T", edge)
	}

	fromVal, _ := record.Get("from_id")
	fromID, _ := fromVal.(string)
	toVal, _ := record.Get("to_id")
	toID, _ := toVal.(string)

	return relationshipFromProps(r.Props, fromID, toID), nil
}
