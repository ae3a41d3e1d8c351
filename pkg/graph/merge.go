package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Ramsey-B/tendril/pkg/tracing"
)

// TombstoneEntity marks an entity as discarded by a merge. The node is
// kept so history stays resolvable.
func (s *Neo4jStore) TombstoneEntity(ctx context.Context, id string, mergedInto string) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Neo4jStore.TombstoneEntity")
	defer span.End()

	cypher := `
		MATCH (e:Entity {id: $id})
		SET e.merged_into = $merged_into, e.updated_at = $updated_at
	`

	_, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"id":          id,
			"merged_into": mergedInto,
			"updated_at":  formatTime(time.Now()),
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})

	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to tombstone entity in graph")
		return fmt.Errorf("failed to tombstone entity in graph: %w", err)
	}
	return nil
}

// MergeEntities moves everything from the dropped entity onto the kept
// one inside a single transaction: data item ownership, relationship
// edges (direction preserved, edges between the pair deleted), the merged
// profile, and the tombstone marker. Partial merges cannot be observed.
func (s *Neo4jStore) MergeEntities(ctx context.Context, keepID string, dropID string, mergedProfile json.RawMessage) (*MergeStats, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.Neo4jStore.MergeEntities")
	defer span.End()

	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"keep_id": keepID,
		"drop_id": dropID,
	})

	now := formatTime(time.Now())

	moveItemsCypher := `
		MATCH (drop:Entity {id: $drop_id})-[r:OWNS]->(d:DataItem)
		MATCH (keep:Entity {id: $keep_id})
		DELETE r
		MERGE (keep)-[:OWNS]->(d)
		RETURN count(d) AS moved
	`

	moveOutgoingCypher := `
		MATCH (drop:Entity {id: $drop_id})-[r:RELATED]->(b)
		WHERE b.id <> $keep_id
		MATCH (keep:Entity {id: $keep_id})
		CREATE (keep)-[nr:RELATED]->(b)
		SET nr = properties(r)
		DELETE r
		RETURN count(r) AS moved
	`

	moveIncomingCypher := `
		MATCH (a)-[r:RELATED]->(drop:Entity {id: $drop_id})
		WHERE a.id <> $keep_id
		MATCH (keep:Entity {id: $keep_id})
		CREATE (a)-[nr:RELATED]->(keep)
		SET nr = properties(r)
		DELETE r
		RETURN count(r) AS moved
	`

	// Edges between the pair would become self-loops; they are dropped.
	dropPairEdgesCypher := `
		MATCH (drop:Entity {id: $drop_id})-[r:RELATED]-(keep:Entity {id: $keep_id})
		DELETE r
	`

	finalizeCypher := `
		MATCH (keep:Entity {id: $keep_id})
		MATCH (drop:Entity {id: $drop_id})
		SET keep.profile = $profile,
			keep.updated_at = $now,
			drop.merged_into = $keep_id,
			drop.updated_at = $now
	`

	params := map[string]any{
		"keep_id": keepID,
		"drop_id": dropID,
	}

	result, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		stats := &MergeStats{}

		if _, err := tx.Run(ctx, dropPairEdgesCypher, params); err != nil {
			return nil, err
		}

		moved, err := runCount(ctx, tx, moveItemsCypher, params)
		if err != nil {
			return nil, err
		}
		stats.DataItemsMoved = moved

		moved, err = runCount(ctx, tx, moveOutgoingCypher, params)
		if err != nil {
			return nil, err
		}
		stats.RelationshipsMoved += moved

		moved, err = runCount(ctx, tx, moveIncomingCypher, params)
		if err != nil {
			return nil, err
		}
		stats.RelationshipsMoved += moved

		if _, err := tx.Run(ctx, finalizeCypher, map[string]any{
			"keep_id": keepID,
			"drop_id": dropID,
			"profile": string(mergedProfile),
			"now":     now,
		}); err != nil {
			return nil, err
		}

		return stats, nil
	})

	if err != nil {
		log.WithError(err).Error("Failed to merge entities in graph")
		return nil, fmt.Errorf("failed to merge entities in graph: %w", err)
	}

	stats := result.(*MergeStats)
	log.WithFields(map[string]any{
		"data_items_moved":    stats.DataItemsMoved,
		"relationships_moved": stats.RelationshipsMoved,
	}).Info("Merged entities in graph")

	return stats, nil
}

func runCount(ctx context.Context, tx neo4j.ManagedTransaction, cypher string, params map[string]any) (int, error) {
	result, err := tx.Run(ctx, cypher, params)
	if err != nil {
		return 0, err
	}

	if result.Next(ctx) {
		record := result.Record()
		if v, ok := record.Get("moved"); ok {
			if n, ok := v.(int64); ok {
				return int(n), nil
			}
		}
	}
	return 0, result.Err()
}
