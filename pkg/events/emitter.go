// Package events handles event emission for linking lifecycle changes
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/tendril/pkg/kafka"
	"github.com/Ramsey-B/tendril/pkg/models"
	"github.com/Ramsey-B/tendril/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// publisher is the slice of the Kafka producer the emitter uses.
type publisher interface {
	PublishLinkEvent(ctx context.Context, event *kafka.LinkEvent) error
	PublishLinkEvents(ctx context.Context, events []*kafka.LinkEvent) error
}

// Emitter publishes linking lifecycle events scoped to one project. A nil
// Emitter or a nil producer is a silent no-op, so hosts that don't
// configure Kafka pay nothing.
type Emitter struct {
	producer  publisher
	logger    ectologger.Logger
	projectID string
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger, projectID string) *Emitter {
	e := &Emitter{
		logger:    logger,
		projectID: projectID,
	}
	if producer != nil {
		e.producer = producer
	}
	return e
}

func (e *Emitter) enabled() bool {
	return e != nil && e.producer != nil
}

// EmitLinkCreated emits an event for a new LINKED_TO edge between data items
func (e *Emitter) EmitLinkCreated(ctx context.Context, rel *models.Relationship, actor string) error {
	if !e.enabled() {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitLinkCreated")
	defer span.End()

	details, _ := json.Marshal(map[string]any{
		"schema_version":  SchemaVersion,
		"relationship_id": rel.ID,
		"confidence":      rel.Confidence,
	})

	event := &kafka.LinkEvent{
		EventType: "link.created",
		ProjectID: e.projectID,
		ItemIDs:   []string{rel.FromID, rel.ToID},
		Actor:     actor,
		Summary:   fmt.Sprintf("data items %s and %s linked", rel.FromID, rel.ToID),
		Details:   details,
	}

	if err := e.producer.PublishLinkEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit link.created event")
		return err
	}
	return nil
}

// EmitEntityMerged emits an event describing what a merge moved
func (e *Emitter) EmitEntityMerged(ctx context.Context, result *models.MergeResult, actor string) error {
	if !e.enabled() {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitEntityMerged")
	defer span.End()

	details, _ := json.Marshal(map[string]any{
		"schema_version":      SchemaVersion,
		"data_items_moved":    result.DataItemsMoved,
		"relationships_moved": result.RelationshipsMoved,
	})

	event := &kafka.LinkEvent{
		EventType: "entity.merged",
		ProjectID: e.projectID,
		EntityIDs: []string{result.KeptID, result.TombstonedID},
		Actor:     actor,
		Summary: fmt.Sprintf("entity %s merged into %s (%d data items, %d relationships moved)",
			result.TombstonedID, result.KeptID, result.DataItemsMoved, result.RelationshipsMoved),
		Details: details,
	}

	if err := e.producer.PublishLinkEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit entity.merged event")
		return err
	}
	return nil
}

// EmitRelationshipCreated emits an event for a new typed entity edge
func (e *Emitter) EmitRelationshipCreated(ctx context.Context, rel *models.Relationship, actor string) error {
	if !e.enabled() {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitRelationshipCreated")
	defer span.End()

	details, _ := json.Marshal(map[string]any{
		"schema_version":  SchemaVersion,
		"relationship_id": rel.ID,
		"rel_type":        rel.Type,
		"symmetric":       rel.Symmetric,
		"confidence":      rel.Confidence,
	})

	event := &kafka.LinkEvent{
		EventType: "relationship.created",
		ProjectID: e.projectID,
		EntityIDs: []string{rel.FromID, rel.ToID},
		Actor:     actor,
		Summary:   fmt.Sprintf("%s relationship created between %s and %s", rel.Type, rel.FromID, rel.ToID),
		Details:   details,
	}

	if err := e.producer.PublishLinkEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit relationship.created event")
		return err
	}
	return nil
}

// EmitOrphanLinked emits an event when an orphan item is attributed to an entity
func (e *Emitter) EmitOrphanLinked(ctx context.Context, itemID string, entityID string, actor string) error {
	if !e.enabled() {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitOrphanLinked")
	defer span.End()

	event := &kafka.LinkEvent{
		EventType: "orphan.linked",
		ProjectID: e.projectID,
		EntityIDs: []string{entityID},
		ItemIDs:   []string{itemID},
		Actor:     actor,
		Summary:   fmt.Sprintf("data item %s attributed to entity %s", itemID, entityID),
	}

	if err := e.producer.PublishLinkEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit orphan.linked event")
		return err
	}
	return nil
}

// EmitOrphansLinked emits one orphan.linked event per attributed item,
// published as a single batch.
func (e *Emitter) EmitOrphansLinked(ctx context.Context, itemIDs []string, entityID string, actor string) error {
	if !e.enabled() || len(itemIDs) == 0 {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitOrphansLinked")
	defer span.End()

	batch := make([]*kafka.LinkEvent, len(itemIDs))
	for i, itemID := range itemIDs {
		batch[i] = &kafka.LinkEvent{
			EventType: "orphan.linked",
			ProjectID: e.projectID,
			EntityIDs: []string{entityID},
			ItemIDs:   []string{itemID},
			Actor:     actor,
			Summary:   fmt.Sprintf("data item %s attributed to entity %s", itemID, entityID),
		}
	}

	if err := e.producer.PublishLinkEvents(ctx, batch); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"batch_size": len(batch),
		}).Error("Failed to emit orphan.linked batch")
		return err
	}
	return nil
}

// EmitSuggestionDismissed emits an event when an operator dismisses a candidate
func (e *Emitter) EmitSuggestionDismissed(ctx context.Context, ownerID string, itemID string) error {
	if !e.enabled() {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitSuggestionDismissed")
	defer span.End()

	event := &kafka.LinkEvent{
		EventType: "suggestion.dismissed",
		ProjectID: e.projectID,
		EntityIDs: []string{ownerID},
		ItemIDs:   []string{itemID},
		Summary:   fmt.Sprintf("suggestion %s dismissed for %s", itemID, ownerID),
	}

	if err := e.producer.PublishLinkEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit suggestion.dismissed event")
		return err
	}
	return nil
}
