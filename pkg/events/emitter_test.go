package events

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/tendril/pkg/kafka"
	"github.com/Ramsey-B/tendril/pkg/models"
)

// capturePublisher records everything the emitter publishes.
type capturePublisher struct {
	events  []*kafka.LinkEvent
	batches [][]*kafka.LinkEvent
}

func (p *capturePublisher) PublishLinkEvent(_ context.Context, event *kafka.LinkEvent) error {
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) PublishLinkEvents(_ context.Context, events []*kafka.LinkEvent) error {
	p.batches = append(p.batches, events)
	return nil
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func newCaptureEmitter(projectID string) (*Emitter, *capturePublisher) {
	capture := &capturePublisher{}
	return &Emitter{
		producer:  capture,
		logger:    testLogger(),
		projectID: projectID,
	}, capture
}

func TestEmitEntityMerged(t *testing.T) {
	emitter, capture := newCaptureEmitter("proj-1")

	err := emitter.EmitEntityMerged(context.Background(), &models.MergeResult{
		KeptID:             "entity-a",
		TombstonedID:       "entity-b",
		DataItemsMoved:     3,
		RelationshipsMoved: 1,
	}, "analyst@example.com")
	require.NoError(t, err)
	require.Len(t, capture.events, 1)

	event := capture.events[0]
	assert.Equal(t, "entity.merged", event.EventType)
	assert.Equal(t, "proj-1", event.ProjectID)
	assert.Equal(t, []string{"entity-a", "entity-b"}, event.EntityIDs)
	assert.Equal(t, "entity entity-b merged into entity-a (3 data items, 1 relationships moved)", event.Summary)
	assert.Equal(t, "analyst@example.com", event.Actor)
}

func TestEmitOrphansLinkedBatch(t *testing.T) {
	emitter, capture := newCaptureEmitter("proj-1")

	err := emitter.EmitOrphansLinked(context.Background(), []string{"item-1", "item-2"}, "entity-a", "analyst@example.com")
	require.NoError(t, err)
	require.Len(t, capture.batches, 1)
	require.Len(t, capture.batches[0], 2)

	wantItems := []string{"item-1", "item-2"}
	for i, event := range capture.batches[0] {
		assert.Equal(t, "orphan.linked", event.EventType)
		assert.Equal(t, "proj-1", event.ProjectID)
		assert.Equal(t, []string{"entity-a"}, event.EntityIDs)
		assert.Equal(t, []string{wantItems[i]}, event.ItemIDs)
		assert.NotEmpty(t, event.Summary)
	}

	// An empty batch publishes nothing.
	require.NoError(t, emitter.EmitOrphansLinked(context.Background(), nil, "entity-a", "a"))
	assert.Len(t, capture.batches, 1)
}

func TestEmitterNilSafe(t *testing.T) {
	ctx := context.Background()
	rel := &models.Relationship{ID: "rel-1", FromID: "a", ToID: "b"}

	var nilEmitter *Emitter
	assert.NoError(t, nilEmitter.EmitLinkCreated(ctx, rel, "a"))

	disabled := NewEmitter(nil, testLogger(), "proj-1")
	assert.NoError(t, disabled.EmitLinkCreated(ctx, rel, "a"))
	assert.NoError(t, disabled.EmitOrphansLinked(ctx, []string{"item-1"}, "entity-a", "a"))
	assert.NoError(t, disabled.EmitSuggestionDismissed(ctx, "entity-a", "item-1"))
}

func TestEmitEventShapes(t *testing.T) {
	emitter, capture := newCaptureEmitter("proj-1")
	ctx := context.Background()

	require.NoError(t, emitter.EmitLinkCreated(ctx, &models.Relationship{ID: "rel-1", FromID: "item-1", ToID: "item-2"}, "a"))
	require.NoError(t, emitter.EmitRelationshipCreated(ctx, &models.Relationship{ID: "rel-2", Type: "SAME_AS", FromID: "entity-a", ToID: "entity-b"}, "a"))
	require.NoError(t, emitter.EmitOrphanLinked(ctx, "item-1", "entity-a", "a"))
	require.NoError(t, emitter.EmitSuggestionDismissed(ctx, "entity-a", "item-1"))

	require.Len(t, capture.events, 4)
	types := make([]string, len(capture.events))
	for i, event := range capture.events {
		types[i] = event.EventType
		assert.Equal(t, "proj-1", event.ProjectID, event.EventType)
		assert.NotEmpty(t, event.Summary, event.EventType)
	}
	assert.Equal(t, []string{"link.created", "relationship.created", "orphan.linked", "suggestion.dismissed"}, types)
}
