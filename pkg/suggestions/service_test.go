package suggestions

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/tendril/pkg/graph"
	"github.com/Ramsey-B/tendril/pkg/matching"
	"github.com/Ramsey-B/tendril/pkg/models"
	"github.com/Ramsey-B/tendril/pkg/normalize"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func newTestService(store graph.Store) *Service {
	engine := matching.NewEngine(testLogger(), store, matching.DefaultConfig())
	return NewService(testLogger(), store, engine, nil)
}

func seedEntity(t *testing.T, store *graph.MemoryStore, id string) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, store.CreateEntity(context.Background(), &models.Entity{
		ID:        id,
		Name:      id,
		CreatedAt: now,
		UpdatedAt: now,
	}))
}

func seedOrphan(t *testing.T, store *graph.MemoryStore, id string) {
	t.Helper()
	require.NoError(t, store.CreateOrphan(context.Background(), &models.Orphan{
		ID:        id,
		Source:    "import",
		CreatedAt: time.Now().UTC(),
	}))
}

func seedItem(t *testing.T, store *graph.MemoryStore, id string, ownerID string, kind models.OwnerKind, itemType models.ItemType, raw string) {
	t.Helper()
	norm := normalize.Value(raw, itemType, normalize.Options{DefaultRegion: "US"})
	require.NoError(t, store.CreateDataItem(context.Background(), &models.DataItem{
		ID:              id,
		Type:            itemType,
		RawValue:        raw,
		NormalizedValue: norm,
		OwnerID:         ownerID,
		OwnerKind:       kind,
		CreatedAt:       time.Now().UTC(),
	}))
}

func TestGetEntitySuggestions(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemoryStore()
	seedEntity(t, store, "entity-a")
	seedEntity(t, store, "entity-b")
	seedItem(t, store, "item-a1", "entity-a", models.OwnerKindEntity, models.ItemTypeEmail, "John@Example.com")
	seedItem(t, store, "item-b1", "entity-b", models.OwnerKindEntity, models.ItemTypeEmail, "john@example.com ")

	svc := newTestService(store)

	set, err := svc.GetEntitySuggestions(ctx, "entity-a", DefaultOptions())
	require.NoError(t, err)
	require.Len(t, set.Groups, 1)

	group := set.Groups[0]
	assert.Equal(t, models.ConfidenceTierHigh, group.Tier)
	require.Len(t, group.Suggestions, 1)
	assert.Equal(t, "item-a1", group.Suggestions[0].SourceItemID)
	assert.Equal(t, "item-b1", group.Suggestions[0].Match.DataItemID)
	assert.Equal(t, 0.95, group.Suggestions[0].Match.Confidence)
	assert.Zero(t, set.DismissedCount)
	assert.Zero(t, set.SkippedItems)
}

func TestGetEntitySuggestionsUnknownEntity(t *testing.T) {
	svc := newTestService(graph.NewMemoryStore())

	_, err := svc.GetEntitySuggestions(context.Background(), "missing", DefaultOptions())
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
}

func TestDismissedSuggestionsStayHidden(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemoryStore()
	seedEntity(t, store, "entity-a")
	seedEntity(t, store, "entity-b")
	seedItem(t, store, "item-a1", "entity-a", models.OwnerKindEntity, models.ItemTypeEmail, "john@example.com")
	seedItem(t, store, "item-b1", "entity-b", models.OwnerKindEntity, models.ItemTypeEmail, "john@example.com")

	svc := newTestService(store)

	require.NoError(t, svc.Dismiss(ctx, "entity-a", "item-b1", "not the same person"))
	// Re-dismissing is a no-op, not an error.
	require.NoError(t, svc.Dismiss(ctx, "entity-a", "item-b1", "again"))

	set, err := svc.GetEntitySuggestions(ctx, "entity-a", DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, set.Groups)
	assert.Equal(t, 1, set.DismissedCount)

	require.NoError(t, svc.Undismiss(ctx, "entity-a", "item-b1"))
	// Removing an absent dismissal is also a no-op.
	require.NoError(t, svc.Undismiss(ctx, "entity-a", "item-b1"))

	set, err = svc.GetEntitySuggestions(ctx, "entity-a", DefaultOptions())
	require.NoError(t, err)
	require.Len(t, set.Groups, 1)
	assert.Zero(t, set.DismissedCount)
}

func TestOrphanSuggestionsEntityCandidatesOnly(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemoryStore()
	seedOrphan(t, store, "orphan-a")
	seedOrphan(t, store, "orphan-b")
	seedEntity(t, store, "entity-c")
	seedItem(t, store, "item-o1", "orphan-a", models.OwnerKindOrphan, models.ItemTypeEmail, "jane@example.com")
	seedItem(t, store, "item-o2", "orphan-b", models.OwnerKindOrphan, models.ItemTypeEmail, "jane@example.com")
	seedItem(t, store, "item-c1", "entity-c", models.OwnerKindEntity, models.ItemTypeEmail, "jane@example.com")

	svc := newTestService(store)

	set, err := svc.GetOrphanSuggestions(ctx, "orphan-a", DefaultOptions())
	require.NoError(t, err)
	require.Len(t, set.Groups, 1)
	require.Len(t, set.Groups[0].Suggestions, 1)
	assert.Equal(t, "item-c1", set.Groups[0].Suggestions[0].Match.DataItemID)
}

func TestSuggestionsGroupOrdering(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemoryStore()
	seedEntity(t, store, "entity-a")
	seedEntity(t, store, "entity-b")
	// HIGH: exact normalized match. MEDIUM: token-set overlap of 4/5.
	seedItem(t, store, "item-a1", "entity-a", models.OwnerKindEntity, models.ItemTypeEmail, "john@example.com")
	seedItem(t, store, "item-a2", "entity-a", models.OwnerKindEntity, models.ItemTypeAddress, "123 Main Street #4B")
	seedItem(t, store, "item-b1", "entity-b", models.OwnerKindEntity, models.ItemTypeEmail, "john@example.com")
	seedItem(t, store, "item-b2", "entity-b", models.OwnerKindEntity, models.ItemTypeAddress, "123 Main St, Apt 4B")

	svc := newTestService(store)

	set, err := svc.GetEntitySuggestions(ctx, "entity-a", DefaultOptions())
	require.NoError(t, err)
	require.Len(t, set.Groups, 2)
	assert.Equal(t, models.ConfidenceTierHigh, set.Groups[0].Tier)
	assert.Equal(t, models.ConfidenceTierMedium, set.Groups[1].Tier)
}

func TestDismissUnknownOwner(t *testing.T) {
	store := graph.NewMemoryStore()
	seedEntity(t, store, "entity-a")
	seedItem(t, store, "item-1", "entity-a", models.OwnerKindEntity, models.ItemTypeEmail, "a@b.com")

	svc := newTestService(store)

	err := svc.Dismiss(context.Background(), "missing", "item-1", "")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))

	err = svc.Dismiss(context.Background(), "entity-a", "missing-item", "")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
}
