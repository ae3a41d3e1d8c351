// Package suggestions computes on-demand link suggestions for entities
// and orphan records. Nothing here is cached or precomputed: every call
// reflects the current store, which is what investigators expect.
package suggestions

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/tendril/pkg/events"
	"github.com/Ramsey-B/tendril/pkg/graph"
	"github.com/Ramsey-B/tendril/pkg/matching"
	"github.com/Ramsey-B/tendril/pkg/models"
	"github.com/Ramsey-B/tendril/pkg/tracing"
)

// Options tune a suggestion computation.
type Options struct {
	IncludePartial bool
	MinConfidence  float64
}

// DefaultOptions returns the default suggestion options.
func DefaultOptions() Options {
	return Options{
		IncludePartial: true,
		MinConfidence:  0.5,
	}
}

// Service computes suggestion sets and tracks dismissals.
type Service struct {
	logger  ectologger.Logger
	store   graph.Store
	engine  *matching.Engine
	emitter *events.Emitter
}

// NewService creates a new suggestion service. The emitter may be nil.
func NewService(logger ectologger.Logger, store graph.Store, engine *matching.Engine, emitter *events.Emitter) *Service {
	return &Service{
		logger:  logger,
		store:   store,
		engine:  engine,
		emitter: emitter,
	}
}

// GetEntitySuggestions computes suggestions for every data item owned by
// the entity, filters dismissed candidates, and groups the rest by
// confidence tier (HIGH, then MEDIUM, then LOW).
func (s *Service) GetEntitySuggestions(ctx context.Context, entityID string, opts Options) (*models.SuggestionSet, error) {
	ctx, span := tracing.StartSpan(ctx, "suggestions.Service.GetEntitySuggestions")
	defer span.End()

	entity, err := s.store.GetEntity(ctx, entityID)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "entity %s not found", entityID)
	}

	return s.computeSuggestions(ctx, entityID, opts, false)
}

// GetOrphanSuggestions is the mirror of GetEntitySuggestions for an
// orphan record, restricted to entity-owned candidates (orphans never
// suggest against other orphans).
func (s *Service) GetOrphanSuggestions(ctx context.Context, orphanID string, opts Options) (*models.SuggestionSet, error) {
	ctx, span := tracing.StartSpan(ctx, "suggestions.Service.GetOrphanSuggestions")
	defer span.End()

	orphan, err := s.store.GetOrphan(ctx, orphanID)
	if err != nil {
		return nil, err
	}
	if orphan == nil {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "orphan %s not found", orphanID)
	}

	return s.computeSuggestions(ctx, orphanID, opts, true)
}

func (s *Service) computeSuggestions(ctx context.Context, ownerID string, opts Options, entityCandidatesOnly bool) (*models.SuggestionSet, error) {
	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"owner_id": ownerID,
	})

	items, err := s.store.ListDataItemsByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	dismissals, err := s.store.ListDismissals(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	dismissed := make(map[string]bool, len(dismissals))
	for _, d := range dismissals {
		dismissed[d.DataItemID] = true
	}

	set := &models.SuggestionSet{OwnerID: ownerID}
	exclude := matching.Exclusion{OwnerID: ownerID}
	byTier := map[models.ConfidenceTier][]models.Suggestion{}

	for _, item := range items {
		// Binary items match on their content hash, everything else on
		// the raw value.
		value := item.RawValue
		if item.ContentHash != "" {
			value = item.ContentHash
		}

		matches, err := s.engine.FindAllMatches(ctx, value, item.Type, opts.IncludePartial, exclude)
		if err != nil {
			// One bad item must not abort the whole set.
			log.WithError(err).WithField("data_item_id", item.ID).Warn("Skipping data item in suggestion computation")
			set.SkippedItems++
			continue
		}

		for _, m := range matches {
			if dismissed[m.DataItemID] {
				set.DismissedCount++
				continue
			}
			if entityCandidatesOnly && m.OwnerKind != models.OwnerKindEntity {
				continue
			}
			if m.Confidence < opts.MinConfidence {
				continue
			}
			tier, ok := models.TierForConfidence(m.Confidence)
			if !ok {
				continue
			}
			byTier[tier] = append(byTier[tier], models.Suggestion{
				SourceItemID: item.ID,
				Match:        m,
			})
		}
	}

	for _, tier := range []models.ConfidenceTier{models.ConfidenceTierHigh, models.ConfidenceTierMedium, models.ConfidenceTierLow} {
		group, ok := byTier[tier]
		if !ok {
			continue
		}
		sort.Slice(group, func(i, j int) bool {
			if group[i].Match.Confidence != group[j].Match.Confidence {
				return group[i].Match.Confidence > group[j].Match.Confidence
			}
			if group[i].Match.DataItemID != group[j].Match.DataItemID {
				return group[i].Match.DataItemID < group[j].Match.DataItemID
			}
			return group[i].SourceItemID < group[j].SourceItemID
		})
		set.Groups = append(set.Groups, models.ConfidenceGroup{
			Tier:        tier,
			Suggestions: group,
		})
	}

	log.WithFields(map[string]any{
		"group_count":     len(set.Groups),
		"dismissed_count": set.DismissedCount,
		"skipped_items":   set.SkippedItems,
	}).Debug("Computed suggestions")

	return set, nil
}

// Dismiss records that the owner should no longer see the candidate item.
// Re-dismissing is a no-op, not an error.
func (s *Service) Dismiss(ctx context.Context, ownerID string, dataItemID string, reason string) error {
	ctx, span := tracing.StartSpan(ctx, "suggestions.Service.Dismiss")
	defer span.End()

	if err := s.checkOwnerExists(ctx, ownerID); err != nil {
		return err
	}

	item, err := s.store.GetDataItem(ctx, dataItemID)
	if err != nil {
		return err
	}
	if item == nil {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "data item %s not found", dataItemID)
	}

	if err := s.store.CreateDismissal(ctx, &models.DismissedSuggestion{
		OwnerID:    ownerID,
		DataItemID: dataItemID,
		Reason:     reason,
		CreatedAt:  time.Now().UTC(),
	}); err != nil {
		return err
	}

	if err := s.emitter.EmitSuggestionDismissed(ctx, ownerID, dataItemID); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Dismissal event not delivered")
	}
	return nil
}

// Undismiss removes a dismissal so the candidate can reappear. Removing an
// absent dismissal is a no-op.
func (s *Service) Undismiss(ctx context.Context, ownerID string, dataItemID string) error {
	ctx, span := tracing.StartSpan(ctx, "suggestions.Service.Undismiss")
	defer span.End()

	if err := s.checkOwnerExists(ctx, ownerID); err != nil {
		return err
	}

	return s.store.RemoveDismissal(ctx, ownerID, dataItemID)
}

func (s *Service) checkOwnerExists(ctx context.Context, ownerID string) error {
	entity, err := s.store.GetEntity(ctx, ownerID)
	if err != nil {
		return err
	}
	if entity != nil {
		return nil
	}

	orphan, err := s.store.GetOrphan(ctx, ownerID)
	if err != nil {
		return err
	}
	if orphan != nil {
		return nil
	}

	return httperror.NewHTTPErrorf(http.StatusNotFound, "owner %s not found", ownerID)
}
