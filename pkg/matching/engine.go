// Package matching implements data item matching over the graph store:
// content-hash lookups, exact normalized-value lookups, and fuzzy partial
// matching with a similarity-to-confidence policy.
package matching

import (
	"context"
	"sort"
	"strings"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/tendril/pkg/graph"
	"github.com/Ramsey-B/tendril/pkg/models"
	"github.com/Ramsey-B/tendril/pkg/normalize"
	"github.com/Ramsey-B/tendril/pkg/similarity"
	"github.com/Ramsey-B/tendril/pkg/tracing"
)

// Engine finds match candidates for a value. All operations are read-only
// against the store.
type Engine struct {
	logger ectologger.Logger
	store  graph.Store
	scorer *similarity.Scorer
	config Config
}

// Config contains matching engine configuration. The similarity band
// boundaries are heuristic, so they stay configurable rather than
// hard-coded.
type Config struct {
	MinSimilarity      float64 // floor below which partial matches are discarded
	MidSimilarityBand  float64 // similarity at which confidence reaches 0.7
	HighSimilarityBand float64 // similarity at or above which confidence plateaus at 0.9
	ExactConfidence    float64 // confidence for exact normalized-value matches
	HashConfidence     float64 // confidence for content-hash matches
	MaxResults         int     // cap on combined results per query
	DefaultRegion      string  // region hint for phone normalization
}

// DefaultConfig returns default engine configuration.
func DefaultConfig() Config {
	return Config{
		MinSimilarity:      0.70,
		MidSimilarityBand:  0.80,
		HighSimilarityBand: 0.90,
		ExactConfidence:    0.95,
		HashConfidence:     1.0,
		MaxResults:         100,
		DefaultRegion:      "US",
	}
}

// Exclusion filters a query's own records out of its results. A candidate
// is dropped when it is the excluded item or belongs to the excluded owner.
type Exclusion struct {
	OwnerID string
	ItemID  string
}

func (x Exclusion) excludes(item *models.DataItem) bool {
	if x.ItemID != "" && item.ID == x.ItemID {
		return true
	}
	if x.OwnerID != "" && item.OwnerID == x.OwnerID {
		return true
	}
	return false
}

// NewEngine creates a new matching engine.
func NewEngine(logger ectologger.Logger, store graph.Store, config Config) *Engine {
	return &Engine{
		logger: logger,
		store:  store,
		scorer: similarity.NewScorer(),
		config: config,
	}
}

// FindExactHashMatches finds data items with an identical content hash.
// Confidence is fixed at the hash confidence (1.0 by default).
func (e *Engine) FindExactHashMatches(ctx context.Context, hash string, exclude Exclusion) ([]models.Match, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Engine.FindExactHashMatches")
	defer span.End()

	hash = strings.TrimSpace(hash)
	if hash == "" {
		return nil, nil
	}

	items, err := e.store.FindByHash(ctx, hash)
	if err != nil {
		return nil, err
	}

	var matches []models.Match
	for _, item := range items {
		if exclude.excludes(item) {
			continue
		}
		matches = append(matches, models.Match{
			DataItemID:   item.ID,
			OwnerID:      item.OwnerID,
			OwnerKind:    item.OwnerKind,
			ItemType:     item.Type,
			MatchType:    models.MatchTypeHash,
			Confidence:   e.config.HashConfidence,
			MatchedValue: item.RawValue,
		})
	}

	sortMatches(matches)
	return e.capMatches(matches), nil
}

// FindExactStringMatches normalizes the value and finds data items of the
// same type whose normalized value matches exactly. Confidence is fixed at
// the exact confidence (0.95 by default).
func (e *Engine) FindExactStringMatches(ctx context.Context, value string, fieldType models.ItemType, exclude Exclusion) ([]models.Match, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Engine.FindExactStringMatches")
	defer span.End()

	normalized := e.normalizeQuery(value, fieldType)
	if normalized == "" {
		return nil, nil
	}

	items, err := e.store.FindByNormalizedValue(ctx, fieldType, normalized)
	if err != nil {
		return nil, err
	}

	var matches []models.Match
	for _, item := range items {
		if exclude.excludes(item) {
			continue
		}
		matches = append(matches, models.Match{
			DataItemID:   item.ID,
			OwnerID:      item.OwnerID,
			OwnerKind:    item.OwnerKind,
			ItemType:     item.Type,
			MatchType:    models.MatchTypeExact,
			Confidence:   e.config.ExactConfidence,
			MatchedValue: item.RawValue,
		})
	}

	sortMatches(matches)
	return e.capMatches(matches), nil
}

// FindPartialMatches normalizes the value, scores every same-type
// candidate with the type's similarity strategy, and maps similarity to
// confidence. Candidates below minSimilarity are discarded; pass 0 to use
// the configured floor.
func (e *Engine) FindPartialMatches(ctx context.Context, value string, fieldType models.ItemType, minSimilarity float64, exclude Exclusion) ([]models.Match, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Engine.FindPartialMatches")
	defer span.End()

	normalized := e.normalizeQuery(value, fieldType)
	if normalized == "" {
		return nil, nil
	}

	if minSimilarity <= 0 {
		minSimilarity = e.config.MinSimilarity
	}

	candidates, err := e.store.ListDataItemsByType(ctx, fieldType)
	if err != nil {
		return nil, err
	}

	strategy := similarity.StrategyForType(string(fieldType))

	var matches []models.Match
	for _, item := range candidates {
		if exclude.excludes(item) || item.NormalizedValue == "" {
			continue
		}

		sim := e.scorer.Score(strategy, normalized, item.NormalizedValue)
		if sim < minSimilarity {
			continue
		}

		matches = append(matches, models.Match{
			DataItemID:   item.ID,
			OwnerID:      item.OwnerID,
			OwnerKind:    item.OwnerKind,
			ItemType:     item.Type,
			MatchType:    models.MatchTypePartial,
			Confidence:   e.confidenceForSimilarity(sim),
			Similarity:   sim,
			Strategy:     string(strategy),
			MatchedValue: item.RawValue,
		})
	}

	sortMatches(matches)
	return e.capMatches(matches), nil
}

// FindAllMatches runs hash, exact, and partial matching in that order,
// deduplicates by candidate id keeping the highest confidence, and caps
// the combined result.
func (e *Engine) FindAllMatches(ctx context.Context, value string, fieldType models.ItemType, includePartial bool, exclude Exclusion) ([]models.Match, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Engine.FindAllMatches")
	defer span.End()

	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"field_type":      fieldType,
		"include_partial": includePartial,
	})

	if strings.TrimSpace(value) == "" {
		return nil, nil
	}

	var combined []models.Match

	hashMatches, err := e.FindExactHashMatches(ctx, value, exclude)
	if err != nil {
		return nil, err
	}
	combined = append(combined, hashMatches...)

	exactMatches, err := e.FindExactStringMatches(ctx, value, fieldType, exclude)
	if err != nil {
		return nil, err
	}
	combined = append(combined, exactMatches...)

	if includePartial {
		partialMatches, err := e.FindPartialMatches(ctx, value, fieldType, 0, exclude)
		if err != nil {
			return nil, err
		}
		combined = append(combined, partialMatches...)
	}

	// Dedupe by candidate id, keeping the highest-confidence entry.
	best := make(map[string]models.Match, len(combined))
	for _, m := range combined {
		if existing, ok := best[m.DataItemID]; !ok || m.Confidence > existing.Confidence {
			best[m.DataItemID] = m
		}
	}

	matches := make([]models.Match, 0, len(best))
	for _, m := range best {
		matches = append(matches, m)
	}

	sortMatches(matches)
	matches = e.capMatches(matches)

	log.WithField("match_count", len(matches)).Debug("Found matches")
	return matches, nil
}

// confidenceForSimilarity maps a similarity score to a confidence via a
// piecewise-linear policy anchored at 0.5, 0.7, and 0.9, so exact matches
// always rank strictly above the best fuzzy matches.
func (e *Engine) confidenceForSimilarity(sim float64) float64 {
	cfg := e.config
	switch {
	case sim >= cfg.HighSimilarityBand:
		return 0.9
	case sim >= cfg.MidSimilarityBand:
		return 0.7 + (sim-cfg.MidSimilarityBand)*(0.2/(cfg.HighSimilarityBand-cfg.MidSimilarityBand))
	case sim >= cfg.MinSimilarity:
		return 0.5 + (sim-cfg.MinSimilarity)*(0.2/(cfg.MidSimilarityBand-cfg.MinSimilarity))
	default:
		return 0
	}
}

func (e *Engine) normalizeQuery(value string, fieldType models.ItemType) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	return normalize.Value(value, fieldType, normalize.Options{DefaultRegion: e.config.DefaultRegion})
}

// sortMatches orders descending by confidence with candidate id as the
// tie-break, so output is deterministic.
func sortMatches(matches []models.Match) {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Confidence != matches[j].Confidence {
			return matches[i].Confidence > matches[j].Confidence
		}
		return matches[i].DataItemID < matches[j].DataItemID
	})
}

func (e *Engine) capMatches(matches []models.Match) []models.Match {
	if e.config.MaxResults > 0 && len(matches) > e.config.MaxResults {
		return matches[:e.config.MaxResults]
	}
	return matches
}
