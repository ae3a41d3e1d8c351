package models

import "time"

// MatchType says which matcher produced a match.
type MatchType string

const (
	MatchTypeHash    MatchType = "hash_exact"
	MatchTypeExact   MatchType = "string_exact"
	MatchTypePartial MatchType = "partial"
)

// Match is a single scored candidate produced by the matching engine.
type Match struct {
	DataItemID   string    `json:"data_item_id"`
	OwnerID      string    `json:"owner_id,omitempty"`
	OwnerKind    OwnerKind `json:"owner_kind"`
	ItemType     ItemType  `json:"item_type"`
	MatchType    MatchType `json:"match_type"`
	Confidence   float64   `json:"confidence"`
	Similarity   float64   `json:"similarity,omitempty"` // raw score for partial matches
	Strategy     string    `json:"strategy,omitempty"`
	MatchedValue string    `json:"matched_value"`
}

// ConfidenceTier bands a match's confidence for human triage.
type ConfidenceTier string

const (
	ConfidenceTierHigh   ConfidenceTier = "HIGH"   // >= 0.9
	ConfidenceTierMedium ConfidenceTier = "MEDIUM" // 0.7 - 0.89
	ConfidenceTierLow    ConfidenceTier = "LOW"    // 0.5 - 0.69
)

// TierForConfidence bands a confidence score. Scores below 0.5 have no
// tier and are discarded by the suggestion service.
func TierForConfidence(confidence float64) (ConfidenceTier, bool) {
	switch {
	case confidence >= 0.9:
		return ConfidenceTierHigh, true
	case confidence >= 0.7:
		return ConfidenceTierMedium, true
	case confidence >= 0.5:
		return ConfidenceTierLow, true
	default:
		return "", false
	}
}

// Suggestion pairs a source data item with a scored candidate. Suggestions
// are computed on demand and never persisted.
type Suggestion struct {
	SourceItemID string `json:"source_item_id"`
	Match        Match  `json:"match"`
}

// ConfidenceGroup is a tier bucket of suggestions.
type ConfidenceGroup struct {
	Tier        ConfidenceTier `json:"tier"`
	Suggestions []Suggestion   `json:"suggestions"`
}

// SuggestionSet is the result of a suggestion computation for one owner.
type SuggestionSet struct {
	OwnerID        string            `json:"owner_id"`
	Groups         []ConfidenceGroup `json:"groups"` // sorted HIGH -> MEDIUM -> LOW
	DismissedCount int               `json:"dismissed_count"`
	SkippedItems   int               `json:"skipped_items"` // items omitted due to per-item errors
}

// DismissedSuggestion is the persisted edge recording that an operator
// dismissed a candidate for an owner. It survives until explicitly undone.
type DismissedSuggestion struct {
	OwnerID    string    `json:"owner_id"`
	DataItemID string    `json:"data_item_id"`
	Reason     string    `json:"reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
