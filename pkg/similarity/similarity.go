// Package similarity provides string similarity scoring for fuzzy
// matching. Every algorithm is symmetric and reflexive, returning a score
// in [0, 1].
package similarity

import (
	"strings"
)

// Strategy names a similarity algorithm.
type Strategy string

const (
	StrategyJaroWinkler Strategy = "jaro_winkler"
	StrategyLevenshtein Strategy = "levenshtein"
	StrategyTokenSet    Strategy = "token_set"
)

// strategyByType is the fixed lookup from field type to algorithm:
// names reward shared prefixes, addresses compare order-insensitively,
// everything else uses plain edit distance.
var strategyByType = map[string]Strategy{
	"name":    StrategyJaroWinkler,
	"address": StrategyTokenSet,
}

// StrategyForType selects the similarity algorithm for a field type.
func StrategyForType(fieldType string) Strategy {
	if s, ok := strategyByType[fieldType]; ok {
		return s
	}
	return StrategyLevenshtein
}

// Scorer provides the similarity algorithms.
type Scorer struct{}

// NewScorer creates a new Scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score dispatches to the named strategy. Unknown strategies fall back to
// Levenshtein.
func (s *Scorer) Score(strategy Strategy, a, b string) float64 {
	switch strategy {
	case StrategyJaroWinkler:
		return s.JaroWinkler(a, b)
	case StrategyTokenSet:
		return s.TokenSet(a, b)
	default:
		return s.Levenshtein(a, b)
	}
}

// JaroWinkler calculates Jaro similarity boosted for a shared prefix of up
// to four characters, which suits person names.
func (s *Scorer) JaroWinkler(a, b string) float64 {
	if a == b {
		return 1.0
	}

	jaro := s.Jaro(a, b)

	ra, rb := []rune(a), []rune(b)
	prefixLen := 0
	maxPrefix := 4
	for i := 0; i < len(ra) && i < len(rb) && i < maxPrefix; i++ {
		if ra[i] != rb[i] {
			break
		}
		prefixLen++
	}

	// Winkler scaling factor
	const scalingFactor = 0.1
	return jaro + float64(prefixLen)*scalingFactor*(1.0-jaro)
}

// Jaro calculates the Jaro similarity between two strings.
func (s *Scorer) Jaro(a, b string) float64 {
	if a == b {
		return 1.0
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0.0
	}

	matchDist := max(len(ra), len(rb))/2 - 1
	if matchDist < 0 {
		matchDist = 0
	}

	aMatches := make([]bool, len(ra))
	bMatches := make([]bool, len(rb))

	matches := 0
	for i := 0; i < len(ra); i++ {
		start := max(0, i-matchDist)
		end := min(len(rb), i+matchDist+1)

		for j := start; j < end; j++ {
			if bMatches[j] || ra[i] != rb[j] {
				continue
			}
			aMatches[i] = true
			bMatches[j] = true
			matches++
			break
		}
	}

	if matches == 0 {
		return 0.0
	}

	transpositions := 0
	k := 0
	for i := 0; i < len(ra); i++ {
		if !aMatches[i] {
			continue
		}
		for !bMatches[k] {
			k++
		}
		if ra[i] != rb[k] {
			transpositions++
		}
		k++
	}

	m := float64(matches)
	t := float64(transpositions) / 2

	return (m/float64(len(ra)) + m/float64(len(rb)) + (m-t)/m) / 3
}

// Levenshtein returns edit distance scaled to a [0, 1] similarity.
func (s *Scorer) Levenshtein(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	maxLen := max(len(ra), len(rb))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(s.LevenshteinDistance(a, b))/float64(maxLen)
}

// LevenshteinDistance calculates the edit distance between two strings.
func (s *Scorer) LevenshteinDistance(a, b string) int {
	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	row := make([]int, len(rb)+1)
	prevRow := make([]int, len(rb)+1)

	for j := 0; j <= len(rb); j++ {
		prevRow[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		row[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 0
			if ra[i-1] != rb[j-1] {
				cost = 1
			}
			row[j] = min(min(row[j-1]+1, prevRow[j]+1), prevRow[j-1]+cost)
		}
		row, prevRow = prevRow, row
	}

	return prevRow[len(rb)]
}

// TokenSet compares whitespace-delimited token sets, ignoring order and
// repetition. Good for addresses, where "123 main street apartment 4b" and
// "123 main street 4b" should score high without being equal.
func (s *Scorer) TokenSet(a, b string) float64 {
	if a == b {
		return 1.0
	}

	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return s.Levenshtein(a, b)
	}

	intersection := 0
	for tok := range setA {
		if setB[tok] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection

	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(s) {
		set[tok] = true
	}
	return set
}
