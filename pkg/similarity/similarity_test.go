package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrategyForType(t *testing.T) {
	assert.Equal(t, StrategyJaroWinkler, StrategyForType("name"))
	assert.Equal(t, StrategyTokenSet, StrategyForType("address"))
	assert.Equal(t, StrategyLevenshtein, StrategyForType("email"))
	assert.Equal(t, StrategyLevenshtein, StrategyForType("anything-else"))
}

func TestReflexiveAndSymmetric(t *testing.T) {
	scorer := NewScorer()
	strategies := []Strategy{StrategyJaroWinkler, StrategyLevenshtein, StrategyTokenSet}
	pairs := [][2]string{
		{"martha", "marhta"},
		{"john smith", "jon smith"},
		{"123 main street", "123 main st"},
		{"", "something"},
		{"unicode éàè", "unicode eae"},
	}

	for _, strategy := range strategies {
		for _, pair := range pairs {
			a, b := pair[0], pair[1]
			assert.InDelta(t, 1.0, scorer.Score(strategy, a, a), 1e-9, "%s reflexive on %q", strategy, a)
			assert.InDelta(t, scorer.Score(strategy, a, b), scorer.Score(strategy, b, a), 1e-9, "%s symmetric on %q/%q", strategy, a, b)
		}
	}
}

func TestJaro(t *testing.T) {
	scorer := NewScorer()

	assert.InDelta(t, 0.9444, scorer.Jaro("martha", "marhta"), 0.0001)
	assert.InDelta(t, 0.0, scorer.Jaro("abc", "xyz"), 1e-9)
	assert.InDelta(t, 0.0, scorer.Jaro("", "abc"), 1e-9)
}

func TestJaroWinklerBoostsSharedPrefix(t *testing.T) {
	scorer := NewScorer()

	jaro := scorer.Jaro("martha", "marhta")
	jw := scorer.JaroWinkler("martha", "marhta")
	assert.Greater(t, jw, jaro)
	assert.InDelta(t, 0.9611, jw, 0.0001)

	// No shared prefix means no boost.
	assert.InDelta(t, scorer.Jaro("arnab", "urnab"), scorer.JaroWinkler("arnab", "urnab"), 1e-9)
}

func TestLevenshtein(t *testing.T) {
	scorer := NewScorer()

	assert.Equal(t, 3, scorer.LevenshteinDistance("kitten", "sitting"))
	assert.Equal(t, 0, scorer.LevenshteinDistance("same", "same"))
	assert.Equal(t, 4, scorer.LevenshteinDistance("", "four"))

	assert.InDelta(t, 1.0-3.0/7.0, scorer.Levenshtein("kitten", "sitting"), 1e-9)
	assert.InDelta(t, 1.0, scorer.Levenshtein("", ""), 1e-9)
}

func TestTokenSet(t *testing.T) {
	scorer := NewScorer()

	tests := []struct {
		name     string
		a        string
		b        string
		expected float64
	}{
		{
			name:     "subset address scores four fifths",
			a:        "123 main street apartment 4b",
			b:        "123 main street 4b",
			expected: 0.8,
		},
		{
			name:     "word order ignored",
			a:        "main 123 street",
			b:        "123 main street",
			expected: 1.0,
		},
		{
			name:     "repeats collapse",
			a:        "main main street",
			b:        "main street",
			expected: 1.0,
		},
		{
			name:     "disjoint",
			a:        "alpha beta",
			b:        "gamma delta",
			expected: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, scorer.TokenSet(tt.a, tt.b), 1e-9)
		})
	}
}

func TestScoreDispatch(t *testing.T) {
	scorer := NewScorer()

	assert.InDelta(t, scorer.JaroWinkler("martha", "marhta"), scorer.Score(StrategyJaroWinkler, "martha", "marhta"), 1e-9)
	assert.InDelta(t, scorer.TokenSet("a b", "b a"), scorer.Score(StrategyTokenSet, "a b", "b a"), 1e-9)
	assert.InDelta(t, scorer.Levenshtein("abc", "abd"), scorer.Score("unknown", "abc", "abd"), 1e-9)
}
