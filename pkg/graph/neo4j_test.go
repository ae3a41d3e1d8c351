package graph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeLabel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "clean label untouched", input: "Entity", expected: "Entity"},
		{name: "underscore kept", input: "Data_Item", expected: "Data_Item"},
		{name: "injection stripped", input: "Entity) DETACH DELETE (n", expected: "EntityDETACHDELETEn"},
		{name: "punctuation stripped", input: "Orphan;`{}", expected: "Orphan"},
		{name: "empty falls back", input: "", expected: "Entity"},
		{name: "only punctuation falls back", input: "---", expected: "Entity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeLabel(tt.input))
		})
	}
}

func TestTimeRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	assert.Equal(t, now, parseTime(formatTime(now)))

	assert.True(t, parseTime(nil).IsZero())
	assert.True(t, parseTime("not a timestamp").IsZero())
}
