package linking

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnionProfiles(t *testing.T) {
	tests := []struct {
		name     string
		kept     string
		dropped  string
		expected map[string]map[string]any
	}{
		{
			name:    "kept wins conflicting keys",
			kept:    `{"contact":{"city":"Austin","name":"Alice"}}`,
			dropped: `{"contact":{"city":"Boston","phone":"555"}}`,
			expected: map[string]map[string]any{
				"contact": {"city": "Austin", "name": "Alice", "phone": "555"},
			},
		},
		{
			name:    "disjoint sections union",
			kept:    `{"contact":{"email":"a@b.com"}}`,
			dropped: `{"employment":{"employer":"Acme"}}`,
			expected: map[string]map[string]any{
				"contact":    {"email": "a@b.com"},
				"employment": {"employer": "Acme"},
			},
		},
		{
			name:    "empty kept takes dropped",
			kept:    "",
			dropped: `{"contact":{"phone":"555"}}`,
			expected: map[string]map[string]any{
				"contact": {"phone": "555"},
			},
		},
		{
			name:    "malformed dropped ignored",
			kept:    `{"contact":{"email":"a@b.com"}}`,
			dropped: `{not json`,
			expected: map[string]map[string]any{
				"contact": {"email": "a@b.com"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merged := UnionProfiles(json.RawMessage(tt.kept), json.RawMessage(tt.dropped))
			require.NotNil(t, merged)

			var got map[string]map[string]any
			require.NoError(t, json.Unmarshal(merged, &got))
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestUnionProfilesBothEmpty(t *testing.T) {
	assert.Nil(t, UnionProfiles(nil, nil))
}
