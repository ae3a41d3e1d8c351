package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/tendril/pkg/models"
)

func TestEmail(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		warning  bool
	}{
		{name: "lowercases and trims", input: "John@Example.com ", expected: "john@example.com"},
		{name: "already canonical", input: "john@example.com", expected: "john@example.com"},
		{name: "missing at sign warns", input: "not-an-email", expected: "not-an-email", warning: true},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Normalize(tt.input, models.ItemTypeEmail, Options{})
			assert.Equal(t, tt.expected, res.Value)
			if tt.warning {
				assert.NotEmpty(t, res.Warning)
			} else {
				assert.Empty(t, res.Warning)
			}
		})
	}
}

func TestPhone(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		region   string
		expected string
		warning  bool
	}{
		{name: "international passthrough", input: "+1 (555) 123-4567", region: "US", expected: "15551234567"},
		{name: "national US gets country code", input: "555-123-4567", region: "US", expected: "15551234567"},
		{name: "US number already prefixed", input: "1-555-123-4567", region: "US", expected: "15551234567"},
		{name: "GB trunk zero stripped", input: "020 7946 0958", region: "GB", expected: "442079460958"},
		{name: "unknown region keeps digits", input: "555 1234", region: "ZZ", expected: "5551234"},
		{name: "no digits warns", input: "call me", region: "US", expected: "call me", warning: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Normalize(tt.input, models.ItemTypePhone, Options{DefaultRegion: tt.region})
			assert.Equal(t, tt.expected, res.Value)
			if tt.warning {
				assert.NotEmpty(t, res.Warning)
			}
		})
	}
}

func TestAddress(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "expands abbreviations", input: "123 Main St, Apt 4B", expected: "123 main street apartment 4b"},
		{name: "strips punctuation", input: "123 Main Street #4B", expected: "123 main street 4b"},
		{name: "directionals", input: "456 N Oak Ave", expected: "456 north oak avenue"},
		{name: "full words untouched", input: "123 main street apartment 4b", expected: "123 main street apartment 4b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Normalize(tt.input, models.ItemTypeAddress, Options{})
			assert.Equal(t, tt.expected, res.Value)
		})
	}
}

func TestName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "strips diacritics", input: "José García", expected: "jose garcia"},
		{name: "plain ascii", input: "Jose Garcia", expected: "jose garcia"},
		{name: "collapses whitespace and punctuation", input: "  O'Brien,   Conor ", expected: "o brien conor"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Normalize(tt.input, models.ItemTypeName, Options{})
			assert.Equal(t, tt.expected, res.Value)
		})
	}
}

func TestDiacriticNamesNormalizeIdentically(t *testing.T) {
	a := Value("José García", models.ItemTypeName, Options{})
	b := Value("Jose Garcia", models.ItemTypeName, Options{})
	assert.Equal(t, a, b)
}

func TestHashVerbatim(t *testing.T) {
	res := Normalize("  AbC123==  ", models.ItemTypeHash, Options{})
	assert.Equal(t, "  AbC123==  ", res.Value)
}

func TestUnknownTypeFallsBack(t *testing.T) {
	res := Normalize("  Some Value ", models.ItemType("mystery"), Options{})
	assert.Equal(t, "some value", res.Value)
	assert.NotEmpty(t, res.Warning)
}

func TestNormalizeIdempotent(t *testing.T) {
	opts := Options{DefaultRegion: "US"}
	inputs := map[models.ItemType][]string{
		models.ItemTypeEmail:      {"John@Example.com ", "weird value", ""},
		models.ItemTypePhone:      {"+1 (555) 123-4567", "555-123-4567", "no digits here", "020 7946 0958"},
		models.ItemTypeAddress:    {"123 Main St, Apt 4B", "456 N Oak Ave", "#4B"},
		models.ItemTypeName:       {"José García", "  O'Brien,   Conor ", "MARY-ANNE"},
		models.ItemTypeHash:       {"AbC123==", ""},
		models.ItemTypeURL:        {"HTTPS://Example.COM/Path "},
		models.ItemTypeIdentifier: {"  AB  1234 "},
		models.ItemTypeOther:      {" Anything Goes "},
	}

	for itemType, values := range inputs {
		for _, raw := range values {
			once := Value(raw, itemType, opts)
			twice := Value(once, itemType, opts)
			assert.Equal(t, once, twice, "type %s input %q", itemType, raw)
		}
	}
}
