// Package normalize maps raw data item values to comparable canonical
// forms. Normalization is deterministic and total: unparseable input
// degrades to a trimmed/lowercased fallback plus a warning, never an error.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/Ramsey-B/tendril/pkg/models"
)

// Result carries the canonical value plus a non-fatal warning when the
// input could only be normalized best-effort.
type Result struct {
	Value   string
	Warning string
}

// Options tune type-specific normalization.
type Options struct {
	// DefaultRegion is the region hint used to canonicalize phone numbers
	// without an explicit country code (e.g. "US", "GB").
	DefaultRegion string
}

type typeNormalizer func(raw string, opts Options) Result

var registry = map[models.ItemType]typeNormalizer{
	models.ItemTypeEmail:      Email,
	models.ItemTypePhone:      Phone,
	models.ItemTypeAddress:    Address,
	models.ItemTypeName:       Name,
	models.ItemTypeHash:       Hash,
	models.ItemTypeURL:        URL,
	models.ItemTypeIdentifier: Identifier,
	models.ItemTypeOther:      Fallback,
}

// Normalize applies the type-specific normalizer for t. Unknown types use
// the fallback with a warning.
func Normalize(raw string, t models.ItemType, opts Options) Result {
	fn, ok := registry[t]
	if !ok {
		res := Fallback(raw, opts)
		res.Warning = "unknown item type, used fallback normalization"
		return res
	}
	return fn(raw, opts)
}

// Value is a convenience wrapper returning only the canonical value.
func Value(raw string, t models.ItemType, opts Options) string {
	return Normalize(raw, t, opts).Value
}

// Email lowercases and trims an email address.
func Email(raw string, _ Options) Result {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value != "" && !strings.Contains(value, "@") {
		return Result{Value: value, Warning: "value does not look like an email address"}
	}
	return Result{Value: value}
}

// dialCodes maps region hints to country calling codes.
var dialCodes = map[string]string{
	"US": "1",
	"CA": "1",
	"GB": "44",
	"DE": "49",
	"FR": "33",
	"ES": "34",
	"AU": "61",
}

// Phone reduces a phone number to digits and prefixes the region's country
// code when the national form is recognizable. Input that already carries
// a leading + is trusted as internationally formatted.
func Phone(raw string, opts Options) Result {
	trimmed := strings.TrimSpace(raw)
	digits := digitsOnly(trimmed)
	if digits == "" {
		res := Fallback(raw, opts)
		res.Warning = "no digits found in phone value"
		return res
	}

	if strings.HasPrefix(trimmed, "+") {
		return Result{Value: digits}
	}

	cc, ok := dialCodes[strings.ToUpper(opts.DefaultRegion)]
	if !ok {
		return Result{Value: digits}
	}

	if cc == "1" {
		// NANP national numbers are exactly ten digits
		if len(digits) == 10 {
			digits = cc + digits
		}
		return Result{Value: digits}
	}

	if !strings.HasPrefix(digits, cc) {
		// Drop the trunk prefix before adding the country code
		digits = cc + strings.TrimPrefix(digits, "0")
	}
	return Result{Value: digits}
}

// addressExpansions maps common street-address abbreviations to their full
// words. Full words are not keys, which keeps expansion idempotent.
var addressExpansions = map[string]string{
	"st":   "street",
	"ave":  "avenue",
	"blvd": "boulevard",
	"dr":   "drive",
	"rd":   "road",
	"ln":   "lane",
	"ct":   "court",
	"cir":  "circle",
	"pl":   "place",
	"hwy":  "highway",
	"apt":  "apartment",
	"ste":  "suite",
	"fl":   "floor",
	"n":    "north",
	"s":    "south",
	"e":    "east",
	"w":    "west",
}

// Address lowercases, strips punctuation, and expands common
// abbreviations (st -> street, apt -> apartment).
func Address(raw string, _ Options) Result {
	lowered := strings.ToLower(raw)

	var b strings.Builder
	for _, r := range lowered {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	tokens := strings.Fields(b.String())
	for i, tok := range tokens {
		if full, ok := addressExpansions[tok]; ok {
			tokens[i] = full
		}
	}
	return Result{Value: strings.Join(tokens, " ")}
}

// Name decomposes Unicode, strips diacritics and punctuation, lowercases,
// and collapses whitespace, so "José García" and "Jose Garcia" compare equal.
func Name(raw string, _ Options) Result {
	decomposed := norm.NFD.String(raw)

	var b strings.Builder
	prevSpace := true
	for _, r := range decomposed {
		switch {
		case unicode.Is(unicode.Mn, r):
			// combining mark, dropped
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
			prevSpace = false
		case !prevSpace:
			b.WriteRune(' ')
			prevSpace = true
		}
	}
	return Result{Value: strings.TrimSpace(b.String())}
}

// Hash passes hash values through verbatim; they are already canonical.
func Hash(raw string, _ Options) Result {
	return Result{Value: raw}
}

// URL trims and lowercases a URL.
func URL(raw string, _ Options) Result {
	return Result{Value: strings.ToLower(strings.TrimSpace(raw))}
}

// Identifier trims, lowercases, and collapses inner whitespace.
func Identifier(raw string, _ Options) Result {
	return Result{Value: strings.Join(strings.Fields(strings.ToLower(raw)), " ")}
}

// Fallback is the best-effort normalization for untyped values: trim and
// lowercase.
func Fallback(raw string, _ Options) Result {
	return Result{Value: strings.ToLower(strings.TrimSpace(raw))}
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
