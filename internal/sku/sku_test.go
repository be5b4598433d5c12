package sku

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDerive(t *testing.T) {
	testCases := []struct {
		name     string
		id       Identity
		values   []AttributeValue
		expected string
	}{
		{
			name:     "name prefix with attribute tokens",
			id:       Identity{Name: "Premium Hair Shampoo"},
			values:   []AttributeValue{{"Color", "Golden"}, {"Size", "500ml"}},
			expected: "PREM-GOLD-500ML",
		},
		{
			name:     "empty identity and no values",
			id:       Identity{},
			expected: "PRD-VAR",
		},
		{
			name:     "product code prefix and numeric value kept verbatim",
			id:       Identity{Code: "BEA-SHP001"},
			values:   []AttributeValue{{"Weight", "520"}},
			expected: "BEA-520",
		},
		{
			name:     "long numeric value is not truncated",
			id:       Identity{Code: "BEA"},
			values:   []AttributeValue{{"Batch", "1234567890"}},
			expected: "BEA-1234567890",
		},
		{
			name:     "blank values are skipped",
			id:       Identity{Name: "Shampoo"},
			values:   []AttributeValue{{"Color", "   "}, {"Size", "Large"}},
			expected: "SHAM-LARG",
		},
		{
			name:     "values with only punctuation fall back to VAR",
			id:       Identity{Name: "Shampoo"},
			values:   []AttributeValue{{"Color", "!!!"}},
			expected: "SHAM-VAR",
		},
		{
			name:     "short first word falls back to full name",
			id:       Identity{Name: "A Bag"},
			values:   []AttributeValue{{"Color", "red"}},
			expected: "ABA-RED",
		},
		{
			name:     "punctuation in name is stripped",
			id:       Identity{Name: "L'Oreal Paris"},
			expected: "LORE-VAR",
		},
		{
			name:     "non-ascii letters are dropped",
			id:       Identity{Name: "Crème Brûlée"},
			values:   []AttributeValue{{"Flavor", "Café"}},
			expected: "CRME-CAF",
		},
		{
			name:     "order of values is preserved",
			id:       Identity{Name: "Tee"},
			values:   []AttributeValue{{"Size", "XL"}, {"Color", "Navy"}},
			expected: "TEE-XL-NAVY",
		},
		{
			name:     "code with leading separator falls back to the name",
			id:       Identity{Name: "Soap Bar", Code: "-001"},
			expected: "SOAP-VAR",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Derive(tc.id, tc.values))
		})
	}
}

func TestDeriveFromName(t *testing.T) {
	testCases := []struct {
		name     string
		id       Identity
		variant  string
		desc     Descriptor
		expected string
	}{
		{
			name:     "words only",
			id:       Identity{Name: "Premium Hair Shampoo"},
			variant:  "Extra Volume Formula",
			expected: "PREM-EXTR-VOLU-FO",
		},
		{
			name:     "color and size",
			id:       Identity{Code: "BEA-SHP001"},
			variant:  "Classic",
			desc:     Descriptor{Color: "Golden", Size: "500", SizeUnit: "ml"},
			expected: "BEA-CLAS-GOLD-500ML",
		},
		{
			name:     "color equal to name is skipped",
			id:       Identity{Name: "Tee"},
			variant:  "Red",
			desc:     Descriptor{Color: " red "},
			expected: "TEE-RED",
		},
		{
			name:     "single character words are dropped",
			id:       Identity{Name: "Tee"},
			variant:  "A big one",
			expected: "TEE-BIG-ONE",
		},
		{
			name:     "unusable name falls back to raw name",
			id:       Identity{Name: "Tee"},
			variant:  "X 1",
			expected: "TEE-X1",
		},
		{
			name:     "empty name falls back to VAR",
			id:       Identity{},
			variant:  "",
			expected: "PRD-VAR",
		},
		{
			name:     "size token is capped",
			id:       Identity{Name: "Tee"},
			variant:  "Bulk",
			desc:     Descriptor{Size: "1234.5", SizeUnit: "litres"},
			expected: "TEE-BULK-12345LIT",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, DeriveFromName(tc.id, tc.variant, tc.desc))
		})
	}
}

func TestDeriveProperties(t *testing.T) {
	long := strings.Repeat("Supercalifragilistic ", 20)
	inputs := []struct {
		id     Identity
		values []AttributeValue
	}{
		{Identity{}, nil},
		{Identity{Name: "   "}, []AttributeValue{{"a", ""}}},
		{Identity{Code: strings.Repeat("X", 80)}, []AttributeValue{{"a", "b"}}},
		{Identity{Name: long}, []AttributeValue{{"n", strings.Repeat("9", 70)}}},
		{Identity{Name: "Tee"}, []AttributeValue{{"a", long}, {"b", long}, {"c", long}}},
	}

	for _, in := range inputs {
		first := Derive(in.id, in.values)
		second := Derive(in.id, in.values)

		assert.Equal(t, first, second, "derivation must be deterministic")
		assert.NotEmpty(t, first)
		assert.LessOrEqual(t, len([]rune(first)), MaxLength)

		byName := DeriveFromName(in.id, long, Descriptor{Color: long, Size: long, SizeUnit: long})
		assert.NotEmpty(t, byName)
		assert.LessOrEqual(t, len([]rune(byName)), MaxLength)
	}
}

func TestPrefix(t *testing.T) {
	assert.Equal(t, "PRD", Prefix(Identity{}))
	assert.Equal(t, "PRD", Prefix(Identity{Name: "!!"}))
	assert.Equal(t, "GO", Prefix(Identity{Name: "Go"}))
	assert.Equal(t, "bea", Prefix(Identity{Name: "Ignored", Code: "bea-1"}))
}
