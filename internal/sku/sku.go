// Package sku derives short, human-readable variant codes from a product's
// identity and the attributes that distinguish a variant.
//
// Both derivation modes are pure: the same inputs always produce the same
// code, and only ASCII letters and digits survive normalization.
package sku

import (
	"strings"
)

const (
	// MaxLength is the hard cap on a derived code, in characters.
	MaxLength = 50

	separator        = "-"
	fallbackPrefix   = "PRD"
	fallbackToken    = "VAR"
	prefixLength     = 4
	minPrefixLength  = 3
	tokenLength      = 4
	nameWords        = 3
	nameCodeLength   = 12
	nameFallbackSize = 6
	sizeTokenLength  = 8
)

// Identity is the part of a product that feeds the code prefix.
// Code is optional; an empty Code means the product has none.
type Identity struct {
	Name string
	Code string
}

// AttributeValue is one (attribute name, value) pair, in definition order.
type AttributeValue struct {
	Name  string
	Value string
}

// Descriptor carries the optional color and size of an ad-hoc variant.
// Empty fields are treated as absent.
type Descriptor struct {
	Color    string
	Size     string
	SizeUnit string
}

// Derive builds a code from the product identity and the ordered attribute
// values of a variant, e.g. "PREM-GOLD-500ML".
func Derive(id Identity, values []AttributeValue) string {
	parts := []string{Prefix(id)}
	for _, av := range values {
		if token := valueToken(av.Value); token != "" {
			parts = append(parts, token)
		}
	}
	if len(parts) == 1 {
		parts = append(parts, fallbackToken)
	}
	return truncate(strings.Join(parts, separator), MaxLength)
}

// DeriveFromName builds a code for a variant that is described by a free-form
// name plus an optional color and size instead of attribute values.
func DeriveFromName(id Identity, name string, d Descriptor) string {
	parts := []string{Prefix(id), nameCode(name)}

	if color := strings.TrimSpace(d.Color); color != "" &&
		strings.ToLower(color) != strings.ToLower(strings.TrimSpace(name)) {
		if token := clean(truncate(color, tokenLength)); token != "" {
			parts = append(parts, token)
		}
	}

	if size := strings.TrimSpace(d.Size); size != "" {
		raw := size + strings.ToUpper(strings.TrimSpace(d.SizeUnit))
		if token := truncate(clean(raw), sizeTokenLength); token != "" {
			parts = append(parts, token)
		}
	}

	return truncate(strings.Join(parts, separator), MaxLength)
}

// Prefix returns the base prefix shared by both derivation modes. A product
// code wins over the name; it contributes everything before its first "-".
func Prefix(id Identity) string {
	if code := strings.TrimSpace(id.Code); code != "" {
		head, _, _ := strings.Cut(code, separator)
		if head != "" {
			return head
		}
	}

	name := strings.TrimSpace(id.Name)
	if name == "" {
		return fallbackPrefix
	}

	prefix := truncate(clean(strings.Fields(name)[0]), prefixLength)
	if len(prefix) >= minPrefixLength {
		return prefix
	}
	if whole := truncate(clean(name), minPrefixLength); whole != "" {
		return whole
	}
	if prefix != "" {
		return prefix
	}
	return fallbackPrefix
}

func valueToken(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if isDigits(value) {
		return value
	}
	// Measurements such as "500ml" keep their unit.
	if value[0] >= '0' && value[0] <= '9' {
		return truncate(clean(value), sizeTokenLength)
	}
	return truncate(clean(value), tokenLength)
}

func nameCode(name string) string {
	var codes []string
	words := 0
	for _, word := range strings.Fields(name) {
		if len([]rune(word)) <= 1 {
			continue
		}
		if c := clean(truncate(word, tokenLength)); c != "" {
			codes = append(codes, c)
		}
		if words++; words == nameWords {
			break
		}
	}

	code := truncate(strings.Join(codes, separator), nameCodeLength)
	if len(code) >= 2 {
		return code
	}
	if fallback := truncate(clean(name), nameFallbackSize); fallback != "" {
		return fallback
	}
	return fallbackToken
}

// clean upper-cases ASCII letters and drops everything that is not an ASCII
// letter or digit.
func clean(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		default:
			return -1
		}
	}, s)
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
