package wizard

import (
	"errors"
	"strings"

	"github.com/fekuna/omnipos-variant-service/internal/model"
	"github.com/fekuna/omnipos-variant-service/internal/sku"
)

var ErrUnknownAttribute = errors.New("unknown attribute")

// Selection tracks which attributes define a variant and the value chosen
// for each. Values are kept when an attribute is deselected, so selecting it
// again restores the previous value.
//
// A Selection is not safe for concurrent use; the Wizard guards its own.
type Selection struct {
	definitions []model.AttributeDefinition
	index       map[string]int
	selected    map[string]struct{}
	values      map[string]string
}

// NewSelection keeps definitions in the order given; that order drives code
// derivation and name synthesis.
func NewSelection(definitions []model.AttributeDefinition) *Selection {
	defs := make([]model.AttributeDefinition, len(definitions))
	copy(defs, definitions)

	index := make(map[string]int, len(defs))
	for i, d := range defs {
		index[d.ID] = i
	}
	return &Selection{
		definitions: defs,
		index:       index,
		selected:    map[string]struct{}{},
		values:      map[string]string{},
	}
}

func (s *Selection) Definitions() []model.AttributeDefinition {
	out := make([]model.AttributeDefinition, len(s.definitions))
	copy(out, s.definitions)
	return out
}

func (s *Selection) Select(id string) error {
	if _, ok := s.index[id]; !ok {
		return ErrUnknownAttribute
	}
	s.selected[id] = struct{}{}
	return nil
}

func (s *Selection) Deselect(id string) {
	delete(s.selected, id)
}

func (s *Selection) IsSelected(id string) bool {
	_, ok := s.selected[id]
	return ok
}

// SetValue stores value as-is, blank included.
func (s *Selection) SetValue(id, value string) error {
	if _, ok := s.index[id]; !ok {
		return ErrUnknownAttribute
	}
	s.values[id] = value
	return nil
}

func (s *Selection) Value(id string) string {
	return s.values[id]
}

// SelectedIDs returns the selected attribute ids in definition order.
func (s *Selection) SelectedIDs() []string {
	ids := make([]string, 0, len(s.selected))
	for _, d := range s.definitions {
		if s.IsSelected(d.ID) {
			ids = append(ids, d.ID)
		}
	}
	return ids
}

func (s *Selection) Values() map[string]string {
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// IsComplete reports whether at least one attribute is selected and every
// selected attribute has a non-blank value.
func (s *Selection) IsComplete() bool {
	return len(s.selected) > 0 && len(s.Missing()) == 0
}

// Missing lists the selected attributes whose value is blank.
func (s *Selection) Missing() []model.AttributeDefinition {
	var missing []model.AttributeDefinition
	for _, d := range s.definitions {
		if s.IsSelected(d.ID) && strings.TrimSpace(s.values[d.ID]) == "" {
			missing = append(missing, d)
		}
	}
	return missing
}

// OrderedValuesForCode returns the non-blank values of selected attributes,
// in definition order.
func (s *Selection) OrderedValuesForCode() []sku.AttributeValue {
	var out []sku.AttributeValue
	for _, d := range s.definitions {
		if !s.IsSelected(d.ID) {
			continue
		}
		value := strings.TrimSpace(s.values[d.ID])
		if value == "" {
			continue
		}
		out = append(out, sku.AttributeValue{Name: d.Name, Value: value})
	}
	return out
}

// SynthesizeName joins "Name: value" pairs of the selected attributes with
// " - ", e.g. "Color: Golden - Size: 500ml".
func (s *Selection) SynthesizeName() string {
	values := s.OrderedValuesForCode()
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = v.Name + ": " + v.Value
	}
	return strings.Join(parts, " - ")
}
