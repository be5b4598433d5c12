// Package wizard implements the two-step workflow that defines a product
// variant: pick the attributes that distinguish it, confirm its name and
// code, then commit it to the catalog.
//
// A Wizard only moves in response to calls from its owner. The one deferred
// behavior is the debounced code regeneration while attributes are being
// picked.
package wizard

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/fekuna/omnipos-variant-service/internal/apperr"
	"github.com/fekuna/omnipos-variant-service/internal/logger"
	"github.com/fekuna/omnipos-variant-service/internal/model"
	"github.com/fekuna/omnipos-variant-service/internal/sku"
	"go.uber.org/zap"
)

var (
	ErrInvalidTransition = errors.New("wizard: action not allowed in current state")
	// ErrCommitInProgress is returned for a save issued while another is in
	// flight. Callers are expected to ignore it.
	ErrCommitInProgress = errors.New("wizard: commit in progress")
)

type Wizard struct {
	mu sync.Mutex

	catalog Catalog
	opts    Options
	log     logger.ZapLogger
	regen   *debouncer

	mode      Mode
	state     State
	product   model.Product
	variantID string

	selection  *Selection
	name       string
	code       string
	isDefault  bool
	codeEdited bool // set once the code was typed in or loaded for edit

	// Attribute ids with a non-blank persisted value when opened for edit.
	persisted map[string]struct{}
}

// OpenAdd starts a wizard for a new variant of product.
func OpenAdd(ctx context.Context, catalog Catalog, product *model.Product, opts *Options) (*Wizard, error) {
	defs, err := catalog.ListAttributeDefinitions(ctx, product.ID)
	if err != nil {
		return nil, apperr.CollaboratorErr("fetch attribute definitions", err)
	}

	w := newWizard(catalog, product, defs, ModeAdd, opts)
	w.log.Info("variant wizard opened")
	return w, nil
}

// OpenEdit starts a wizard pre-populated from an existing variant. Edit mode
// does not gate the attribute step, so variants created before attributes
// were in use can still be renamed.
func OpenEdit(ctx context.Context, catalog Catalog, product *model.Product, variant *model.ProductVariant, opts *Options) (*Wizard, error) {
	if variant.ProductID != product.ID {
		return nil, apperr.ValidationErr("variant does not belong to product", map[string]string{"variant_id": "wrong product"})
	}

	defs, err := catalog.ListAttributeDefinitions(ctx, product.ID)
	if err != nil {
		return nil, apperr.CollaboratorErr("fetch attribute definitions", err)
	}
	values, err := catalog.GetVariantAttributeValues(ctx, variant.ID)
	if err != nil {
		return nil, apperr.CollaboratorErr("fetch variant attribute values", err)
	}

	w := newWizard(catalog, product, defs, ModeEdit, opts)
	w.variantID = variant.ID
	w.log = w.log.With(zap.String("variant_id", variant.ID))
	w.name = variant.Name
	w.code = variant.Code
	w.isDefault = variant.IsDefault
	w.codeEdited = strings.TrimSpace(variant.Code) != ""

	for id, value := range values {
		if err := w.selection.SetValue(id, value); err != nil {
			w.log.Warn("ignoring value of unknown attribute", zap.String("attribute_id", id))
			continue
		}
		if strings.TrimSpace(value) != "" {
			_ = w.selection.Select(id)
			w.persisted[id] = struct{}{}
		}
	}

	w.log.Info("variant wizard opened", zap.Int("selected", len(w.persisted)))
	return w, nil
}

func newWizard(catalog Catalog, product *model.Product, defs []model.AttributeDefinition, mode Mode, opts *Options) *Wizard {
	o := opts.withDefaults()
	return &Wizard{
		catalog: catalog,
		opts:    o,
		log: o.Logger.With(
			zap.String("product_id", product.ID),
			zap.String("mode", mode.String()),
		),
		regen:     newDebouncer(o.RegenerateDelay, o.AfterFunc),
		mode:      mode,
		state:     StateSelectAttributes,
		product:   *product,
		selection: NewSelection(defs),
		persisted: map[string]struct{}{},
	}
}

func (w *Wizard) Mode() Mode { return w.mode }

func (w *Wizard) Product() model.Product { return w.product }

func (w *Wizard) VariantID() string { return w.variantID }

func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Snapshot returns the current state and a copy of the draft, for rendering.
func (w *Wizard) Snapshot() (State, Draft) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state, Draft{
		Name:                 w.name,
		Code:                 w.code,
		IsDefault:            w.isDefault,
		SelectedAttributeIDs: w.selection.SelectedIDs(),
		AttributeValues:      w.selection.Values(),
	}
}

func (w *Wizard) Definitions() []model.AttributeDefinition {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.selection.Definitions()
}

// IsComplete reports whether the attribute step is satisfied.
func (w *Wizard) IsComplete() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.selection.IsComplete()
}

func (w *Wizard) SelectAttribute(id string) error {
	return w.editSelection(func(s *Selection) error { return s.Select(id) })
}

func (w *Wizard) DeselectAttribute(id string) error {
	return w.editSelection(func(s *Selection) error {
		s.Deselect(id)
		return nil
	})
}

func (w *Wizard) SetAttributeValue(id, value string) error {
	return w.editSelection(func(s *Selection) error { return s.SetValue(id, value) })
}

func (w *Wizard) editSelection(fn func(*Selection) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireState(StateSelectAttributes); err != nil {
		return err
	}
	if err := fn(w.selection); err != nil {
		if errors.Is(err, ErrUnknownAttribute) {
			return apperr.ValidationErr("unknown attribute", map[string]string{"attribute_id": "unknown"})
		}
		return err
	}
	if !w.codeEdited {
		w.regen.Schedule(w.regenerateDeferred)
	}
	return nil
}

func (w *Wizard) SetName(name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.requireState(StateSelectAttributes, StateNameAndCode); err != nil {
		return err
	}
	w.name = name
	return nil
}

// SetCode records a code typed by the user. From then on the code is only
// regenerated through Regenerate; clearing it hands it back to automatic
// regeneration.
func (w *Wizard) SetCode(code string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.requireState(StateSelectAttributes, StateNameAndCode); err != nil {
		return err
	}
	w.code = code
	w.codeEdited = strings.TrimSpace(code) != ""
	if w.codeEdited {
		w.regen.Cancel()
	}
	return nil
}

func (w *Wizard) SetDefault(isDefault bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.requireState(StateSelectAttributes, StateNameAndCode); err != nil {
		return err
	}
	w.isDefault = isDefault
	return nil
}

// Regenerate derives the code from the current selection right away,
// replacing whatever code the draft holds.
func (w *Wizard) Regenerate() (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.requireState(StateSelectAttributes, StateNameAndCode); err != nil {
		return "", err
	}
	w.regen.Cancel()
	w.code = w.deriveCode()
	w.codeEdited = false
	w.log.Debug("code regenerated", zap.String("code", w.code))
	return w.code, nil
}

// Next moves from the attribute step to the name and code step. In add mode
// the selection must be complete.
func (w *Wizard) Next() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireState(StateSelectAttributes); err != nil {
		return err
	}
	if w.mode == ModeAdd && !w.selection.IsComplete() {
		err := w.incompleteSelectionErr()
		w.log.Debug("attribute step refused", zap.Error(err))
		return err
	}

	w.regen.Cancel()
	if !w.codeEdited || strings.TrimSpace(w.code) == "" {
		w.code = w.deriveCode()
		w.codeEdited = false
	}
	if w.mode == ModeAdd && strings.TrimSpace(w.name) == "" {
		w.name = w.selection.SynthesizeName()
	}

	w.state = StateNameAndCode
	w.log.Debug("moved to name and code step", zap.String("code", w.code))
	return nil
}

// Previous goes back to the attribute step. The draft is kept as is.
func (w *Wizard) Previous() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.requireState(StateNameAndCode); err != nil {
		return err
	}
	w.state = StateSelectAttributes
	return nil
}

// Cancel discards the draft. A commit already in flight is not retracted.
func (w *Wizard) Cancel() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.state {
	case StateCancelled:
		return nil
	case StateCommitted:
		return ErrInvalidTransition
	}
	w.regen.Cancel()
	w.state = StateCancelled
	w.discardLocked()
	w.log.Info("variant wizard cancelled")
	return nil
}

func (w *Wizard) requireState(allowed ...State) error {
	if w.state == StateCommitting {
		return ErrCommitInProgress
	}
	for _, s := range allowed {
		if w.state == s {
			return nil
		}
	}
	return ErrInvalidTransition
}

func (w *Wizard) incompleteSelectionErr() error {
	if len(w.selection.SelectedIDs()) == 0 {
		return apperr.ValidationErr("select at least one attribute that defines this variant",
			map[string]string{"attributes": "required"})
	}
	fields := map[string]string{}
	names := []string{}
	for _, d := range w.selection.Missing() {
		fields[d.ID] = "required"
		names = append(names, d.Name)
	}
	return apperr.ValidationErr("enter a value for: "+strings.Join(names, ", "), fields)
}

func (w *Wizard) deriveCode() string {
	return sku.Derive(w.identity(), w.selection.OrderedValuesForCode())
}

func (w *Wizard) identity() sku.Identity {
	return sku.Identity{Name: w.product.Name, Code: w.product.CodeOrEmpty()}
}

// regenerateDeferred runs on the debouncer's timer.
func (w *Wizard) regenerateDeferred() {
	w.mu.Lock()
	if w.state != StateSelectAttributes || w.codeEdited {
		w.mu.Unlock()
		return
	}
	code := w.deriveCode()
	changed := code != w.code
	w.code = code
	hook := w.opts.OnCodeRegenerated
	w.mu.Unlock()

	if changed && hook != nil {
		hook(code)
	}
}

func (w *Wizard) discardLocked() {
	w.name = ""
	w.code = ""
	w.isDefault = false
	w.codeEdited = false
	w.selection = NewSelection(w.selection.definitions)
	w.persisted = map[string]struct{}{}
}
