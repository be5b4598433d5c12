package wizard

import (
	"context"
	"strings"

	"github.com/fekuna/omnipos-variant-service/internal/apperr"
	"github.com/fekuna/omnipos-variant-service/internal/model"
	"github.com/fekuna/omnipos-variant-service/internal/variant/dto"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type saveGate struct {
	Name string `validate:"required"`
	Code string `validate:"required,max=50"`
}

// commitPlan is everything Save needs once the lock is released.
type commitPlan struct {
	mode        Mode
	productID   string
	variantID   string
	name        string
	code        string
	isDefault   bool
	values      []model.VariantAttributeValue
	selected    map[string]struct{}
	definitions []model.AttributeDefinition
}

// Save commits the draft. On success the wizard is Committed and the draft
// is gone. Validation, collision and catalog failures leave the wizard on
// the name and code step with the draft intact.
func (w *Wizard) Save(ctx context.Context) (*model.ProductVariant, error) {
	w.mu.Lock()
	if err := w.requireState(StateNameAndCode); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	if err := w.checkSaveGate(); err != nil {
		w.mu.Unlock()
		w.log.Debug("save refused", zap.Error(err))
		return nil, err
	}
	plan := w.planLocked()
	w.state = StateCommitting
	w.mu.Unlock()

	v, err := w.commit(ctx, plan)

	w.mu.Lock()
	cancelled := w.state == StateCancelled
	switch {
	case cancelled:
		// The draft is already gone; the outcome is still reported.
	case err != nil:
		w.state = StateNameAndCode
	default:
		w.state = StateCommitted
		w.discardLocked()
	}
	w.mu.Unlock()

	if err != nil {
		if apperr.IsCollision(err) {
			w.log.Info("variant code collision", zap.String("code", plan.code))
		} else {
			w.log.Error("variant commit failed", zap.Error(err), zap.Bool("cancelled", cancelled))
		}
		return nil, err
	}

	w.log.Info("variant committed",
		zap.String("variant_id", v.ID),
		zap.String("code", v.Code),
		zap.Bool("is_default", v.IsDefault),
		zap.Bool("cancelled", cancelled),
	)
	if w.opts.OnCommitted != nil {
		w.opts.OnCommitted(ctx, w.mode, v)
	}
	return v, nil
}

func (w *Wizard) checkSaveGate() error {
	gate := saveGate{Name: strings.TrimSpace(w.name), Code: strings.TrimSpace(w.code)}
	if err := validate.Struct(gate); err != nil {
		return apperr.FromValidator("name and code are required", err)
	}
	return nil
}

func (w *Wizard) planLocked() commitPlan {
	plan := commitPlan{
		mode:        w.mode,
		productID:   w.product.ID,
		variantID:   w.variantID,
		name:        strings.TrimSpace(w.name),
		code:        strings.TrimSpace(w.code),
		isDefault:   w.isDefault,
		selected:    map[string]struct{}{},
		definitions: w.selection.Definitions(),
	}

	for _, id := range w.selection.SelectedIDs() {
		plan.selected[id] = struct{}{}
		plan.values = append(plan.values, model.VariantAttributeValue{
			AttributeDefinitionID: id,
			Value:                 strings.TrimSpace(w.selection.Value(id)),
		})
	}
	// Blank out values of attributes deselected during an edit, so the
	// variant reopens with the selection it was saved with.
	for _, d := range plan.definitions {
		_, wasPersisted := w.persisted[d.ID]
		_, isSelected := plan.selected[d.ID]
		if wasPersisted && !isSelected {
			plan.values = append(plan.values, model.VariantAttributeValue{AttributeDefinitionID: d.ID})
		}
	}
	return plan
}

func (w *Wizard) commit(ctx context.Context, plan commitPlan) (*model.ProductVariant, error) {
	tx, ok := w.catalog.(Transactor)
	if !ok {
		return apply(ctx, w.catalog, plan)
	}

	var out *model.ProductVariant
	err := tx.WithinTx(ctx, func(c Catalog) error {
		v, err := apply(ctx, c, plan)
		out = v
		return err
	})
	if err != nil {
		if _, ok := apperr.As(err); !ok {
			return nil, apperr.CollaboratorErr("commit variant", err)
		}
		return nil, err
	}
	return out, nil
}

func apply(ctx context.Context, c Catalog, plan commitPlan) (*model.ProductVariant, error) {
	existing, err := c.ListVariants(ctx, plan.productID)
	if err != nil {
		return nil, apperr.CollaboratorErr("list variants", err)
	}

	siblings := 0
	wasDefault := false
	for _, v := range existing {
		if v.ID == plan.variantID {
			wasDefault = v.IsDefault
			continue
		}
		siblings++
		if v.Code == plan.code {
			return nil, apperr.CollisionErr(plan.code)
		}
	}
	// The first variant of a product is always its default.
	isDefault := plan.isDefault || siblings == 0
	// Unsetting the flag on the current default would leave the product
	// without one; the default moves only when another variant claims it.
	if plan.mode == ModeEdit && wasDefault {
		isDefault = true
	}

	var v *model.ProductVariant
	if plan.mode == ModeAdd {
		v, err = c.CreateVariant(ctx, &dto.CreateVariantInput{
			ProductID: plan.productID,
			Name:      plan.name,
			Code:      plan.code,
			IsDefault: isDefault,
		})
		if err != nil {
			return nil, apperr.CollaboratorErr("create variant", err)
		}
	} else {
		v, err = c.UpdateVariant(ctx, &dto.UpdateVariantInput{
			ID:        plan.variantID,
			ProductID: plan.productID,
			Name:      plan.name,
			Code:      plan.code,
			IsDefault: isDefault,
		})
		if err != nil {
			return nil, apperr.CollaboratorErr("update variant", err)
		}
	}

	if len(plan.values) > 0 {
		values := make([]model.VariantAttributeValue, len(plan.values))
		for i, av := range plan.values {
			av.VariantID = v.ID
			values[i] = av
		}
		if err := c.BulkUpsertAttributeValues(ctx, v.ID, values); err != nil {
			return nil, apperr.CollaboratorErr("upsert attribute values", err)
		}
	}

	for _, d := range plan.definitions {
		_, want := plan.selected[d.ID]
		if d.IsVariantDefining == want {
			continue
		}
		if err := c.SetAttributeVariantDefining(ctx, d.ID, want); err != nil {
			return nil, apperr.CollaboratorErr("set attribute variant-defining", err)
		}
	}

	return v, nil
}
