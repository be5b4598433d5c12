package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/fekuna/omnipos-variant-service/internal/apperr"
	"github.com/fekuna/omnipos-variant-service/internal/auth"
	"github.com/fekuna/omnipos-variant-service/internal/logger"
	"github.com/fekuna/omnipos-variant-service/internal/model"
	"github.com/fekuna/omnipos-variant-service/internal/sku"
	"github.com/fekuna/omnipos-variant-service/internal/variant"
	"github.com/fekuna/omnipos-variant-service/internal/variant/cache"
	"github.com/fekuna/omnipos-variant-service/internal/variant/dto"
	"github.com/fekuna/omnipos-variant-service/internal/variant/event"
	"github.com/fekuna/omnipos-variant-service/internal/variant/search"
	"github.com/fekuna/omnipos-variant-service/internal/variant/wizard"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type variantUseCase struct {
	repo            variant.Repository
	cache           *cache.VariantCache
	publisher       *event.Publisher
	indexer         *search.Indexer
	logger          logger.ZapLogger
	regenerateDelay time.Duration
}

// NewVariantUseCase wires the catalog store with its optional side channels.
// cache, publisher and indexer may be nil.
func NewVariantUseCase(
	repo variant.Repository,
	cache *cache.VariantCache,
	publisher *event.Publisher,
	indexer *search.Indexer,
	log logger.ZapLogger,
	regenerateDelay time.Duration,
) variant.UseCase {
	return &variantUseCase{
		repo:            repo,
		cache:           cache,
		publisher:       publisher,
		indexer:         indexer,
		logger:          log,
		regenerateDelay: regenerateDelay,
	}
}

func (uc *variantUseCase) CreateProduct(ctx context.Context, input *dto.CreateProductInput) (*model.Product, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Code = strings.TrimSpace(input.Code)
	if err := validate.Struct(input); err != nil {
		return nil, apperr.FromValidator("invalid product", err)
	}

	p := &model.Product{MerchantID: input.MerchantID, Name: input.Name, IsActive: true}
	if input.Code != "" {
		code := input.Code
		p.Code = &code
	}
	if err := uc.repo.CreateProduct(ctx, p); err != nil {
		return nil, apperr.CollaboratorErr("create product", err)
	}
	return p, nil
}

func (uc *variantUseCase) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	p, err := uc.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, apperr.CollaboratorErr("get product", err)
	}
	if p == nil {
		return nil, apperr.NotFoundErr("product not found")
	}
	return p, nil
}

func (uc *variantUseCase) AddAttribute(ctx context.Context, input *dto.CreateAttributeInput) (*model.AttributeDefinition, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := validate.Struct(input); err != nil {
		return nil, apperr.FromValidator("invalid attribute", err)
	}
	if _, err := uc.GetProduct(ctx, input.ProductID); err != nil {
		return nil, err
	}

	d := &model.AttributeDefinition{
		ProductID:         input.ProductID,
		Name:              input.Name,
		SortOrder:         input.SortOrder,
		IsVariantDefining: input.IsVariantDefining,
	}
	if err := uc.repo.CreateAttributeDefinition(ctx, d); err != nil {
		return nil, apperr.CollaboratorErr("create attribute definition", err)
	}
	return d, nil
}

func (uc *variantUseCase) ListAttributes(ctx context.Context, productID string) ([]model.AttributeDefinition, error) {
	defs, err := uc.repo.ListAttributeDefinitions(ctx, productID)
	if err != nil {
		return nil, apperr.CollaboratorErr("list attribute definitions", err)
	}
	return defs, nil
}

func (uc *variantUseCase) OpenAddWizard(ctx context.Context, productID string, opts *wizard.Options) (*wizard.Wizard, error) {
	p, err := uc.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	return wizard.OpenAdd(ctx, uc.repo, p, uc.wizardOptions(p, opts))
}

func (uc *variantUseCase) OpenEditWizard(ctx context.Context, variantID string, opts *wizard.Options) (*wizard.Wizard, error) {
	v, err := uc.GetVariant(ctx, variantID)
	if err != nil {
		return nil, err
	}
	p, err := uc.GetProduct(ctx, v.ProductID)
	if err != nil {
		return nil, err
	}
	return wizard.OpenEdit(ctx, uc.repo, p, v, uc.wizardOptions(p, opts))
}

// wizardOptions fills in the service defaults and chains the commit side
// effects in front of the caller's own hook.
func (uc *variantUseCase) wizardOptions(p *model.Product, opts *wizard.Options) *wizard.Options {
	var o wizard.Options
	if opts != nil {
		o = *opts
	}
	if o.Logger == nil {
		o.Logger = uc.logger
	}
	if o.RegenerateDelay <= 0 {
		o.RegenerateDelay = uc.regenerateDelay
	}

	next := o.OnCommitted
	merchantID := p.MerchantID
	o.OnCommitted = func(ctx context.Context, mode wizard.Mode, v *model.ProductVariant) {
		uc.afterCommit(ctx, merchantID, mode, v)
		if next != nil {
			next(ctx, mode, v)
		}
	}
	return &o
}

func (uc *variantUseCase) afterCommit(ctx context.Context, merchantID string, mode wizard.Mode, v *model.ProductVariant) {
	uc.cache.InvalidateProduct(ctx, v.ProductID)

	err := uc.publisher.VariantCommitted(ctx, event.VariantCommittedPayload{
		VariantID:  v.ID,
		ProductID:  v.ProductID,
		MerchantID: merchantID,
		Name:       v.Name,
		Code:       v.Code,
		IsDefault:  v.IsDefault,
		Mode:       mode.String(),
	})
	if err != nil {
		uc.logger.Warn("variant committed event not published", zap.String("variant_id", v.ID), zap.Error(err))
	}

	// Sync to Elastic
	doc := *v
	go uc.indexer.Sync(context.Background(), merchantID, &doc)
}

// CommitVariant runs a whole wizard session for callers without a screen.
// Values is the complete selection: attributes missing from it are
// deselected in edit mode.
func (uc *variantUseCase) CommitVariant(ctx context.Context, input *dto.CommitVariantInput) (*model.ProductVariant, error) {
	opts := &wizard.Options{AfterFunc: wizard.Headless}

	var (
		w   *wizard.Wizard
		err error
	)
	if input.VariantID == "" {
		w, err = uc.OpenAddWizard(ctx, input.ProductID, opts)
	} else {
		w, err = uc.OpenEditWizard(ctx, input.VariantID, opts)
	}
	if err != nil {
		return nil, err
	}
	p := w.Product()
	if input.MerchantID != "" && p.MerchantID != input.MerchantID {
		return nil, apperr.NotFoundErr("product not found")
	}
	if input.VariantID != "" && input.ProductID != "" && input.ProductID != p.ID {
		return nil, apperr.ValidationErr("variant does not belong to product", map[string]string{"variant_id": "wrong product"})
	}

	if err := fillWizard(w, input); err != nil {
		return nil, err
	}
	return w.Save(ctx)
}

func fillWizard(w *wizard.Wizard, input *dto.CommitVariantInput) error {
	_, draft := w.Snapshot()
	for _, id := range draft.SelectedAttributeIDs {
		if _, keep := input.Values[id]; !keep {
			if err := w.DeselectAttribute(id); err != nil {
				return err
			}
		}
	}
	for id, value := range input.Values {
		if err := w.SelectAttribute(id); err != nil {
			return err
		}
		if err := w.SetAttributeValue(id, value); err != nil {
			return err
		}
	}
	if strings.TrimSpace(input.Name) != "" {
		if err := w.SetName(input.Name); err != nil {
			return err
		}
	}
	if strings.TrimSpace(input.Code) != "" {
		if err := w.SetCode(input.Code); err != nil {
			return err
		}
	}
	if input.IsDefault != nil {
		if err := w.SetDefault(*input.IsDefault); err != nil {
			return err
		}
	}
	return w.Next()
}

func (uc *variantUseCase) GetVariant(ctx context.Context, id string) (*model.ProductVariant, error) {
	v, err := uc.repo.GetVariant(ctx, id)
	if err != nil {
		return nil, apperr.CollaboratorErr("get variant", err)
	}
	if v == nil {
		return nil, apperr.NotFoundErr("variant not found")
	}
	return v, nil
}

func (uc *variantUseCase) ListVariants(ctx context.Context, filters *dto.VariantFilters) ([]model.ProductVariant, error) {
	if strings.TrimSpace(filters.ProductID) == "" {
		return nil, apperr.ValidationErr("product id is required", map[string]string{"product_id": "required"})
	}

	if variants, ok := uc.cache.GetList(ctx, filters); ok {
		return variants, nil
	}

	variants, err := uc.repo.FindVariants(ctx, filters)
	if err != nil {
		return nil, apperr.CollaboratorErr("list variants", err)
	}
	uc.cache.SetList(ctx, filters, variants)
	return variants, nil
}

func (uc *variantUseCase) GetVariantAttributeValues(ctx context.Context, variantID string) (map[string]string, error) {
	values, err := uc.repo.GetVariantAttributeValues(ctx, variantID)
	if err != nil {
		return nil, apperr.CollaboratorErr("get variant attribute values", err)
	}
	return values, nil
}

// DeriveCode previews a code without touching the catalog. Attribute values
// take precedence; without them the name, color and size are used.
func (uc *variantUseCase) DeriveCode(ctx context.Context, input *dto.DeriveCodeInput) (string, error) {
	p, err := uc.GetProduct(ctx, input.ProductID)
	if err != nil {
		return "", err
	}
	id := sku.Identity{Name: p.Name, Code: p.CodeOrEmpty()}

	if len(input.Attributes) > 0 || strings.TrimSpace(input.Name) == "" {
		values := make([]sku.AttributeValue, len(input.Attributes))
		for i, a := range input.Attributes {
			values[i] = sku.AttributeValue{Name: a.Name, Value: a.Value}
		}
		return sku.Derive(id, values), nil
	}
	return sku.DeriveFromName(id, input.Name, sku.Descriptor{
		Color:    input.Color,
		Size:     input.Size,
		SizeUnit: input.SizeUnit,
	}), nil
}

// SetVariantVerified is the only path that changes a variant's verification
// state. The wizard never touches it.
func (uc *variantUseCase) SetVariantVerified(ctx context.Context, input *dto.SetVerifiedInput) (*model.ProductVariant, error) {
	if !auth.IsPrivileged(input.Role) {
		return nil, apperr.ForbiddenErr("only admin, owner or qa may verify variants")
	}

	v, err := uc.GetVariant(ctx, input.VariantID)
	if err != nil {
		return nil, err
	}
	p, err := uc.GetProduct(ctx, v.ProductID)
	if err != nil {
		return nil, err
	}
	if input.MerchantID != "" && p.MerchantID != input.MerchantID {
		return nil, apperr.NotFoundErr("variant not found")
	}
	if v.IsVerified == input.Verified {
		return v, nil
	}

	if err := uc.repo.SetVariantVerified(ctx, v.ID, input.Verified); err != nil {
		return nil, apperr.CollaboratorErr("set variant verified", err)
	}
	v.IsVerified = input.Verified
	v.UpdatedAt = time.Now().UTC()

	uc.logger.Info("variant verification changed",
		zap.String("variant_id", v.ID),
		zap.Bool("verified", v.IsVerified),
		zap.String("actor_id", input.ActorID),
		zap.String("role", input.Role),
	)

	uc.cache.InvalidateProduct(ctx, v.ProductID)
	err = uc.publisher.VerificationChanged(ctx, event.VerificationChangedPayload{
		VariantID:  v.ID,
		ProductID:  v.ProductID,
		MerchantID: p.MerchantID,
		Verified:   v.IsVerified,
		ActorID:    input.ActorID,
		Role:       input.Role,
	})
	if err != nil {
		uc.logger.Warn("verification event not published", zap.String("variant_id", v.ID), zap.Error(err))
	}
	doc := *v
	go uc.indexer.Sync(context.Background(), p.MerchantID, &doc)

	return v, nil
}
