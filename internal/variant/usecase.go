package variant

import (
	"context"

	"github.com/fekuna/omnipos-variant-service/internal/model"
	"github.com/fekuna/omnipos-variant-service/internal/variant/dto"
	"github.com/fekuna/omnipos-variant-service/internal/variant/wizard"
)

type UseCase interface {
	CreateProduct(ctx context.Context, input *dto.CreateProductInput) (*model.Product, error)
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	AddAttribute(ctx context.Context, input *dto.CreateAttributeInput) (*model.AttributeDefinition, error)
	ListAttributes(ctx context.Context, productID string) ([]model.AttributeDefinition, error)

	// Wizard sessions
	OpenAddWizard(ctx context.Context, productID string, opts *wizard.Options) (*wizard.Wizard, error)
	OpenEditWizard(ctx context.Context, variantID string, opts *wizard.Options) (*wizard.Wizard, error)
	CommitVariant(ctx context.Context, input *dto.CommitVariantInput) (*model.ProductVariant, error)

	GetVariant(ctx context.Context, id string) (*model.ProductVariant, error)
	ListVariants(ctx context.Context, filters *dto.VariantFilters) ([]model.ProductVariant, error)
	GetVariantAttributeValues(ctx context.Context, variantID string) (map[string]string, error)
	DeriveCode(ctx context.Context, input *dto.DeriveCodeInput) (string, error)

	SetVariantVerified(ctx context.Context, input *dto.SetVerifiedInput) (*model.ProductVariant, error)
}
