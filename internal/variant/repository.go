package variant

import (
	"context"

	"github.com/fekuna/omnipos-variant-service/internal/model"
	"github.com/fekuna/omnipos-variant-service/internal/variant/dto"
	"github.com/fekuna/omnipos-variant-service/internal/variant/wizard"
)

// Repository is the variant catalog. Implementations return nil, nil from
// the Get methods when the row does not exist.
type Repository interface {
	wizard.Catalog
	wizard.Transactor

	CreateProduct(ctx context.Context, product *model.Product) error
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	CreateAttributeDefinition(ctx context.Context, def *model.AttributeDefinition) error

	GetVariant(ctx context.Context, id string) (*model.ProductVariant, error)
	FindVariants(ctx context.Context, filters *dto.VariantFilters) ([]model.ProductVariant, error)

	// SetVariantVerified is the only write that touches is_verified.
	SetVariantVerified(ctx context.Context, variantID string, verified bool) error
}
