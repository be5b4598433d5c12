package wizard

import (
	"context"

	"github.com/fekuna/omnipos-variant-service/internal/model"
	"github.com/fekuna/omnipos-variant-service/internal/variant/dto"
)

// Catalog is the storage surface a wizard reads at open and writes on commit.
//
// CreateVariant and UpdateVariant must clear IsDefault on every sibling of
// the variant in the same write whenever IsDefault is set, so readers never
// observe zero or two defaults. Writes must be idempotent on retry.
type Catalog interface {
	ListAttributeDefinitions(ctx context.Context, productID string) ([]model.AttributeDefinition, error)
	GetVariantAttributeValues(ctx context.Context, variantID string) (map[string]string, error)
	ListVariants(ctx context.Context, productID string) ([]model.ProductVariant, error)
	CreateVariant(ctx context.Context, input *dto.CreateVariantInput) (*model.ProductVariant, error)
	UpdateVariant(ctx context.Context, input *dto.UpdateVariantInput) (*model.ProductVariant, error)
	SetAttributeVariantDefining(ctx context.Context, attributeID string, defining bool) error
	BulkUpsertAttributeValues(ctx context.Context, variantID string, values []model.VariantAttributeValue) error
}

// Transactor is implemented by catalogs that can run a whole commit as one
// unit of work. Catalogs without it get the writes one by one.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(Catalog) error) error
}
