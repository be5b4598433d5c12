package main

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/fekuna/omnipos-variant-service/internal/variant"
	"github.com/fekuna/omnipos-variant-service/internal/variant/dto"
)

// seedFile is the YAML layout read by 'variantctl seed'.
type seedFile struct {
	Products []seedProduct `yaml:"products"`
}

type seedProduct struct {
	MerchantID string          `yaml:"merchant_id"`
	Name       string          `yaml:"name"`
	Code       string          `yaml:"code,omitempty"`
	Attributes []seedAttribute `yaml:"attributes"`
}

type seedAttribute struct {
	Name            string `yaml:"name"`
	VariantDefining bool   `yaml:"variant_defining"`
}

func parseSeed(data []byte) (*seedFile, error) {
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	if len(seed.Products) == 0 {
		return nil, fmt.Errorf("parse seed: no products")
	}
	return &seed, nil
}

// applySeed creates the products in file order. Attribute sort order
// follows their position in the file.
func applySeed(ctx context.Context, uc variant.UseCase, seed *seedFile, out io.Writer) error {
	for _, sp := range seed.Products {
		p, err := uc.CreateProduct(ctx, &dto.CreateProductInput{
			MerchantID: sp.MerchantID,
			Name:       sp.Name,
			Code:       sp.Code,
		})
		if err != nil {
			return fmt.Errorf("product %q: %w", sp.Name, err)
		}
		fmt.Fprintf(out, "product %s  %s\n", p.ID, p.Name)

		for i, sa := range sp.Attributes {
			d, err := uc.AddAttribute(ctx, &dto.CreateAttributeInput{
				ProductID:         p.ID,
				Name:              sa.Name,
				SortOrder:         i,
				IsVariantDefining: sa.VariantDefining,
			})
			if err != nil {
				return fmt.Errorf("attribute %q of %q: %w", sa.Name, sp.Name, err)
			}
			fmt.Fprintf(out, "  attribute %s  %s\n", d.ID, d.Name)
		}
	}
	return nil
}
