package model

// AttributeDefinition is a product attribute such as "Color" or "Size".
// SortOrder carries the definition order used when deriving codes and names.
type AttributeDefinition struct {
	BaseModel
	ProductID         string `db:"product_id" json:"product_id"`
	Name              string `db:"name" json:"name"`
	SortOrder         int    `db:"sort_order" json:"sort_order"`
	IsVariantDefining bool   `db:"is_variant_defining" json:"is_variant_defining"`
}

type VariantAttributeValue struct {
	VariantID             string `db:"variant_id" json:"variant_id"`
	AttributeDefinitionID string `db:"attribute_definition_id" json:"attribute_definition_id"`
	Value                 string `db:"value" json:"value"`
}
