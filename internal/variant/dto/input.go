package dto

type CreateVariantInput struct {
	ProductID string
	Name      string
	Code      string
	IsDefault bool // Clears the flag on every sibling in the same write
}

// UpdateVariantInput carries the fields a wizard commit may change.
// IsVerified and IsActive are never part of it.
type UpdateVariantInput struct {
	ID        string
	ProductID string
	Name      string
	Code      string
	IsDefault bool
}

type SetVerifiedInput struct {
	MerchantID string
	VariantID  string
	Verified   bool
	ActorID    string
	Role       string
}

type AttributeValueInput struct {
	Name  string
	Value string
}

type DeriveCodeInput struct {
	ProductID  string
	Attributes []AttributeValueInput // Attribute mode when non-empty
	Name       string                // Name mode otherwise
	Color      string
	Size       string
	SizeUnit   string
}

// CommitVariantInput drives a wizard session from start to finish for
// callers that have no interactive front-end.
type CommitVariantInput struct {
	ProductID  string
	VariantID  string            // Empty for a new variant
	Values     map[string]string // attribute definition id -> value
	Name       string            // Optional, synthesized when blank
	Code       string            // Optional, derived when blank
	IsDefault  *bool             // Nil keeps the loaded flag; false for a new variant
	MerchantID string
}

type CreateProductInput struct {
	MerchantID string `validate:"required"`
	Name       string `validate:"required,max=255"`
	Code       string `validate:"max=50"` // Optional
}

type CreateAttributeInput struct {
	ProductID         string `validate:"required"`
	Name              string `validate:"required,max=100"`
	SortOrder         int
	IsVariantDefining bool
}
