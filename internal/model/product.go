package model

type Product struct {
	BaseModel
	MerchantID string  `db:"merchant_id" json:"merchant_id"`
	Code       *string `db:"code" json:"code"` // Nullable, source of the SKU prefix
	Name       string  `db:"name" json:"name"`
	IsActive   bool    `db:"is_active" json:"is_active"`
}

// CodeOrEmpty returns the product code, or "" when the product has none.
func (p *Product) CodeOrEmpty() string {
	if p.Code == nil {
		return ""
	}
	return *p.Code
}

type ProductVariant struct {
	BaseModel
	ProductID  string `db:"product_id" json:"product_id"`
	Name       string `db:"name" json:"name"`
	Code       string `db:"code" json:"code"`
	IsDefault  bool   `db:"is_default" json:"is_default"`
	IsActive   bool   `db:"is_active" json:"is_active"`
	IsVerified bool   `db:"is_verified" json:"is_verified"`
}
