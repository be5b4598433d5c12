package dto

type VariantFilters struct {
	ProductID    string
	OnlyActive   bool
	OnlyVerified bool
}
