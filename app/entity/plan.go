package entity

// Plan is a purchasable storage tier. Amount is in VND whole units; any
// provider-specific minor-unit conversion happens at order creation.
type Plan struct {
	ID     string
	Amount int64
	Quota  string
}
