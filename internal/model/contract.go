package model

import "time"

// Contract is a binding commitment to deliver Quantity (energy per interval)
// on Market during the interval starting at Delivery, offered at Price.
type Contract struct {
	Market   MarketID
	Delivery time.Time
	Quantity float64
	Price    float64
}

// Value is the contract's worth at its own offer price.
func (c Contract) Value() float64 {
	return c.Quantity * c.Price
}
