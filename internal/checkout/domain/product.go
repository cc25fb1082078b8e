package domain

import "time"

type Product struct {
	ID                string
	Name              string
	SKU               string
	PriceCents        int64
	Stock             int
	LowStockThreshold int
	CreatedAt         time.Time
}

// BelowThreshold reports whether stock has fallen strictly below the
// low-stock line. A stock exactly at the threshold is not a breach.
func (p Product) BelowThreshold() bool {
	return p.Stock < p.LowStockThreshold
}
