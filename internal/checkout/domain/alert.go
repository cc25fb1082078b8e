package domain

import "time"

// LowStockAlert records one observed threshold breach. The sink is
// append-only: repeated breaches on the same product produce repeated
// alerts, and dedup is left to whoever consumes them.
type LowStockAlert struct {
	ID        string
	ProductID string
	Stock     int
	Threshold int
	Processed bool
	CreatedAt time.Time
}
