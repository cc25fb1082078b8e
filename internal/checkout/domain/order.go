package domain

import "time"

// Order is the durable record of a settled reservation. ReservationID is
// unique: at most one order ever exists per reservation.
type Order struct {
	ID            string
	UserID        string
	ReservationID string
	CreatedAt     time.Time
	Lines         []OrderLine
}

type OrderLine struct {
	ProductID  string
	PriceCents int64
	Qty        int
}

// OrderFromReservation copies the reservation's snapshot lines into a new
// order. Prices come from the snapshot, never from the current product.
func OrderFromReservation(id string, r Reservation, now time.Time) Order {
	lines := make([]OrderLine, 0, len(r.Lines))
	for _, l := range r.Lines {
		lines = append(lines, OrderLine{
			ProductID:  l.ProductID,
			PriceCents: l.PriceCents,
			Qty:        l.Qty,
		})
	}
	return Order{
		ID:            id,
		UserID:        r.UserID,
		ReservationID: r.ID,
		CreatedAt:     now,
		Lines:         lines,
	}
}

func (o Order) TotalCents() int64 {
	var total int64
	for _, l := range o.Lines {
		total += int64(l.Qty) * l.PriceCents
	}
	return total
}
