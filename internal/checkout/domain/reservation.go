package domain

import "time"

type ReservationStatus string

const (
	ReservationActive   ReservationStatus = "ACTIVE"
	ReservationConsumed ReservationStatus = "CONSUMED"
	ReservationExpired  ReservationStatus = "EXPIRED"
)

// ReservationTTL is the hard deadline for settling a reservation.
const ReservationTTL = 10 * time.Minute

// Reservation is a logical hold on stock: it never decrements the ledger,
// it only records what the customer intends to buy and at what price.
type Reservation struct {
	ID        string
	UserID    string
	Address   string
	Shipping  string
	Status    ReservationStatus
	ExpiresAt time.Time
	CreatedAt time.Time
	Lines     []ReservationLine
}

// ReservationLine is an immutable snapshot of a cart line taken at
// reservation time. Name and price are captured then and never updated,
// even if the product record changes before settlement.
type ReservationLine struct {
	ProductID   string
	ProductName string
	PriceCents  int64
	Qty         int
}

func NewReservation(id, userID, address, shipping string, lines []ReservationLine, now time.Time) Reservation {
	return Reservation{
		ID:        id,
		UserID:    userID,
		Address:   address,
		Shipping:  shipping,
		Status:    ReservationActive,
		ExpiresAt: now.Add(ReservationTTL),
		CreatedAt: now,
		Lines:     lines,
	}
}

func (r Reservation) ExpiredAt(now time.Time) bool {
	return now.After(r.ExpiresAt)
}
