package application

import (
	"context"

	"github.com/quickmart/checkout-engine/internal/checkout/domain"
)

type CartStore interface {
	Lines(ctx context.Context, userID string) ([]domain.CartLine, error)
	Upsert(ctx context.Context, line domain.CartLine) error
	UpdateQty(ctx context.Context, userID, productID string, qty int) error
	Remove(ctx context.Context, userID, productID string) error
}

type ProductReader interface {
	ByID(ctx context.Context, id string) (domain.Product, error)
	ByIDs(ctx context.Context, ids []string) ([]domain.Product, error)
}

type ReservationStore interface {
	Create(ctx context.Context, r domain.Reservation) error
}

type AlertStore interface {
	// List returns alerts newest first, optionally filtered by the
	// processed flag.
	List(ctx context.Context, processed *bool) ([]domain.LowStockAlert, error)
	Acknowledge(ctx context.Context, id string) error
}

// SettlementStore runs fn inside a single transaction: every operation fn
// performs through the SettlementTx commits atomically, or none do.
type SettlementStore interface {
	WithinSettlement(ctx context.Context, fn func(tx SettlementTx) error) error
}

// SettlementTx is the set of operations available inside a settlement
// transaction. ProductsForUpdate must take exclusive row locks and hold
// them until the transaction ends; implementations lock in ascending id
// order so concurrent settlements sharing products cannot deadlock.
type SettlementTx interface {
	ReservationForUpdate(ctx context.Context, id string) (domain.Reservation, error)
	OrderIDByReservation(ctx context.Context, reservationID string) (string, error)
	ProductsForUpdate(ctx context.Context, ids []string) ([]domain.Product, error)
	DecrementStock(ctx context.Context, productID string, qty int) error
	CreateOrder(ctx context.Context, o domain.Order) error
	MarkConsumed(ctx context.Context, reservationID string) error
	ClearCart(ctx context.Context, userID string) error
	AppendLowStockAlert(ctx context.Context, a domain.LowStockAlert) error
	AppendEvent(ctx context.Context, aggregateID, eventType string, payload []byte) error
}
