package application

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/quickmart/checkout-engine/internal/checkout/domain"
)

type ReservationService struct {
	carts        CartStore
	products     ProductReader
	reservations ReservationStore
}

func NewReservationService(carts CartStore, products ProductReader, reservations ReservationStore) *ReservationService {
	return &ReservationService{
		carts:        carts,
		products:     products,
		reservations: reservations,
	}
}

type ReservationReceipt struct {
	ReservationID string
	ExpiresAt     time.Time
}

// Create snapshots the user's cart into an ACTIVE reservation with a fixed
// TTL. The stock check here is advisory only: it reads without locking and
// nothing is decremented, so two users can both reserve the last unit. The
// authoritative check happens under row locks at settlement.
func (s *ReservationService) Create(ctx context.Context, userID, address, shipping string) (ReservationReceipt, error) {
	lines, err := s.carts.Lines(ctx, userID)
	if err != nil {
		return ReservationReceipt{}, err
	}
	if len(lines) == 0 {
		return ReservationReceipt{}, domain.ErrCartEmpty
	}

	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	products, err := s.products.ByIDs(ctx, ids)
	if err != nil {
		return ReservationReceipt{}, err
	}
	byID := make(map[string]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	snapshot := make([]domain.ReservationLine, 0, len(lines))
	for _, l := range lines {
		p, ok := byID[l.ProductID]
		if !ok {
			return ReservationReceipt{}, domain.ErrProductNotFound
		}
		if l.Qty > p.Stock {
			return ReservationReceipt{}, domain.InsufficientStockError{ProductID: p.ID}
		}
		snapshot = append(snapshot, domain.ReservationLine{
			ProductID:   p.ID,
			ProductName: p.Name,
			PriceCents:  p.PriceCents,
			Qty:         l.Qty,
		})
	}

	r := domain.NewReservation(uuid.NewString(), userID, address, shipping, snapshot, time.Now().UTC())
	if err := s.reservations.Create(ctx, r); err != nil {
		return ReservationReceipt{}, err
	}
	return ReservationReceipt{ReservationID: r.ID, ExpiresAt: r.ExpiresAt}, nil
}
