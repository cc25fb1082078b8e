package application

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/quickmart/checkout-engine/internal/checkout/domain"
)

const (
	EventOrderSettled        = "OrderSettled"
	EventLowStockAlertRaised = "LowStockAlertRaised"
)

// SettlementService converts an ACTIVE reservation into an order. The whole
// operation runs in one transaction: stock re-validation under row locks,
// decrement, order creation, reservation consumption, cart cleanup and
// alert emission either all commit or all roll back.
type SettlementService struct {
	store SettlementStore
}

func NewSettlementService(store SettlementStore) *SettlementService {
	return &SettlementService{store: store}
}

type SettleResult struct {
	OrderID string
	// AlreadySettled marks the idempotent replay path: the reservation was
	// consumed by an earlier call and OrderID is that call's order.
	AlreadySettled bool
}

func (s *SettlementService) Settle(ctx context.Context, reservationID, userID string) (SettleResult, error) {
	var result SettleResult
	err := s.store.WithinSettlement(ctx, func(tx SettlementTx) error {
		r, err := tx.ReservationForUpdate(ctx, reservationID)
		if err != nil {
			return err
		}
		if r.UserID != userID {
			// Same error as a missing reservation on purpose.
			return domain.ErrReservationNotFound
		}

		if r.Status == domain.ReservationConsumed {
			orderID, err := tx.OrderIDByReservation(ctx, r.ID)
			if err != nil {
				return err
			}
			result = SettleResult{OrderID: orderID, AlreadySettled: true}
			return nil
		}
		if r.Status != domain.ReservationActive {
			return domain.ErrReservationInactive
		}
		if r.ExpiredAt(time.Now()) {
			return domain.ErrReservationExpired
		}

		ids := productIDs(r.Lines)
		locked, err := tx.ProductsForUpdate(ctx, ids)
		if err != nil {
			return err
		}
		stockByID := make(map[string]domain.Product, len(locked))
		for _, p := range locked {
			stockByID[p.ID] = p
		}
		for _, line := range r.Lines {
			p, ok := stockByID[line.ProductID]
			if !ok || p.Stock < line.Qty {
				return domain.InsufficientStockError{ProductID: line.ProductID}
			}
		}

		for _, line := range r.Lines {
			if err := tx.DecrementStock(ctx, line.ProductID, line.Qty); err != nil {
				return err
			}
		}

		order := domain.OrderFromReservation(uuid.NewString(), r, time.Now().UTC())
		if err := tx.CreateOrder(ctx, order); err != nil {
			return err
		}
		if err := tx.MarkConsumed(ctx, r.ID); err != nil {
			return err
		}
		if err := tx.ClearCart(ctx, r.UserID); err != nil {
			return err
		}

		if err := s.emitLowStockAlerts(ctx, tx, ids); err != nil {
			return err
		}

		payload, err := json.Marshal(domain.OrderSettled{
			OrderID:       order.ID,
			ReservationID: r.ID,
			UserID:        r.UserID,
			TotalCents:    order.TotalCents(),
		})
		if err != nil {
			return err
		}
		if err := tx.AppendEvent(ctx, order.ID, EventOrderSettled, payload); err != nil {
			return err
		}

		result = SettleResult{OrderID: order.ID}
		return nil
	})
	if err != nil {
		return SettleResult{}, err
	}
	return result, nil
}

// emitLowStockAlerts re-reads the just-decremented products (still locked by
// this transaction) and appends one alert per product now strictly below its
// threshold.
func (s *SettlementService) emitLowStockAlerts(ctx context.Context, tx SettlementTx, ids []string) error {
	after, err := tx.ProductsForUpdate(ctx, ids)
	if err != nil {
		return err
	}
	for _, p := range after {
		if !p.BelowThreshold() {
			continue
		}
		alert := domain.LowStockAlert{
			ID:        uuid.NewString(),
			ProductID: p.ID,
			Stock:     p.Stock,
			Threshold: p.LowStockThreshold,
			CreatedAt: time.Now().UTC(),
		}
		if err := tx.AppendLowStockAlert(ctx, alert); err != nil {
			return err
		}
		payload, err := json.Marshal(domain.LowStockAlertRaised{
			AlertID:   alert.ID,
			ProductID: alert.ProductID,
			Stock:     alert.Stock,
			Threshold: alert.Threshold,
		})
		if err != nil {
			return err
		}
		if err := tx.AppendEvent(ctx, alert.ProductID, EventLowStockAlertRaised, payload); err != nil {
			return err
		}
	}
	return nil
}

// productIDs returns the distinct product ids of the reservation lines in
// ascending order, the order every settlement locks in.
func productIDs(lines []domain.ReservationLine) []string {
	seen := make(map[string]struct{}, len(lines))
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		if _, ok := seen[l.ProductID]; ok {
			continue
		}
		seen[l.ProductID] = struct{}{}
		ids = append(ids, l.ProductID)
	}
	sort.Strings(ids)
	return ids
}
