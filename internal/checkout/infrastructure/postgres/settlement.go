package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/quickmart/checkout-engine/internal/checkout/application"
	"github.com/quickmart/checkout-engine/internal/checkout/domain"
	"github.com/quickmart/checkout-engine/pkg/tracing"
)

// WithinSettlement runs fn inside one pgx transaction. fn sees the
// settlement operations bound to that transaction; any error rolls the
// whole thing back.
func (s *Store) WithinSettlement(ctx context.Context, fn func(tx application.SettlementTx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(&settlementTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type settlementTx struct {
	tx pgx.Tx
}

// ReservationForUpdate locks the reservation row itself, so two settle
// calls for the same reservation serialize before either reads its status.
func (t *settlementTx) ReservationForUpdate(ctx context.Context, id string) (domain.Reservation, error) {
	var r domain.Reservation
	err := t.tx.QueryRow(ctx,
		`SELECT id, user_id, address, shipping, status, expires_at, created_at
		 FROM reservations WHERE id=$1 FOR UPDATE`, id).
		Scan(&r.ID, &r.UserID, &r.Address, &r.Shipping, &r.Status, &r.ExpiresAt, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Reservation{}, domain.ErrReservationNotFound
	}
	if err != nil {
		return domain.Reservation{}, err
	}

	rows, err := t.tx.Query(ctx,
		`SELECT product_id, product_name, price_cents, qty
		 FROM reservation_lines WHERE reservation_id=$1 ORDER BY product_id`, id)
	if err != nil {
		return domain.Reservation{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var l domain.ReservationLine
		if err := rows.Scan(&l.ProductID, &l.ProductName, &l.PriceCents, &l.Qty); err != nil {
			return domain.Reservation{}, err
		}
		r.Lines = append(r.Lines, l)
	}
	return r, rows.Err()
}

func (t *settlementTx) OrderIDByReservation(ctx context.Context, reservationID string) (string, error) {
	var id string
	err := t.tx.QueryRow(ctx,
		`SELECT id FROM orders WHERE reservation_id=$1`, reservationID).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

// ProductsForUpdate takes the row locks every settlement contends on.
// ORDER BY id keeps the acquisition order identical across transactions,
// which is what rules out lock-ordering deadlocks.
func (t *settlementTx) ProductsForUpdate(ctx context.Context, ids []string) ([]domain.Product, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT id, name, sku, price_cents, stock, low_stock_threshold, created_at
		 FROM products WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows)
}

func (t *settlementTx) DecrementStock(ctx context.Context, productID string, qty int) error {
	// The service validated against locked stock; the CHECK constraint on
	// the column is the backstop, not a clamp.
	_, err := t.tx.Exec(ctx,
		`UPDATE products SET stock = stock - $2 WHERE id=$1`, productID, qty)
	return err
}

func (t *settlementTx) CreateOrder(ctx context.Context, o domain.Order) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO orders (id, user_id, reservation_id, created_at) VALUES ($1,$2,$3,$4)`,
		o.ID, o.UserID, o.ReservationID, o.CreatedAt)
	if err != nil {
		return err
	}
	batch := &pgx.Batch{}
	for _, l := range o.Lines {
		batch.Queue(
			`INSERT INTO order_lines (order_id, product_id, price_cents, qty) VALUES ($1,$2,$3,$4)`,
			o.ID, l.ProductID, l.PriceCents, l.Qty)
	}
	return t.tx.SendBatch(ctx, batch).Close()
}

func (t *settlementTx) MarkConsumed(ctx context.Context, reservationID string) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE reservations SET status=$2 WHERE id=$1`, reservationID, domain.ReservationConsumed)
	return err
}

func (t *settlementTx) ClearCart(ctx context.Context, userID string) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM cart_lines WHERE user_id=$1`, userID)
	return err
}

func (t *settlementTx) AppendLowStockAlert(ctx context.Context, a domain.LowStockAlert) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO low_stock_alerts (id, product_id, stock, threshold, processed, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		a.ID, a.ProductID, a.Stock, a.Threshold, a.Processed, a.CreatedAt)
	return err
}

func (t *settlementTx) AppendEvent(ctx context.Context, aggregateID, eventType string, payload []byte) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, traceparent, status)
		 VALUES ($1,$2,$3,$4,$5,'pending')`,
		"checkout", aggregateID, eventType, payload, tracing.Traceparent(ctx))
	return err
}
