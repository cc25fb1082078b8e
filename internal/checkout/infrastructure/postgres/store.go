package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quickmart/checkout-engine/internal/checkout/domain"
)

// Store implements every checkout port against postgres.
type Store struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewStore(log *slog.Logger, pool *pgxpool.Pool) *Store {
	return &Store{log: log, pool: pool}
}

func (s *Store) Lines(ctx context.Context, userID string) ([]domain.CartLine, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, product_id, qty FROM cart_lines WHERE user_id=$1 ORDER BY product_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []domain.CartLine
	for rows.Next() {
		var l domain.CartLine
		if err := rows.Scan(&l.UserID, &l.ProductID, &l.Qty); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (s *Store) Upsert(ctx context.Context, line domain.CartLine) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO cart_lines (user_id, product_id, qty) VALUES ($1,$2,$3)
		 ON CONFLICT (user_id, product_id) DO UPDATE SET qty=$3`,
		line.UserID, line.ProductID, line.Qty)
	return err
}

func (s *Store) UpdateQty(ctx context.Context, userID, productID string, qty int) error {
	ct, err := s.pool.Exec(ctx,
		`UPDATE cart_lines SET qty=$3 WHERE user_id=$1 AND product_id=$2`, userID, productID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrCartLineGone
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, userID, productID string) error {
	ct, err := s.pool.Exec(ctx,
		`DELETE FROM cart_lines WHERE user_id=$1 AND product_id=$2`, userID, productID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrCartLineGone
	}
	return nil
}

func (s *Store) ByID(ctx context.Context, id string) (domain.Product, error) {
	var p domain.Product
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, sku, price_cents, stock, low_stock_threshold, created_at
		 FROM products WHERE id=$1`, id).
		Scan(&p.ID, &p.Name, &p.SKU, &p.PriceCents, &p.Stock, &p.LowStockThreshold, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Product{}, domain.ErrProductNotFound
	}
	if err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

func (s *Store) ByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, sku, price_cents, stock, low_stock_threshold, created_at
		 FROM products WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows)
}

func (s *Store) Create(ctx context.Context, r domain.Reservation) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx,
		`INSERT INTO reservations (id, user_id, address, shipping, status, expires_at, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		r.ID, r.UserID, r.Address, r.Shipping, r.Status, r.ExpiresAt, r.CreatedAt)
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, l := range r.Lines {
		batch.Queue(
			`INSERT INTO reservation_lines (reservation_id, product_id, product_name, price_cents, qty)
			 VALUES ($1,$2,$3,$4,$5)`,
			r.ID, l.ProductID, l.ProductName, l.PriceCents, l.Qty)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) List(ctx context.Context, processed *bool) ([]domain.LowStockAlert, error) {
	query := `SELECT id, product_id, stock, threshold, processed, created_at
		FROM low_stock_alerts`
	args := []any{}
	if processed != nil {
		query += ` WHERE processed=$1`
		args = append(args, *processed)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []domain.LowStockAlert
	for rows.Next() {
		var a domain.LowStockAlert
		if err := rows.Scan(&a.ID, &a.ProductID, &a.Stock, &a.Threshold, &a.Processed, &a.CreatedAt); err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func (s *Store) Acknowledge(ctx context.Context, id string) error {
	ct, err := s.pool.Exec(ctx, `UPDATE low_stock_alerts SET processed=TRUE WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrAlertNotFound
	}
	return nil
}

func scanProducts(rows pgx.Rows) ([]domain.Product, error) {
	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.SKU, &p.PriceCents, &p.Stock, &p.LowStockThreshold, &p.CreatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
