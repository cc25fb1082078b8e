package integration

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quickmart/checkout-engine/internal/checkout/application"
	"github.com/quickmart/checkout-engine/internal/checkout/domain"
	checkoutpg "github.com/quickmart/checkout-engine/internal/checkout/infrastructure/postgres"
	"github.com/quickmart/checkout-engine/pkg/logging"
)

// Runs only with INTEGRATION set; needs a local Docker daemon.
func setupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if os.Getenv("INTEGRATION") == "" {
		t.Skip("set INTEGRATION to run container-backed tests")
	}
	ctx := context.Background()
	env, err := Setup(ctx)
	if err != nil {
		t.Fatalf("container setup: %v", err)
	}
	t.Cleanup(func() { env.Teardown(context.Background()) })

	pool, err := pgxpool.New(ctx, env.PGURL)
	if err != nil {
		t.Fatalf("pg connect: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := checkoutpg.Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return pool
}

func insertProduct(t *testing.T, pool *pgxpool.Pool, stock, threshold int) string {
	t.Helper()
	id := uuid.NewString()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO products (id, name, sku, price_cents, stock, low_stock_threshold, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		id, "Integration Widget", "SKU-"+id[:8], int64(1500), stock, threshold, time.Now().UTC())
	if err != nil {
		t.Fatalf("insert product: %v", err)
	}
	return id
}

func reserve(t *testing.T, store *checkoutpg.Store, userID, productID string, qty int) string {
	t.Helper()
	ctx := context.Background()
	carts := application.NewCartService(store, store)
	reservations := application.NewReservationService(store, store, store)
	if err := carts.Put(ctx, userID, productID, qty); err != nil {
		t.Fatalf("cart put: %v", err)
	}
	receipt, err := reservations.Create(ctx, userID, "12 Main Street", "standard")
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	return receipt.ReservationID
}

func TestConcurrentSettlementSerializesOnRowLocks(t *testing.T) {
	pool := setupPool(t)
	store := checkoutpg.NewStore(logging.New("integration"), pool)
	settlements := application.NewSettlementService(store)
	ctx := context.Background()

	productID := insertProduct(t, pool, 1, 1)
	resA := reserve(t, store, "user-a", productID, 1)
	resB := reserve(t, store, "user-b", productID, 1)

	errs := make([]error, 2)
	ids := make([]string, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		res, err := settlements.Settle(ctx, resA, "user-a")
		ids[0], errs[0] = res.OrderID, err
	}()
	go func() {
		defer wg.Done()
		res, err := settlements.Settle(ctx, resB, "user-b")
		ids[1], errs[1] = res.OrderID, err
	}()
	wg.Wait()

	var wins, conflicts int
	for i := range errs {
		if errs[i] == nil {
			wins++
			if ids[i] == "" {
				t.Error("winner without order id")
			}
			continue
		}
		var insufficient domain.InsufficientStockError
		if !errors.As(errs[i], &insufficient) {
			t.Fatalf("unexpected error: %v", errs[i])
		}
		conflicts++
	}
	if wins != 1 || conflicts != 1 {
		t.Fatalf("wins=%d conflicts=%d, want exactly one of each", wins, conflicts)
	}

	var stock int
	if err := pool.QueryRow(ctx, `SELECT stock FROM products WHERE id=$1`, productID).Scan(&stock); err != nil {
		t.Fatal(err)
	}
	if stock != 0 {
		t.Errorf("stock = %d, want 0", stock)
	}

	var orders int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM orders`).Scan(&orders); err != nil {
		t.Fatal(err)
	}
	if orders != 1 {
		t.Errorf("orders = %d, want 1", orders)
	}

	// 0 < threshold 1: the winning settlement raised exactly one alert.
	var alerts int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM low_stock_alerts WHERE product_id=$1`, productID).Scan(&alerts); err != nil {
		t.Fatal(err)
	}
	if alerts != 1 {
		t.Errorf("alerts = %d, want 1", alerts)
	}
}

func TestSettleIdempotentAgainstPostgres(t *testing.T) {
	pool := setupPool(t)
	store := checkoutpg.NewStore(logging.New("integration"), pool)
	settlements := application.NewSettlementService(store)
	ctx := context.Background()

	productID := insertProduct(t, pool, 5, 0)
	resID := reserve(t, store, "user-a", productID, 2)

	first, err := settlements.Settle(ctx, resID, "user-a")
	if err != nil {
		t.Fatalf("first settle: %v", err)
	}
	second, err := settlements.Settle(ctx, resID, "user-a")
	if err != nil {
		t.Fatalf("second settle: %v", err)
	}
	if second.OrderID != first.OrderID || !second.AlreadySettled {
		t.Fatalf("replay mismatch: first=%+v second=%+v", first, second)
	}

	var stock int
	if err := pool.QueryRow(ctx, `SELECT stock FROM products WHERE id=$1`, productID).Scan(&stock); err != nil {
		t.Fatal(err)
	}
	if stock != 3 {
		t.Errorf("stock = %d, want 3 (single decrement)", stock)
	}

	// The settlement cleared the originating cart.
	var lines int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM cart_lines WHERE user_id='user-a'`).Scan(&lines); err != nil {
		t.Fatal(err)
	}
	if lines != 0 {
		t.Errorf("cart lines = %d, want 0", lines)
	}

	// Both events went through the transactional outbox.
	var events int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM outbox WHERE type='OrderSettled'`).Scan(&events); err != nil {
		t.Fatal(err)
	}
	if events != 1 {
		t.Errorf("OrderSettled outbox rows = %d, want 1", events)
	}
}
