// Package memory is an in-process implementation of the checkout ports,
// used by the unit tests and by local runs that have no database. Its
// settlement transactions take a store-wide lock, so settlements are
// trivially serializable; the row-lock ordering the SQL store relies on is
// covered by the integration suite.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/quickmart/checkout-engine/internal/checkout/application"
	"github.com/quickmart/checkout-engine/internal/checkout/domain"
)

type StoredEvent struct {
	AggregateID string
	Type        string
	Payload     []byte
}

type Store struct {
	mu           sync.Mutex
	products     map[string]domain.Product
	carts        map[string]map[string]domain.CartLine
	reservations map[string]domain.Reservation
	orders       map[string]domain.Order
	orderByRes   map[string]string
	alerts       []domain.LowStockAlert
	events       []StoredEvent
}

func NewStore() *Store {
	return &Store{
		products:     make(map[string]domain.Product),
		carts:        make(map[string]map[string]domain.CartLine),
		reservations: make(map[string]domain.Reservation),
		orders:       make(map[string]domain.Order),
		orderByRes:   make(map[string]string),
	}
}

// PutProduct inserts or replaces a product. Tests use it both to seed stock
// and to mutate price/name after a reservation snapshot was taken.
func (s *Store) PutProduct(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

func (s *Store) Product(id string) (domain.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	return p, ok
}

func (s *Store) Order(id string) (domain.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	return o, ok
}

func (s *Store) Reservation(id string) (domain.Reservation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	return r, ok
}

func (s *Store) Alerts() []domain.LowStockAlert {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.LowStockAlert, len(s.alerts))
	copy(out, s.alerts)
	return out
}

func (s *Store) Events() []StoredEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]StoredEvent, len(s.events))
	copy(out, s.events)
	return out
}

// CartStore

func (s *Store) Lines(_ context.Context, userID string) ([]domain.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines := make([]domain.CartLine, 0, len(s.carts[userID]))
	for _, l := range s.carts[userID] {
		lines = append(lines, l)
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })
	return lines, nil
}

func (s *Store) Upsert(_ context.Context, line domain.CartLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.carts[line.UserID] == nil {
		s.carts[line.UserID] = make(map[string]domain.CartLine)
	}
	s.carts[line.UserID][line.ProductID] = line
	return nil
}

func (s *Store) UpdateQty(_ context.Context, userID, productID string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	line, ok := s.carts[userID][productID]
	if !ok {
		return domain.ErrCartLineGone
	}
	line.Qty = qty
	s.carts[userID][productID] = line
	return nil
}

func (s *Store) Remove(_ context.Context, userID, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.carts[userID][productID]; !ok {
		return domain.ErrCartLineGone
	}
	delete(s.carts[userID], productID)
	return nil
}

// ProductReader

func (s *Store) ByID(_ context.Context, id string) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return p, nil
}

func (s *Store) ByIDs(_ context.Context, ids []string) ([]domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.productsByIDs(ids), nil
}

func (s *Store) productsByIDs(ids []string) []domain.Product {
	out := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ReservationStore

func (s *Store) Create(_ context.Context, r domain.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.Lines = append([]domain.ReservationLine(nil), r.Lines...)
	s.reservations[r.ID] = r
	return nil
}

// AlertStore

func (s *Store) List(_ context.Context, processed *bool) ([]domain.LowStockAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.LowStockAlert, 0, len(s.alerts))
	// Newest first, matching the SQL store's ordering.
	for i := len(s.alerts) - 1; i >= 0; i-- {
		a := s.alerts[i]
		if processed != nil && a.Processed != *processed {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *Store) Acknowledge(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.alerts {
		if s.alerts[i].ID == id {
			s.alerts[i].Processed = true
			return nil
		}
	}
	return domain.ErrAlertNotFound
}

// SettlementStore

func (s *Store) WithinSettlement(_ context.Context, fn func(tx application.SettlementTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.snapshot()
	if err := fn(&settlementTx{store: s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type snapshot struct {
	products     map[string]domain.Product
	carts        map[string]map[string]domain.CartLine
	reservations map[string]domain.Reservation
	orders       map[string]domain.Order
	orderByRes   map[string]string
	alerts       int
	events       int
}

func (s *Store) snapshot() snapshot {
	snap := snapshot{
		products:     make(map[string]domain.Product, len(s.products)),
		carts:        make(map[string]map[string]domain.CartLine, len(s.carts)),
		reservations: make(map[string]domain.Reservation, len(s.reservations)),
		orders:       make(map[string]domain.Order, len(s.orders)),
		orderByRes:   make(map[string]string, len(s.orderByRes)),
		alerts:       len(s.alerts),
		events:       len(s.events),
	}
	for k, v := range s.products {
		snap.products[k] = v
	}
	for user, lines := range s.carts {
		cp := make(map[string]domain.CartLine, len(lines))
		for k, v := range lines {
			cp[k] = v
		}
		snap.carts[user] = cp
	}
	for k, v := range s.reservations {
		snap.reservations[k] = v
	}
	for k, v := range s.orders {
		snap.orders[k] = v
	}
	for k, v := range s.orderByRes {
		snap.orderByRes[k] = v
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.products = snap.products
	s.carts = snap.carts
	s.reservations = snap.reservations
	s.orders = snap.orders
	s.orderByRes = snap.orderByRes
	s.alerts = s.alerts[:snap.alerts]
	s.events = s.events[:snap.events]
}

// settlementTx mutates the store directly; the caller holds the store lock
// and rolls back via snapshot restore on error.
type settlementTx struct {
	store *Store
}

func (tx *settlementTx) ReservationForUpdate(_ context.Context, id string) (domain.Reservation, error) {
	r, ok := tx.store.reservations[id]
	if !ok {
		return domain.Reservation{}, domain.ErrReservationNotFound
	}
	r.Lines = append([]domain.ReservationLine(nil), r.Lines...)
	return r, nil
}

func (tx *settlementTx) OrderIDByReservation(_ context.Context, reservationID string) (string, error) {
	id, ok := tx.store.orderByRes[reservationID]
	if !ok {
		return "", fmt.Errorf("no order for consumed reservation %s", reservationID)
	}
	return id, nil
}

func (tx *settlementTx) ProductsForUpdate(_ context.Context, ids []string) ([]domain.Product, error) {
	return tx.store.productsByIDs(ids), nil
}

func (tx *settlementTx) DecrementStock(_ context.Context, productID string, qty int) error {
	p, ok := tx.store.products[productID]
	if !ok {
		return fmt.Errorf("decrement of unknown product %s", productID)
	}
	if p.Stock < qty {
		return fmt.Errorf("stock for %s would go negative", productID)
	}
	p.Stock -= qty
	tx.store.products[productID] = p
	return nil
}

func (tx *settlementTx) CreateOrder(_ context.Context, o domain.Order) error {
	if existing, ok := tx.store.orderByRes[o.ReservationID]; ok {
		return fmt.Errorf("reservation %s already settled by order %s", o.ReservationID, existing)
	}
	o.Lines = append([]domain.OrderLine(nil), o.Lines...)
	tx.store.orders[o.ID] = o
	tx.store.orderByRes[o.ReservationID] = o.ID
	return nil
}

func (tx *settlementTx) MarkConsumed(_ context.Context, reservationID string) error {
	r, ok := tx.store.reservations[reservationID]
	if !ok {
		return domain.ErrReservationNotFound
	}
	r.Status = domain.ReservationConsumed
	tx.store.reservations[reservationID] = r
	return nil
}

func (tx *settlementTx) ClearCart(_ context.Context, userID string) error {
	delete(tx.store.carts, userID)
	return nil
}

func (tx *settlementTx) AppendLowStockAlert(_ context.Context, a domain.LowStockAlert) error {
	tx.store.alerts = append(tx.store.alerts, a)
	return nil
}

func (tx *settlementTx) AppendEvent(_ context.Context, aggregateID, eventType string, payload []byte) error {
	tx.store.events = append(tx.store.events, StoredEvent{
		AggregateID: aggregateID,
		Type:        eventType,
		Payload:     payload,
	})
	return nil
}
