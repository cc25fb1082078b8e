package application

import (
	"context"

	"github.com/quickmart/checkout-engine/internal/checkout/domain"
)

type CartService struct {
	carts    CartStore
	products ProductReader
}

func NewCartService(carts CartStore, products ProductReader) *CartService {
	return &CartService{carts: carts, products: products}
}

func (s *CartService) View(ctx context.Context, userID string) (domain.CartView, error) {
	lines, err := s.carts.Lines(ctx, userID)
	if err != nil {
		return domain.CartView{}, err
	}
	if len(lines) == 0 {
		return domain.CartView{Items: []domain.CartViewItem{}}, nil
	}

	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	products, err := s.products.ByIDs(ctx, ids)
	if err != nil {
		return domain.CartView{}, err
	}
	byID := make(map[string]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	view := domain.CartView{Items: make([]domain.CartViewItem, 0, len(lines))}
	for _, l := range lines {
		p, ok := byID[l.ProductID]
		if !ok {
			return domain.CartView{}, domain.ErrProductNotFound
		}
		view.Items = append(view.Items, domain.CartViewItem{
			ProductID:  p.ID,
			Name:       p.Name,
			PriceCents: p.PriceCents,
			Stock:      p.Stock,
			Qty:        l.Qty,
		})
		view.TotalCents += int64(l.Qty) * p.PriceCents
	}
	return view, nil
}

func (s *CartService) Put(ctx context.Context, userID, productID string, qty int) error {
	if !domain.ValidQty(qty) {
		return domain.ErrInvalidQuantity
	}
	if _, err := s.products.ByID(ctx, productID); err != nil {
		return err
	}
	return s.carts.Upsert(ctx, domain.CartLine{UserID: userID, ProductID: productID, Qty: qty})
}

func (s *CartService) UpdateQty(ctx context.Context, userID, productID string, qty int) error {
	if !domain.ValidQty(qty) {
		return domain.ErrInvalidQuantity
	}
	return s.carts.UpdateQty(ctx, userID, productID, qty)
}

func (s *CartService) Remove(ctx context.Context, userID, productID string) error {
	return s.carts.Remove(ctx, userID, productID)
}
