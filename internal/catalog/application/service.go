package application

import (
	"context"
	"log/slog"

	"github.com/quickmart/checkout-engine/internal/catalog/domain"
)

const (
	DefaultLimit = 20
	MaxLimit     = 50
)

type ProductLister interface {
	List(ctx context.Context, limit, offset int) ([]domain.ProductSummary, int, error)
}

// PageCache is a best-effort cache in front of the lister; misses and
// cache errors both fall through to the store.
type PageCache interface {
	Get(ctx context.Context, limit, offset int) (domain.Page, bool, error)
	Set(ctx context.Context, page domain.Page) error
}

type Service struct {
	log      *slog.Logger
	products ProductLister
	cache    PageCache
}

func NewService(log *slog.Logger, products ProductLister, cache PageCache) *Service {
	return &Service{log: log, products: products, cache: cache}
}

func (s *Service) List(ctx context.Context, limit, offset int) (domain.Page, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}

	if page, ok, err := s.cache.Get(ctx, limit, offset); err != nil {
		s.log.Warn("catalog cache read failed", "err", err)
	} else if ok {
		return page, nil
	}

	items, total, err := s.products.List(ctx, limit, offset)
	if err != nil {
		return domain.Page{}, err
	}
	page := domain.Page{Items: items, Total: total, Limit: limit, Offset: offset}
	if page.Items == nil {
		page.Items = []domain.ProductSummary{}
	}
	if err := s.cache.Set(ctx, page); err != nil {
		s.log.Warn("catalog cache write failed", "err", err)
	}
	return page, nil
}
