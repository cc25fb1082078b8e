package application

import (
	"context"

	"github.com/quickmart/checkout-engine/internal/checkout/domain"
)

// AlertService exposes the low-stock sink to its consumers. The engine only
// produces alerts; listing and acknowledgement happen here.
type AlertService struct {
	alerts AlertStore
}

func NewAlertService(alerts AlertStore) *AlertService {
	return &AlertService{alerts: alerts}
}

func (s *AlertService) List(ctx context.Context, processed *bool) ([]domain.LowStockAlert, error) {
	return s.alerts.List(ctx, processed)
}

func (s *AlertService) Acknowledge(ctx context.Context, id string) error {
	return s.alerts.Acknowledge(ctx, id)
}
