package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/quickmart/checkout-engine/internal/checkout/application"
	"github.com/quickmart/checkout-engine/internal/checkout/domain"
)

func TestAlertListAndAcknowledge(t *testing.T) {
	f := newFixture()
	alerts := application.NewAlertService(f.store)
	ctx := context.Background()

	p := f.addProduct(t, "Widget", 1000, 2, 3)
	resID := f.reserve(t, "user-a", map[string]int{p.ID: 1})
	if _, err := f.settlements.Settle(ctx, resID, "user-a"); err != nil {
		t.Fatalf("settle: %v", err)
	}

	all, err := alerts.List(ctx, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 || all[0].Processed {
		t.Fatalf("unexpected alerts: %+v", all)
	}

	if err := alerts.Acknowledge(ctx, all[0].ID); err != nil {
		t.Fatalf("acknowledge: %v", err)
	}

	pending := false
	unprocessed, err := alerts.List(ctx, &pending)
	if err != nil {
		t.Fatal(err)
	}
	if len(unprocessed) != 0 {
		t.Errorf("unprocessed = %d, want 0", len(unprocessed))
	}

	done := true
	processed, err := alerts.List(ctx, &done)
	if err != nil {
		t.Fatal(err)
	}
	if len(processed) != 1 {
		t.Errorf("processed = %d, want 1", len(processed))
	}

	if err := alerts.Acknowledge(ctx, uuid.NewString()); !errors.Is(err, domain.ErrAlertNotFound) {
		t.Errorf("ack unknown: err = %v, want ErrAlertNotFound", err)
	}
}
