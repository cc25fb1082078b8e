package outbox

import (
	"context"
	"log/slog"
	"time"
)

type Store interface {
	LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]Event, error)
	MarkSent(ctx context.Context, ids []int64) error
	MarkFailed(ctx context.Context, id int64, errMsg string) error
	ExtendLease(ctx context.Context, relayID string, ids []int64, lease time.Duration) error
}

// Relay polls the outbox and pushes pending events to the dispatcher.
// Delivery is at-least-once: an event marked in_progress whose relay dies
// is picked up again once its lease expires.
type Relay struct {
	log       *slog.Logger
	store     Store
	dispatch  *Dispatcher
	relayID   string
	batchSize int
	interval  time.Duration
	lease     time.Duration
}

func NewRelay(log *slog.Logger, store Store, dispatch *Dispatcher, relayID string) *Relay {
	return &Relay{
		log:       log,
		store:     store,
		dispatch:  dispatch,
		relayID:   relayID,
		batchSize: 100,
		interval:  500 * time.Millisecond,
		lease:     5 * time.Second,
	}
}

func (r *Relay) Run(ctx context.Context) error {
	t := time.NewTicker(r.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("relay stopping", "relay_id", r.relayID)
			return nil
		case <-t.C:
			events, err := r.store.LockBatch(ctx, r.relayID, r.batchSize, r.lease)
			if err != nil {
				r.log.Error("relay lock batch error", "err", err)
				continue
			}
			if len(events) == 0 {
				continue
			}

			sent := make([]int64, 0, len(events))
			leased := time.Now()
			for i, ev := range events {
				// Renew the lease while a slow batch is in flight so
				// another relay does not reclaim the remaining events.
				if time.Since(leased) > r.lease/2 {
					rest := make([]int64, 0, len(events)-i)
					for _, e := range events[i:] {
						rest = append(rest, e.ID)
					}
					if err := r.store.ExtendLease(ctx, r.relayID, rest, r.lease); err != nil {
						r.log.Error("relay extend lease error", "err", err)
					}
					leased = time.Now()
				}
				if err := r.dispatch.Dispatch(ctx, ev); err != nil {
					_ = r.store.MarkFailed(ctx, ev.ID, err.Error())
					continue
				}
				sent = append(sent, ev.ID)
			}
			if len(sent) > 0 {
				if err := r.store.MarkSent(ctx, sent); err != nil {
					r.log.Error("relay mark sent error", "err", err)
				}
			}
		}
	}
}
