package store

import (
	"context"
	"log"
	"sync/atomic"
	"time"
)

// Health supervises store connectivity. Request handling is gated on Ready,
// so a lost backend fails requests fast with 503 instead of hanging them.
type Health struct {
	store    Store
	interval time.Duration
	ready    atomic.Bool
}

// NewHealth probes immediately and then on the given interval until ctx is
// cancelled.
func NewHealth(ctx context.Context, s Store, interval time.Duration) *Health {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	h := &Health{store: s, interval: interval}
	h.probe(ctx)
	go h.loop(ctx)
	return h
}

func (h *Health) loop(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			h.probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (h *Health) probe(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	err := h.store.Ping(pingCtx)
	was := h.ready.Swap(err == nil)
	if err != nil && was {
		log.Printf("store became unreachable: %v", err)
	} else if err == nil && !was {
		log.Println("store ready")
	}
}

// Ready reports the last probe result.
func (h *Health) Ready() bool { return h.ready.Load() }
