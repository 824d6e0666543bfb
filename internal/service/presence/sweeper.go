// Package presence evicts participants that stopped sending heartbeats.
package presence

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/batepapo/backend/internal/model/chat"
	"github.com/batepapo/backend/internal/store"
)

// Sweeper periodically removes silent participants and announces their
// departure.
type Sweeper struct {
	store     store.Store
	log       *slog.Logger
	interval  time.Duration
	threshold time.Duration
	now       func() time.Time
}

// NewSweeper builds a sweeper running every interval and evicting anyone
// silent for longer than threshold.
func NewSweeper(st store.Store, log *slog.Logger, interval, threshold time.Duration) *Sweeper {
	return &Sweeper{
		store:     st,
		log:       log,
		interval:  interval,
		threshold: threshold,
		now:       time.Now,
	}
}

// Run sweeps on every tick until ctx is cancelled. A failed cycle is
// logged and the next one still runs.
func (s *Sweeper) Run(ctx context.Context) error {
	s.log.Info("starting presence sweeper", "interval", s.interval, "threshold", s.threshold)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("presence sweeper stopped")
			return nil
		case <-ticker.C:
			removed, err := s.Sweep(ctx)
			if err != nil {
				s.log.Error("sweep failed", "err", err)
				continue
			}
			if removed > 0 {
				s.log.Info("sweep finished", "removed", removed)
			}
		}
	}
}

// Sweep runs one cycle and returns how many participants were removed.
// Participants are handled one after the other so departure notices keep
// their order; one failed removal does not stop the rest.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := s.now()
	silent, err := s.store.Participants().ListSilent(ctx, chat.Cutoff(now, s.threshold))
	if err != nil {
		return 0, fmt.Errorf("list silent participants: %w", err)
	}

	removed := 0
	for _, p := range silent {
		if err := s.evict(ctx, p.Name, now); err != nil {
			s.log.Warn("eviction failed", "name", p.Name, "err", err)
			continue
		}
		removed++
	}
	return removed, nil
}

func (s *Sweeper) evict(ctx context.Context, name string, now time.Time) error {
	if err := s.store.Participants().Delete(ctx, name); err != nil {
		return fmt.Errorf("delete participant: %w", err)
	}
	if _, err := s.store.Messages().Insert(ctx, chat.NewStatus(name, chat.LeaveText, now)); err != nil {
		return fmt.Errorf("announce departure: %w", err)
	}
	s.log.Debug("participant evicted", "name", name)
	return nil
}
