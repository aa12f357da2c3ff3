package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Janitor periodically evicts rooms that have been empty for longer than
// Horizon. It does nothing when Horizon is zero.
type Janitor struct {
	Rooms    *RoomManager
	Horizon  time.Duration
	Interval time.Duration
}

func (j Janitor) Run(ctx context.Context) error {
	if j.Horizon <= 0 {
		return nil
	}
	interval := j.Interval
	if interval <= 0 {
		interval = j.Horizon
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	log.Info().Str("module", "app.janitor").Dur("horizon", j.Horizon).Dur("interval", interval).Msg("room janitor started")
	for {
		select {
		case <-t.C:
			if n := len(j.Rooms.EvictIdle(j.Horizon)); n > 0 {
				log.Info().Str("module", "app.janitor").Int("evicted", n).Msg("evicted idle rooms")
			}
		case <-ctx.Done():
			return nil
		}
	}
}
