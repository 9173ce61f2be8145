package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/spacelift-io/flows-app-aws-resources/internal/resource"
)

// Managed pairs a store slot with the declared instance to converge.
type Managed struct {
	Slot     string
	Instance resource.Instance
}

// Watch re-syncs every managed instance on interval until ctx is canceled.
// Each instance gets its own loop, so a resource stuck polling a slow
// operation never delays the drift checks of the others.
func (s *Scheduler) Watch(ctx context.Context, managed []Managed, interval time.Duration) {
	var wg sync.WaitGroup
	for _, m := range managed {
		wg.Add(1)
		go func(m Managed) {
			defer wg.Done()
			s.watchOne(ctx, m, interval)
		}(m)
	}
	wg.Wait()
}

func (s *Scheduler) watchOne(ctx context.Context, m Managed, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, res, err := s.RunSync(ctx, m.Slot, m.Instance); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn().Err(err).Str("instance", m.Slot).Msg("Sync pass failed")
		} else if res.Status == resource.StatusFailed {
			// Terminal for the engine; the next tick re-evaluates from
			// scratch, which is the caller-initiated retry the status
			// model expects.
			log.Error().Str("instance", m.Slot).Str("detail", res.Description).Msg("Instance failed")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
