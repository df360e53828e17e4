package reservation

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Reaper periodically sweeps expired pending holds. It replaces the storage
// TTL purge the Express service got from Mongo: the observable behavior is the
// same, expired unpaid holds stop blocking new bookings and get released.
type Reaper struct {
	Service  *Service
	Interval time.Duration

	stop chan struct{}
	done chan struct{}
}

// Start launches the sweep loop. It returns immediately.
func (r *Reaper) Start() {
	if r.Interval <= 0 {
		r.Interval = time.Minute
	}
	r.stop = make(chan struct{})
	r.done = make(chan struct{})

	go func() {
		defer close(r.done)
		ticker := time.NewTicker(r.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-r.stop:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				released, err := r.Service.SweepExpiredHolds(ctx)
				cancel()
				if err != nil {
					log.Error().Err(err).Msg("hold sweep failed")
				} else if released > 0 {
					log.Info().Int("released", released).Msg("expired holds released")
				}
			}
		}
	}()
}

// Stop halts the sweep loop and waits for the in-flight sweep to finish.
func (r *Reaper) Stop() {
	if r.stop == nil {
		return
	}
	close(r.stop)
	<-r.done
}
