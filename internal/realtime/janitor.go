package realtime

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Janitor periodically expires stale typing indicators. The read-path
// pruning in Registry.TypingUsers is a best-effort optimization; this sweep
// is the authoritative cleanup and also covers channels nobody reads.
type Janitor struct {
	reg      *Registry
	interval time.Duration
	maxAge   time.Duration
	log      *zerolog.Logger
}

// NewJanitor builds a janitor with the standard 5s interval and 10s hard
// expiry.
func NewJanitor(reg *Registry, logger *zerolog.Logger) *Janitor {
	return &Janitor{
		reg:      reg,
		interval: TypingSoftExpiry,
		maxAge:   TypingHardExpiry,
		log:      logger,
	}
}

// NewJanitorWithTimings builds a janitor with custom timings, used by tests.
func NewJanitorWithTimings(reg *Registry, interval, maxAge time.Duration, logger *zerolog.Logger) *Janitor {
	return &Janitor{reg: reg, interval: interval, maxAge: maxAge, log: logger}
}

// Run sweeps on a fixed interval until the context is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := j.reg.SweepTyping(j.maxAge); n > 0 {
				j.log.Debug().Int("expired", n).Msg("swept stale typing indicators")
			}
		}
	}
}
