package jobs

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"offersync/internal/infra"
)

// Sweeper periodically drops expired jobs from the registry.
type Sweeper struct {
	registry *Registry
	cron     *cron.Cron
	logger   infra.Logger
	now      func() time.Time
}

// NewSweeper schedules registry sweeps every interval.
func NewSweeper(registry *Registry, interval time.Duration, logger infra.Logger) (*Sweeper, error) {
	if interval <= 0 {
		interval = time.Hour
	}
	s := &Sweeper{
		registry: registry,
		cron:     cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		logger:   logger,
		now:      time.Now,
	}
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", interval), s.RunOnce); err != nil {
		return nil, fmt.Errorf("schedule job sweep: %w", err)
	}
	return s, nil
}

// RunOnce performs a single sweep.
func (s *Sweeper) RunOnce() {
	removed := s.registry.Sweep(s.now())
	if removed > 0 {
		s.logger.Info().Int("removed", removed).Msg("jobs: swept expired jobs")
	}
}

// Start begins the schedule in its own goroutine.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}
