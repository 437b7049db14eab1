package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/agroflow/irrigation-advisor/internal/weather"
)

// Scheduler periodically prefetches forecasts for registered field locations
// so the cache is warm before farmer requests arrive and can serve as a
// fallback when providers go down mid-day.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   *weather.Service
	locations []weather.Location
	days      int
	interval  time.Duration
	log       *slog.Logger
}

// New creates a Scheduler.
func New(locations []weather.Location, interval time.Duration, days int, service *weather.Service, log *slog.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		service:   service,
		locations: locations,
		days:      days,
		interval:  interval,
		log:       log,
	}
}

// Start schedules the periodic prefetch and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if len(s.locations) == 0 {
		s.log.Info("no field locations configured; prefetch disabled")
		return nil
	}

	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 60
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(func() {
		s.log.Debug("running forecast prefetch", "locations", len(s.locations))

		var wg sync.WaitGroup
		for _, loc := range s.locations {
			loc := loc
			wg.Add(1)
			go func() {
				defer wg.Done()

				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
				defer cancel()

				if _, err := s.service.Forecast(ctx, loc, s.days); err != nil {
					s.log.Warn("prefetch failed", "location", loc.Key(), "error", err)
				}
			}()
		}
		wg.Wait()
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
