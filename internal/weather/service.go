package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrWeatherUnavailable reports that every configured provider failed and no
// usable cached data exists.
var ErrWeatherUnavailable = errors.New("weather unavailable")

// Service orchestrates forecast acquisition: providers in priority order,
// per-day validation, and write-through to the cache on success.
type Service struct {
	providers []Provider
	cache     *Cache
	maxAge    time.Duration
	log       *slog.Logger
}

// NewService creates a Service. Providers are tried in slice order; the first
// is the primary source. maxAge bounds what Get considers a fresh cache hit.
func NewService(providers []Provider, cache *Cache, maxAge time.Duration, log *slog.Logger) *Service {
	return &Service{
		providers: providers,
		cache:     cache,
		maxAge:    maxAge,
		log:       log,
	}
}

// Cache exposes the underlying cache for degraded-mode reads by the pipeline.
func (s *Service) Cache() *Cache {
	return s.cache
}

// MaxAge returns the configured freshness window.
func (s *Service) MaxAge() time.Duration {
	return s.maxAge
}

// Forecast fetches a validated multi-day forecast for a location. Providers
// are tried in order; each already retries internally. A provider response
// where more than half of the requested days are missing or fail validation
// is treated as a failed fetch. On success the forecast is committed to the cache, even if
// the requesting pipeline later times out.
func (s *Service) Forecast(ctx context.Context, loc Location, days int) (Forecast, error) {
	if days <= 0 || days > 7 {
		return nil, fmt.Errorf("days must be in [1,7], got %d", days)
	}
	if len(s.providers) == 0 {
		return nil, fmt.Errorf("%w: no providers configured", ErrWeatherUnavailable)
	}

	var lastErr error
	for _, p := range s.providers {
		raw, err := p.FetchForecast(ctx, loc, days)
		if err != nil {
			// A spent deadline is the caller's failure, not a source outage;
			// report it as such so nobody downgrades to cached data over it.
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			s.log.Warn("provider fetch failed",
				"provider", p.Name(), "location", loc.Key(), "error", err)
			lastErr = err
			continue
		}

		valid := make(Forecast, 0, len(raw))
		// Days the provider never returned count as dropped too.
		dropped := days - len(raw)
		if dropped < 0 {
			dropped = 0
		}
		for _, obs := range raw {
			if err := obs.Validate(); err != nil {
				s.log.Warn("dropping invalid forecast day",
					"provider", p.Name(), "location", loc.Key(), "error", err)
				dropped++
				continue
			}
			valid = append(valid, obs)
		}

		// More than half the requested days unusable means the provider's
		// payload cannot be trusted at all.
		if dropped*2 > days {
			s.log.Warn("provider exceeded partial-failure threshold",
				"provider", p.Name(), "location", loc.Key(),
				"dropped", dropped, "requested", days)
			lastErr = fmt.Errorf("provider %s: %d of %d requested days unusable", p.Name(), dropped, days)
			continue
		}
		if len(valid) == 0 {
			lastErr = fmt.Errorf("provider %s: no valid days", p.Name())
			continue
		}

		if err := s.cache.Put(loc, valid); err != nil {
			s.log.Error("cache put failed", "location", loc.Key(), "error", err)
		}
		return valid, nil
	}

	return nil, fmt.Errorf("%w: %w", ErrWeatherUnavailable, lastErr)
}
