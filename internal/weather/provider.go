package weather

import (
	"context"
)

// Provider abstracts an external forecast source (e.g. Open-Meteo, WeatherAPI).
// Implementations handle their own retries, timeouts, and circuit breaking;
// callers only see success or a terminal error.
type Provider interface {
	Name() string
	FetchForecast(ctx context.Context, loc Location, days int) (Forecast, error)
}
