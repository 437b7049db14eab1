package config

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelvins/geocoder"

	"github.com/agroflow/irrigation-advisor/internal/weather"
)

// AppConfig holds the full runtime configuration. Tuning values the product
// has not settled on (confidence threshold, discrepancy tolerance) live here
// as named settings rather than literals in the code.
type AppConfig struct {
	Env      string
	Port     string
	LogLevel slog.Level

	// Provider credentials. Open-Meteo is keyless.
	WeatherAPIKey string

	// Forecast acquisition.
	ForecastDays   int
	CacheMaxAge    time.Duration
	HTTPTimeout    time.Duration
	PrefetchEvery  time.Duration
	FieldLocations []weather.Location

	// Feature derivation tunables.
	SensorFreshness      time.Duration
	DiscrepancyTolerance float64

	// Prediction tunables.
	ConfidenceThreshold float64

	// Delivery gateways.
	WhatsAppGatewayURL string
	WhatsAppAPIKey     string
	SMSGatewayURL      string
	SMSAPIKey          string

	// Capacity model.
	QueueCapacity   int
	Workers         int
	RequestDeadline time.Duration

	// Audit retention.
	AuditMaxRecords int
	AuditMaxAge     time.Duration
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{}

	cfg.Env = getenvDefault("APP_ENV", "dev")
	cfg.Port = getenvDefault("PORT", "8080")
	cfg.LogLevel = parseLogLevel(getenvDefault("LOG_LEVEL", "info"))

	cfg.WeatherAPIKey = os.Getenv("WEATHERAPI_API_KEY")

	cfg.ForecastDays = getenvInt("FORECAST_DAYS", 7)
	if cfg.ForecastDays < 1 || cfg.ForecastDays > 7 {
		return nil, fmt.Errorf("FORECAST_DAYS must be in [1,7], got %d", cfg.ForecastDays)
	}

	var err error
	if cfg.CacheMaxAge, err = getenvDuration("CACHE_MAX_AGE", "6h"); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "30s"); err != nil {
		return nil, err
	}
	if cfg.PrefetchEvery, err = getenvDuration("PREFETCH_INTERVAL", "1h"); err != nil {
		return nil, err
	}
	if cfg.SensorFreshness, err = getenvDuration("SENSOR_FRESHNESS", "1h"); err != nil {
		return nil, err
	}
	if cfg.RequestDeadline, err = getenvDuration("REQUEST_DEADLINE", "45s"); err != nil {
		return nil, err
	}
	if cfg.AuditMaxAge, err = getenvDuration("AUDIT_MAX_AGE", "720h"); err != nil {
		return nil, err
	}

	cfg.DiscrepancyTolerance = getenvFloat("SENSOR_DISCREPANCY_TOLERANCE", 15)
	cfg.ConfidenceThreshold = getenvFloat("CONFIDENCE_THRESHOLD", 0.5)

	cfg.WhatsAppGatewayURL = os.Getenv("WHATSAPP_GATEWAY_URL")
	cfg.WhatsAppAPIKey = os.Getenv("WHATSAPP_API_KEY")
	cfg.SMSGatewayURL = os.Getenv("SMS_GATEWAY_URL")
	cfg.SMSAPIKey = os.Getenv("SMS_API_KEY")

	cfg.QueueCapacity = getenvInt("QUEUE_CAPACITY", 1000)
	cfg.Workers = getenvInt("WORKERS", 32)
	cfg.AuditMaxRecords = getenvInt("AUDIT_MAX_RECORDS", 10000)

	locs, err := loadFieldLocations()
	if err != nil {
		return nil, err
	}
	cfg.FieldLocations = locs

	return cfg, nil
}

// loadFieldLocations reads the tracked field locations from the environment.
// Coordinates may be given directly; otherwise they are geocoded from the
// city/country pair when a geocoding key is configured.
func loadFieldLocations() ([]weather.Location, error) {
	names := splitList(os.Getenv("FIELD_LOCATION_NAMES"))
	countries := splitList(os.Getenv("FIELD_LOCATION_COUNTRIES"))
	lats := splitList(os.Getenv("FIELD_LOCATION_LATS"))
	lons := splitList(os.Getenv("FIELD_LOCATION_LONS"))

	if len(names) == 0 {
		return nil, nil
	}
	if len(countries) != len(names) {
		return nil, fmt.Errorf("FIELD_LOCATION_NAMES and FIELD_LOCATION_COUNTRIES must have the same length")
	}

	geocoder.ApiKey = os.Getenv("GEOCODER_API_KEY")

	locs := make([]weather.Location, 0, len(names))
	for i := range names {
		loc := weather.Location{Name: names[i], Country: countries[i]}

		if i < len(lats) && i < len(lons) {
			lat, latErr := strconv.ParseFloat(lats[i], 64)
			lon, lonErr := strconv.ParseFloat(lons[i], 64)
			if latErr == nil && lonErr == nil {
				loc.Lat, loc.Lon = lat, lon
				locs = append(locs, loc)
				continue
			}
		}

		if geocoder.ApiKey == "" {
			return nil, fmt.Errorf("location %s has no coordinates and GEOCODER_API_KEY is not set", loc.Key())
		}
		coords, err := geocoder.Geocoding(geocoder.Address{City: loc.Name, Country: loc.Country})
		if err != nil {
			return nil, fmt.Errorf("geocoding %s: %w", loc.Key(), err)
		}
		loc.Lat, loc.Lon = coords.Latitude, coords.Longitude
		locs = append(locs, loc)
	}

	return locs, nil
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
