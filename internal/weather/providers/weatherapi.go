package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/agroflow/irrigation-advisor/internal/weather"
)

// WeatherAPIProvider implements weather.Provider against WeatherAPI.com's
// forecast endpoint. Used as the secondary source when Open-Meteo is down.
// WeatherAPI does not report shortwave radiation; that field is left zero and
// filled by the feature engine's imputation step.
type WeatherAPIProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewWeatherAPIProvider(client *http.Client, apiKey string) *WeatherAPIProvider {
	return &WeatherAPIProvider{
		name:    "weatherapi",
		apiKey:  apiKey,
		baseURL: "https://api.weatherapi.com/v1/forecast.json",
		httpCfg: HTTPClientConfig{
			Client: client,
			Retry:  defaultRetry(),
		},
		circuit: newBreaker("weatherapi"),
	}
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

func (p *WeatherAPIProvider) FetchForecast(ctx context.Context, loc weather.Location, days int) (weather.Forecast, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("weatherapi api key is not configured")
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("key", p.apiKey)
		values.Set("q", fmt.Sprintf("%f,%f", loc.Lat, loc.Lon))
		values.Set("days", strconv.Itoa(days))

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Forecast struct {
			ForecastDay []struct {
				Date string `json:"date"`
				Day  struct {
					MaxTempC     float64 `json:"maxtemp_c"`
					MinTempC     float64 `json:"mintemp_c"`
					AvgHumidity  float64 `json:"avghumidity"`
					MaxWindKph   float64 `json:"maxwind_kph"`
					RainChance   float64 `json:"daily_chance_of_rain"`
					TotalPrecip  float64 `json:"totalprecip_mm"`
					UVIndex      float64 `json:"uv"`
					AvgVisibleKm float64 `json:"avgvis_km"`
				} `json:"day"`
			} `json:"forecastday"`
		} `json:"forecast"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	fetchedAt := time.Now().UTC()
	forecast := make(weather.Forecast, 0, len(payload.Forecast.ForecastDay))
	for _, fd := range payload.Forecast.ForecastDay {
		date, err := time.Parse("2006-01-02", fd.Date)
		if err != nil {
			continue
		}

		forecast = append(forecast, weather.Observation{
			Location:      loc,
			Date:          date.UTC(),
			TMaxC:         fd.Day.MaxTempC,
			TMinC:         fd.Day.MinTempC,
			HumidityPct:   fd.Day.AvgHumidity,
			WindSpeedMS:   fd.Day.MaxWindKph / 3.6,
			PrecipProbPct: fd.Day.RainChance,
			FetchedAt:     fetchedAt,
		})
	}

	if len(forecast) == 0 {
		return nil, fmt.Errorf("weatherapi returned no forecast days")
	}
	return forecast, nil
}
