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

// OpenMeteoProvider implements weather.Provider against the Open-Meteo daily
// forecast API. It is the primary source: keyless and carries shortwave
// radiation, which the evapotranspiration model needs.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenMeteoProvider(client *http.Client) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: "https://api.open-meteo.com/v1/forecast",
		httpCfg: HTTPClientConfig{
			Client: client,
			Retry:  defaultRetry(),
		},
		circuit: newBreaker("openmeteo"),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) FetchForecast(ctx context.Context, loc weather.Location, days int) (weather.Forecast, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", fmt.Sprintf("%f", loc.Lat))
		values.Set("longitude", fmt.Sprintf("%f", loc.Lon))
		values.Set("daily", "temperature_2m_max,temperature_2m_min,relative_humidity_2m_mean,wind_speed_10m_max,precipitation_probability_max,shortwave_radiation_sum")
		values.Set("wind_speed_unit", "ms")
		values.Set("timezone", "UTC")
		values.Set("forecast_days", strconv.Itoa(days))

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Daily struct {
			Time          []string  `json:"time"`
			TempMax       []float64 `json:"temperature_2m_max"`
			TempMin       []float64 `json:"temperature_2m_min"`
			HumidityMean  []float64 `json:"relative_humidity_2m_mean"`
			WindSpeedMax  []float64 `json:"wind_speed_10m_max"`
			PrecipProbMax []float64 `json:"precipitation_probability_max"`
			RadiationSum  []float64 `json:"shortwave_radiation_sum"`
		} `json:"daily"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	fetchedAt := time.Now().UTC()
	forecast := make(weather.Forecast, 0, len(payload.Daily.Time))
	for i, day := range payload.Daily.Time {
		date, err := time.Parse("2006-01-02", day)
		if err != nil {
			continue
		}

		obs := weather.Observation{
			Location:  loc,
			Date:      date.UTC(),
			FetchedAt: fetchedAt,
		}
		if i < len(payload.Daily.TempMax) {
			obs.TMaxC = payload.Daily.TempMax[i]
		}
		if i < len(payload.Daily.TempMin) {
			obs.TMinC = payload.Daily.TempMin[i]
		}
		if i < len(payload.Daily.HumidityMean) {
			obs.HumidityPct = payload.Daily.HumidityMean[i]
		}
		if i < len(payload.Daily.WindSpeedMax) {
			obs.WindSpeedMS = payload.Daily.WindSpeedMax[i]
		}
		if i < len(payload.Daily.PrecipProbMax) {
			obs.PrecipProbPct = payload.Daily.PrecipProbMax[i]
		}
		if i < len(payload.Daily.RadiationSum) {
			obs.SolarRadiationMJ = payload.Daily.RadiationSum[i]
		}

		forecast = append(forecast, obs)
	}

	if len(forecast) == 0 {
		return nil, fmt.Errorf("openmeteo returned no daily records")
	}
	return forecast, nil
}
