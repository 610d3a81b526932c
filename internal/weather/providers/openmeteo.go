package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/i474232898/homie/internal/common"
	"github.com/i474232898/homie/internal/coordinates"
	"github.com/i474232898/homie/internal/weather"
)

const DefaultOpenMeteoURL = "https://api.open-meteo.com/v1/forecast"

// OpenMeteoProvider implements the weather.Provider interface for Open-Meteo.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	httpCfg common.RequestConfig
}

func NewOpenMeteoProvider(client *http.Client, baseURL string) *OpenMeteoProvider {
	if baseURL == "" {
		baseURL = DefaultOpenMeteoURL
	}
	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: baseURL,
		httpCfg: common.RequestConfig{
			Client:  client,
			Breaker: common.NewBreaker("openmeteo"),
		},
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) Fetch(ctx context.Context, c coordinates.Coordinates, unit weather.Unit) (weather.Reading, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", strconv.FormatFloat(c.Lat, 'f', -1, 64))
		values.Set("longitude", strconv.FormatFloat(c.Lon, 'f', -1, 64))
		values.Set("temperature_unit", string(unit))
		values.Set("current", "temperature_2m,apparent_temperature,weather_code")

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	var payload struct {
		CurrentUnits struct {
			Temperature string `json:"temperature_2m"`
		} `json:"current_units"`
		Current *struct {
			Temperature         *float64 `json:"temperature_2m"`
			ApparentTemperature *float64 `json:"apparent_temperature"`
			WeatherCode         *int     `json:"weather_code"`
		} `json:"current"`
	}

	if err := common.FetchJSON(ctx, p.httpCfg, buildRequest, &payload); err != nil {
		return weather.Reading{}, err
	}

	cur := payload.Current
	if cur == nil || cur.Temperature == nil || cur.ApparentTemperature == nil || cur.WeatherCode == nil {
		return weather.Reading{}, fmt.Errorf("openmeteo: incomplete current block")
	}

	code := *cur.WeatherCode
	return weather.Reading{
		ProviderName: p.name,
		Temperature:  *cur.Temperature,
		FeelsLike:    *cur.ApparentTemperature,
		Unit:         payload.CurrentUnits.Temperature,
		Code:         &code,
		Status:       weather.StatusForCode(code),
		Condition:    weather.ConditionForCode(code),
	}, nil
}
