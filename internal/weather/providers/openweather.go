package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/i474232898/homie/internal/common"
	"github.com/i474232898/homie/internal/coordinates"
	"github.com/i474232898/homie/internal/weather"
)

const DefaultOpenWeatherURL = "https://api.openweathermap.org/data/2.5/weather"

var ErrMissingAPIKey = errors.New("api key is not configured")

// OpenWeatherProvider implements the weather.Provider interface for OpenWeatherMap.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg common.RequestConfig
}

func NewOpenWeatherProvider(client *http.Client, apiKey string) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: DefaultOpenWeatherURL,
		httpCfg: common.RequestConfig{
			Client:  client,
			Breaker: common.NewBreaker("openweather"),
		},
	}
}

// WithBaseURL overrides the endpoint, mostly for tests.
func (p *OpenWeatherProvider) WithBaseURL(u string) *OpenWeatherProvider {
	p.baseURL = u
	return p
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

func (p *OpenWeatherProvider) Fetch(ctx context.Context, c coordinates.Coordinates, unit weather.Unit) (weather.Reading, error) {
	if p.apiKey == "" {
		return weather.Reading{}, fmt.Errorf("openweather: %w", ErrMissingAPIKey)
	}

	units := "metric"
	if unit == weather.Fahrenheit {
		units = "imperial"
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("appid", p.apiKey)
		values.Set("units", units)
		values.Set("lat", strconv.FormatFloat(c.Lat, 'f', -1, 64))
		values.Set("lon", strconv.FormatFloat(c.Lon, 'f', -1, 64))

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	var payload struct {
		Main *struct {
			Temp      float64 `json:"temp"`
			FeelsLike float64 `json:"feels_like"`
		} `json:"main"`
		Weather []openWeatherItem `json:"weather"`
	}

	if err := common.FetchJSON(ctx, p.httpCfg, buildRequest, &payload); err != nil {
		return weather.Reading{}, err
	}
	if payload.Main == nil {
		return weather.Reading{}, fmt.Errorf("openweather: missing main block")
	}

	status := ""
	if len(payload.Weather) > 0 {
		status = capitalize(payload.Weather[0].Description)
	}

	return weather.Reading{
		ProviderName: p.name,
		Temperature:  payload.Main.Temp,
		FeelsLike:    payload.Main.FeelsLike,
		Unit:         unit.Symbol(),
		Status:       status,
		Condition:    mapOpenWeatherCondition(payload.Weather),
	}, nil
}

type openWeatherItem struct {
	Main        string `json:"main"`
	Description string `json:"description"`
}

func mapOpenWeatherCondition(items []openWeatherItem) weather.Condition {
	if len(items) == 0 {
		return weather.ConditionUnknown
	}
	switch items[0].Main {
	case "Clear":
		return weather.ConditionClear
	case "Clouds":
		return weather.ConditionCloudy
	case "Mist", "Fog", "Haze", "Smoke":
		return weather.ConditionFog
	case "Rain", "Drizzle":
		return weather.ConditionRain
	case "Snow":
		return weather.ConditionSnow
	case "Thunderstorm":
		return weather.ConditionStorm
	default:
		return weather.ConditionUnknown
	}
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
