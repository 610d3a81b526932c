package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/i474232898/homie/internal/common"
	"github.com/i474232898/homie/internal/coordinates"
	"github.com/i474232898/homie/internal/weather"
)

const DefaultWeatherAPIURL = "https://api.weatherapi.com/v1/current.json"

// WeatherAPIProvider implements the weather.Provider interface for WeatherAPI.com.
type WeatherAPIProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg common.RequestConfig
}

func NewWeatherAPIProvider(client *http.Client, apiKey string) *WeatherAPIProvider {
	return &WeatherAPIProvider{
		name:    "weatherapi",
		apiKey:  apiKey,
		baseURL: DefaultWeatherAPIURL,
		httpCfg: common.RequestConfig{
			Client:  client,
			Breaker: common.NewBreaker("weatherapi"),
		},
	}
}

// WithBaseURL overrides the endpoint, mostly for tests.
func (p *WeatherAPIProvider) WithBaseURL(u string) *WeatherAPIProvider {
	p.baseURL = u
	return p
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

func (p *WeatherAPIProvider) Fetch(ctx context.Context, c coordinates.Coordinates, unit weather.Unit) (weather.Reading, error) {
	if p.apiKey == "" {
		return weather.Reading{}, fmt.Errorf("weatherapi: %w", ErrMissingAPIKey)
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("key", p.apiKey)
		// WeatherAPI accepts "lat,lon" in q.
		values.Set("q", fmt.Sprintf("%f,%f", c.Lat, c.Lon))

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	var payload struct {
		Current *struct {
			TempC      float64 `json:"temp_c"`
			TempF      float64 `json:"temp_f"`
			FeelsLikeC float64 `json:"feelslike_c"`
			FeelsLikeF float64 `json:"feelslike_f"`
			Condition  struct {
				Text string `json:"text"`
			} `json:"condition"`
		} `json:"current"`
	}

	if err := common.FetchJSON(ctx, p.httpCfg, buildRequest, &payload); err != nil {
		return weather.Reading{}, err
	}
	if payload.Current == nil {
		return weather.Reading{}, fmt.Errorf("weatherapi: missing current block")
	}

	cur := payload.Current
	temp, feels := cur.TempC, cur.FeelsLikeC
	if unit == weather.Fahrenheit {
		temp, feels = cur.TempF, cur.FeelsLikeF
	}

	return weather.Reading{
		ProviderName: p.name,
		Temperature:  temp,
		FeelsLike:    feels,
		Unit:         unit.Symbol(),
		Status:       strings.TrimSpace(cur.Condition.Text),
		Condition:    mapWeatherAPICondition(cur.Condition.Text),
	}, nil
}

func mapWeatherAPICondition(text string) weather.Condition {
	switch {
	case text == "":
		return weather.ConditionUnknown
	case contains(text, "thunder") || contains(text, "storm"):
		return weather.ConditionStorm
	case contains(text, "snow") || contains(text, "sleet") || contains(text, "blizzard"):
		return weather.ConditionSnow
	case contains(text, "rain") || contains(text, "shower") || contains(text, "drizzle"):
		return weather.ConditionRain
	case contains(text, "fog") || contains(text, "mist"):
		return weather.ConditionFog
	case contains(text, "cloud") || contains(text, "overcast"):
		return weather.ConditionCloudy
	case contains(text, "sunny") || contains(text, "clear"):
		return weather.ConditionClear
	default:
		return weather.ConditionUnknown
	}
}

func contains(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
