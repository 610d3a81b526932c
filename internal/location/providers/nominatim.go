package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/i474232898/homie/internal/common"
	"github.com/i474232898/homie/internal/coordinates"
	"github.com/i474232898/homie/internal/location"
)

const DefaultNominatimURL = "https://nominatim.openstreetmap.org"

// Nominatim implements location.ReverseGeocoder for OpenStreetMap Nominatim.
type Nominatim struct {
	name      string
	baseURL   string
	userAgent string
	httpCfg   common.RequestConfig
}

// NewNominatim creates a Nominatim client. Nominatim's usage policy requires
// an identifying User-Agent.
func NewNominatim(client *http.Client, baseURL, userAgent string) *Nominatim {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	return &Nominatim{
		name:      "nominatim",
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		httpCfg: common.RequestConfig{
			Client:  client,
			Breaker: common.NewBreaker("nominatim"),
		},
	}
}

func (n *Nominatim) Name() string {
	return n.name
}

func (n *Nominatim) Reverse(ctx context.Context, c coordinates.Coordinates) (location.Place, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("lat", strconv.FormatFloat(c.Lat, 'f', -1, 64))
		values.Set("lon", strconv.FormatFloat(c.Lon, 'f', -1, 64))
		values.Set("zoom", "10")
		values.Set("format", "jsonv2")

		u := fmt.Sprintf("%s/reverse?%s", n.baseURL, values.Encode())
		req, err := http.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		if n.userAgent != "" {
			req.Header.Set("User-Agent", n.userAgent)
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}

	var payload struct {
		Name    string `json:"name"`
		Error   string `json:"error"`
		Address struct {
			State string `json:"state"`
		} `json:"address"`
	}

	if err := common.FetchJSON(ctx, n.httpCfg, buildRequest, &payload); err != nil {
		return location.Place{}, err
	}

	// Nominatim reports "Unable to geocode" with a 200 status.
	if payload.Error != "" {
		return location.Place{}, fmt.Errorf("nominatim: %s", payload.Error)
	}

	return location.Place{
		City:          payload.Name,
		StateProvince: payload.Address.State,
	}, nil
}
