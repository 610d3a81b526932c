package coordinates

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/i474232898/homie/internal/common"
)

// StaticLocator always reports a configured position.
type StaticLocator struct {
	coords Coordinates
}

func NewStaticLocator(lat, lon float64) *StaticLocator {
	return &StaticLocator{coords: Coordinates{Lat: lat, Lon: lon}}
}

func (l *StaticLocator) Name() string {
	return "static"
}

func (l *StaticLocator) Locate(ctx context.Context) (Coordinates, error) {
	return l.coords, nil
}

// DefaultIPAPIURL is the ip-api.com endpoint restricted to the fields we read.
const DefaultIPAPIURL = "http://ip-api.com/json/?fields=status,message,lat,lon"

// IPAPILocator estimates the position from the caller's public IP address.
type IPAPILocator struct {
	url     string
	httpCfg common.RequestConfig
}

func NewIPAPILocator(client *http.Client, url string) *IPAPILocator {
	if url == "" {
		url = DefaultIPAPIURL
	}
	return &IPAPILocator{
		url: url,
		httpCfg: common.RequestConfig{
			Client:  client,
			Breaker: common.NewBreaker("ipapi"),
		},
	}
}

func (l *IPAPILocator) Name() string {
	return "ipapi"
}

func (l *IPAPILocator) Locate(ctx context.Context) (Coordinates, error) {
	var payload struct {
		Status  string  `json:"status"`
		Message string  `json:"message"`
		Lat     float64 `json:"lat"`
		Lon     float64 `json:"lon"`
	}

	err := common.FetchJSON(ctx, l.httpCfg, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, l.url, nil)
	}, &payload)
	if err != nil {
		return Coordinates{}, err
	}

	if payload.Status != "success" {
		return Coordinates{}, fmt.Errorf("ipapi lookup failed: %s", payload.Message)
	}

	return Coordinates{Lat: payload.Lat, Lon: payload.Lon}, nil
}

// timeoutFrom returns the time left on ctx, or def when ctx has no deadline.
func timeoutFrom(ctx context.Context, def time.Duration) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left > 0 {
			return left
		}
	}
	return def
}
