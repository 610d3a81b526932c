package providers

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kelvins/geocoder"
	"github.com/sony/gobreaker"

	"github.com/i474232898/homie/internal/common"
	"github.com/i474232898/homie/internal/coordinates"
	"github.com/i474232898/homie/internal/location"
)

var errNoAddress = errors.New("no address for coordinates")

// geocoderMu guards the package-level API key of the geocoder library.
var geocoderMu sync.Mutex

// Google implements location.ReverseGeocoder with the Google Geocoding API.
type Google struct {
	name    string
	apiKey  string
	circuit *gobreaker.CircuitBreaker
}

func NewGoogle(apiKey string) *Google {
	return &Google{
		name:    "google",
		apiKey:  apiKey,
		circuit: common.NewBreaker("google-geocoder"),
	}
}

func (g *Google) Name() string {
	return g.name
}

func (g *Google) Reverse(ctx context.Context, c coordinates.Coordinates) (location.Place, error) {
	if g.apiKey == "" {
		return location.Place{}, fmt.Errorf("google geocoder api key is not configured")
	}
	if err := ctx.Err(); err != nil {
		return location.Place{}, err
	}

	result, err := g.circuit.Execute(func() (interface{}, error) {
		geocoderMu.Lock()
		defer geocoderMu.Unlock()

		geocoder.ApiKey = g.apiKey
		return geocoder.GeocodingReverse(geocoder.Location{
			Latitude:  c.Lat,
			Longitude: c.Lon,
		})
	})
	if err != nil {
		return location.Place{}, err
	}

	addresses, _ := result.([]geocoder.Address)
	return placeFromAddresses(addresses)
}

// placeFromAddresses takes the first address, using the county when no city is set.
func placeFromAddresses(addresses []geocoder.Address) (location.Place, error) {
	if len(addresses) == 0 {
		return location.Place{}, errNoAddress
	}

	addr := addresses[0]
	city := addr.City
	if city == "" {
		city = addr.County
	}

	return location.Place{
		City:          city,
		StateProvince: addr.State,
	}, nil
}
