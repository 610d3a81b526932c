package coordinates

import (
	"context"

	"googlemaps.github.io/maps"
)

// GoogleLocator uses the Google Maps Geolocation API.
type GoogleLocator struct {
	client *maps.Client
}

// NewGoogleLocator creates a new GoogleLocator instance.
func NewGoogleLocator(apiKey string) (*GoogleLocator, error) {
	c, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	return &GoogleLocator{client: c}, nil
}

func (g *GoogleLocator) Name() string {
	return "google"
}

// Locate asks Google to geolocate the caller from its IP address.
func (g *GoogleLocator) Locate(ctx context.Context) (Coordinates, error) {
	resp, err := g.client.Geolocate(ctx, &maps.GeolocationRequest{ConsiderIP: true})
	if err != nil {
		return Coordinates{}, err
	}

	return Coordinates{
		Lat: resp.Location.Lat,
		Lon: resp.Location.Lng,
	}, nil
}
