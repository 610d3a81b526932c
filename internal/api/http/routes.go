package httpapi

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/homie/internal/clock"
	"github.com/i474232898/homie/internal/coordinates"
	"github.com/i474232898/homie/internal/dashboard"
	"github.com/i474232898/homie/internal/greeting"
	"github.com/i474232898/homie/internal/search"
	"github.com/i474232898/homie/internal/settings"
	"github.com/i474232898/homie/internal/weather"
)

var validate = validator.New()

type Builder interface {
	Build(ctx context.Context) dashboard.Dashboard
}

type Suggester interface {
	Suggest(ctx context.Context, query string) ([]string, error)
}

// Services are the handlers' dependencies.
type Services struct {
	Dashboard   Builder
	Coordinates dashboard.CoordinatesSource
	Location    dashboard.LocationSource
	Weather     dashboard.WeatherSource
	Quotes      dashboard.QuoteSource
	Greetings   *greeting.Service
	Settings    *settings.Store
	Suggester   Suggester

	// Now defaults to time.Now.
	Now func() time.Time
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, svc Services) {
	if svc.Now == nil {
		svc.Now = time.Now
	}

	v1 := app.Group("/api/v1")

	v1.Get("/dashboard", func(c *fiber.Ctx) error {
		return c.JSON(svc.Dashboard.Build(c.UserContext()))
	})

	v1.Get("/coordinates", func(c *fiber.Ctx) error {
		coords := svc.Coordinates.Coords(c.UserContext())
		if coords == nil {
			return fiber.NewError(fiber.StatusNotFound, "coordinates unavailable")
		}
		return c.JSON(coords)
	})

	v1.Get("/location", func(c *fiber.Ctx) error {
		coords, err := resolveCoords(c, svc.Coordinates)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		loc := svc.Location.Lookup(c.UserContext(), coords)
		if loc == nil {
			return fiber.NewError(fiber.StatusNotFound, "location unavailable")
		}
		return c.JSON(loc)
	})

	v1.Get("/weather", func(c *fiber.Ctx) error {
		coords, err := resolveCoords(c, svc.Coordinates)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		q := unitQuery{Unit: c.Query("unit")}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		unit := weather.Unit(q.Unit)
		if unit == "" {
			unit = svc.Settings.Get().Unit
		}

		cur := svc.Weather.Current(c.UserContext(), coords, unit)
		if cur == nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "weather unavailable")
		}
		return c.JSON(cur)
	})

	v1.Get("/quote", func(c *fiber.Ctx) error {
		q := svc.Quotes.Random(c.UserContext())
		if q == nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "quote unavailable")
		}
		return c.JSON(q)
	})

	v1.Get("/greeting", func(c *fiber.Ctx) error {
		msg := svc.Greetings.Greeting(svc.Now())
		return c.JSON(fiber.Map{
			"greeting": greeting.Personalize(msg, svc.Settings.Get().Username),
		})
	})

	v1.Get("/clock", func(c *fiber.Ctx) error {
		return c.JSON(clock.Format(svc.Now(), svc.Settings.Get().ClockFormat))
	})

	v1.Get("/settings", func(c *fiber.Ctx) error {
		return c.JSON(svc.Settings.Get())
	})

	v1.Patch("/settings", func(c *fiber.Ctx) error {
		var p settings.Patch
		if err := c.BodyParser(&p); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid settings body")
		}

		cur, err := svc.Settings.Update(p)
		if err != nil {
			if errors.Is(err, settings.ErrInvalid) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to save settings")
		}
		return c.JSON(cur)
	})

	v1.Post("/settings/toggle/:name", func(c *fiber.Ctx) error {
		var toggle func() (bool, error)
		switch c.Params("name") {
		case "search":
			toggle = svc.Settings.ToggleSearch
		case "quote":
			toggle = svc.Settings.ToggleQuote
		case "dark":
			toggle = svc.Settings.ToggleDark
		default:
			return fiber.NewError(fiber.StatusNotFound, "unknown toggle")
		}

		on, err := toggle()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to save settings")
		}
		return c.JSON(fiber.Map{
			"name":    c.Params("name"),
			"enabled": on,
		})
	})

	v1.Get("/search", func(c *fiber.Ctx) error {
		u, err := search.URL(c.Query("q"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.Redirect(u, fiber.StatusFound)
	})

	v1.Get("/suggestions", func(c *fiber.Ctx) error {
		out, err := svc.Suggester.Suggest(c.UserContext(), c.Query("q"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, "suggestions unavailable")
		}
		return c.JSON(out)
	})
}

type unitQuery struct {
	Unit string `validate:"omitempty,oneof=celsius fahrenheit"`
}

// coordsQuery holds optional explicit coordinates; both or neither must be set.
type coordsQuery struct {
	Lat *float64 `validate:"omitempty,gte=-90,lte=90"`
	Lon *float64 `validate:"omitempty,gte=-180,lte=180"`
}

// resolveCoords returns the coordinates given in the query, or the current
// ones when the query has none. The result may be nil.
func resolveCoords(c *fiber.Ctx, src dashboard.CoordinatesSource) (*coordinates.Coordinates, error) {
	var q coordsQuery
	var err error
	if q.Lat, err = parseFloatQuery(c, "lat"); err != nil {
		return nil, err
	}
	if q.Lon, err = parseFloatQuery(c, "lon"); err != nil {
		return nil, err
	}
	if (q.Lat == nil) != (q.Lon == nil) {
		return nil, errors.New("lat and lon must be given together")
	}
	if err := validate.Struct(q); err != nil {
		return nil, err
	}

	if q.Lat == nil {
		return src.Coords(c.UserContext()), nil
	}
	coords := coordinates.Coordinates{Lat: *q.Lat, Lon: *q.Lon}.Round()
	return &coords, nil
}

func parseFloatQuery(c *fiber.Ctx, key string) (*float64, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, errors.New("invalid " + key + " query parameter")
	}
	return &v, nil
}
