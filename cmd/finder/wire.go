package main

import (
	"fmt"
	"io"
	"unit-finder/internal/adapters/locator"
	"unit-finder/internal/adapters/render"
	"unit-finder/internal/adapters/unitapi"
	"unit-finder/internal/config"
	"unit-finder/internal/domain"
	"unit-finder/internal/ports"
	"unit-finder/internal/services"

	"go.uber.org/zap"
)

// newFinder is the composition root: it wires the configured adapters
// behind the ports and returns the view state machine.
func newFinder(c *config.Config, out io.Writer, log *zap.Logger) (*services.Finder, error) {
	loc, err := newLocator(c.Locator, log)
	if err != nil {
		return nil, err
	}

	repo, err := unitapi.NewClient(c.API.BaseURL, c.API.Timeout, log)
	if err != nil {
		return nil, fmt.Errorf("new finder: %w", err)
	}

	return services.NewFinder(loc, repo, newRenderer(c, out), finderConfig(c), log)
}

func newLocator(c config.LocatorConfig, log *zap.Logger) (ports.GeoLocator, error) {
	switch c.Kind {
	case "static":
		if c.DeviceLat == nil || c.DeviceLon == nil {
			return locator.UnsupportedLocator{}, nil
		}
		return locator.NewStaticLocator(domain.Coordinates{Lat: *c.DeviceLat, Lon: *c.DeviceLon})
	case "ip":
		return locator.NewIPLocator(c.IPLookupURL, ports.LocateOptions{
			EnableHighAccuracy: c.EnableHighAccuracy,
			Timeout:            c.Timeout,
			MaximumAge:         c.MaximumAge,
		}, log), nil
	default:
		return locator.UnsupportedLocator{}, nil
	}
}

func newRenderer(c *config.Config, out io.Writer) ports.MapRenderer {
	if c.Output == "geojson" {
		return render.NewGeoJSONRenderer(out, c.Map.Icons.WithDefaults())
	}
	r := render.NewTextRenderer(out)
	r.Quiet = true
	return r
}

func finderConfig(c *config.Config) services.FinderConfig {
	return services.FinderConfig{
		RadiusMeters:     c.API.RadiusMeters,
		MaxResults:       c.API.MaxResults,
		DefaultCenter:    domain.Coordinates{Lat: c.Map.DefaultLat, Lon: c.Map.DefaultLon},
		DefaultZoom:      c.Map.DefaultZoom,
		NeighborhoodZoom: c.Map.NeighborhoodZoom,
		FocusZoom:        c.Map.FocusZoom,
	}
}
