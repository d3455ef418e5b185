package ports

import (
	"context"
	"time"
	"unit-finder/internal/domain"
)

// Knobs of a device position request.
type LocateOptions struct {
	EnableHighAccuracy bool
	Timeout            time.Duration
	MaximumAge         time.Duration
}

// Defaults used by the website's "use my location" button.
func DefaultLocateOptions() LocateOptions {
	return LocateOptions{
		EnableHighAccuracy: true,
		Timeout:            10 * time.Second,
		MaximumAge:         5 * time.Minute,
	}
}

// Contract for acquiring the current device position.
type GeoLocator interface {
	// Return the device position or a *domain.LocationError.
	Locate(ctx context.Context) (domain.Coordinates, error)
}
