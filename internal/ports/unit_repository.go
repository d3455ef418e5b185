package ports

import (
	"context"
	"unit-finder/internal/domain"
)

// Port: a boundary for retrieving treatment units from the search backend.
type UnitRepository interface {
	// Retrieve units around a coordinate.
	FetchByLocation(ctx context.Context, c domain.Coordinates, radiusMeters int) ([]domain.HealthUnit, error)
	// Retrieve units around a named city. The backend may echo the
	// location it geocoded the city to; nil when it sent none.
	FetchByCity(ctx context.Context, city string, radiusMeters int) ([]domain.HealthUnit, *domain.SearchLocation, error)
}
