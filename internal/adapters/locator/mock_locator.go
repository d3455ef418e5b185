package locator

import (
	"context"
	"unit-finder/internal/domain"
)

// MockLocator returns a scripted position or error. When Gate is set,
// Locate blocks until the gate is closed or ctx ends.
type MockLocator struct {
	Position domain.Coordinates
	Err      error
	Gate     chan struct{}
}

func (m *MockLocator) Locate(ctx context.Context) (domain.Coordinates, error) {
	if m.Gate != nil {
		select {
		case <-m.Gate:
		case <-ctx.Done():
			return domain.Coordinates{}, &domain.LocationError{Code: classifyContext(ctx.Err()), Err: ctx.Err()}
		}
	}
	if m.Err != nil {
		return domain.Coordinates{}, m.Err
	}
	return m.Position, nil
}
