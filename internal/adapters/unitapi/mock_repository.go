package unitapi

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unit-finder/internal/domain"
)

// MockCity is the canned answer for one city search.
type MockCity struct {
	Name   string
	Center *domain.Coordinates
	Units  []domain.HealthUnit
}

// MockRepository is an in-memory ports.UnitRepository for tests and demos.
// Location searches return every unit; city searches match by folded name.
type MockRepository struct {
	mu     sync.Mutex
	units  []domain.HealthUnit
	cities map[string]MockCity
	err    error
	calls  int
}

func NewMockRepository(units []domain.HealthUnit, cities []MockCity) *MockRepository {
	m := make(map[string]MockCity, len(cities))
	for _, c := range cities {
		m[domain.Fold(c.Name)] = c
	}
	return &MockRepository{units: units, cities: m}
}

// FailWith makes every following call return err.
func (r *MockRepository) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Calls returns how many fetches were issued.
func (r *MockRepository) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func (r *MockRepository) FetchByLocation(ctx context.Context, c domain.Coordinates, radiusMeters int) ([]domain.HealthUnit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++

	if r.err != nil {
		return nil, r.err
	}
	return append([]domain.HealthUnit(nil), r.units...), nil
}

func (r *MockRepository) FetchByCity(ctx context.Context, city string, radiusMeters int) ([]domain.HealthUnit, *domain.SearchLocation, error) {
	if strings.TrimSpace(city) == "" {
		return nil, nil, &domain.FetchError{Kind: domain.FetchEmptyQuery, Err: domain.ErrEmptyCity}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++

	if r.err != nil {
		return nil, nil, r.err
	}

	c, ok := r.cities[domain.Fold(city)]
	if !ok {
		return nil, nil, &domain.FetchError{
			Kind:           domain.FetchHTTPError,
			Status:         400,
			BackendMessage: fmt.Sprintf("Não foi possível encontrar a cidade: %s", city),
		}
	}
	var loc *domain.SearchLocation
	if c.Center != nil {
		loc = &domain.SearchLocation{
			Center:   *c.Center,
			RadiusKm: float64(radiusOrDefault(radiusMeters)) / 1000,
			City:     c.Name,
		}
	}
	return append([]domain.HealthUnit(nil), c.Units...), loc, nil
}
