package ports

import (
	"context"
	"unit-finder/internal/domain"
)

// Contract for the map/list widget. Render is called after every applied
// state change with a fully derived view.
type MapRenderer interface {
	Render(ctx context.Context, view domain.MapView) error
}
