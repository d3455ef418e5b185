package locator

import (
	"context"
	"errors"
	"unit-finder/internal/domain"
)

// StaticLocator reports a configured device position, the way a GPS fix
// would. It is what FINDER_DEVICE_LAT/LON configure.
type StaticLocator struct {
	position domain.Coordinates
}

func NewStaticLocator(position domain.Coordinates) (*StaticLocator, error) {
	if !position.Valid() {
		return nil, errors.New("static locator: position out of range")
	}
	return &StaticLocator{position: position}, nil
}

func (l *StaticLocator) Locate(ctx context.Context) (domain.Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return domain.Coordinates{}, &domain.LocationError{Code: classifyContext(err), Err: err}
	}
	return l.position, nil
}

// UnsupportedLocator is used when no location capability is configured.
type UnsupportedLocator struct{}

func (UnsupportedLocator) Locate(ctx context.Context) (domain.Coordinates, error) {
	return domain.Coordinates{}, &domain.LocationError{
		Code: domain.LocationUnsupported,
		Err:  errors.New("no location capability configured"),
	}
}

func classifyContext(err error) domain.LocationCode {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.LocationTimeout
	}
	return domain.LocationPositionUnavailable
}
