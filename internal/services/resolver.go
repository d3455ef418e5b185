package services

import (
	"sort"
	"unit-finder/internal/domain"
	"unit-finder/internal/geo"
)

// ResolveOptions narrows and caps a resolution.
// Zero values mean "no limit" and "all categories".
type ResolveOptions struct {
	MaxResults int
	Category   domain.Category
	// RadiusKm drops units farther than the radius. Ignored without a
	// reference point.
	RadiusKm float64
}

// Rank units by proximity to a reference point.
//
// Units without a valid coordinate are discarded, then the category filter
// applies. With a reference point every unit gets a distance and the result
// is sorted ascending, ties keeping input order, and capped to MaxResults.
// Without one the filtered units keep their input order and carry no
// distance. Resolve is pure: it never mutates units.
func Resolve(ref *domain.Coordinates, units []domain.HealthUnit, opts ResolveOptions) []domain.ResolvedUnit {
	out := make([]domain.ResolvedUnit, 0, len(units))

	for _, u := range units {
		if !u.Mappable() {
			continue
		}
		if !u.Category.Matches(opts.Category) {
			continue
		}
		out = append(out, domain.ResolvedUnit{Unit: u})
	}

	if ref == nil || !ref.Valid() {
		return out
	}

	ranked := out[:0]
	for _, r := range out {
		if opts.RadiusKm > 0 && !geo.WithinRadius(*ref, *r.Unit.Coordinates, opts.RadiusKm) {
			continue
		}
		d := geo.DistanceKm(*ref, *r.Unit.Coordinates)
		r.DistanceKm = &d
		ranked = append(ranked, r)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return *ranked[i].DistanceKm < *ranked[j].DistanceKm
	})

	if opts.MaxResults > 0 && len(ranked) > opts.MaxResults {
		ranked = ranked[:opts.MaxResults]
	}

	return ranked
}
