package render

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"unit-finder/internal/domain"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// frame is one map state as consumed by a web map widget. Center is
// [lon, lat] like every GeoJSON position.
type frame struct {
	Phase    domain.Phase               `json:"phase"`
	Message  string                     `json:"message,omitempty"`
	Center   []float64                  `json:"center"`
	Zoom     int                        `json:"zoom"`
	Selected string                     `json:"selected,omitempty"`
	Search   *search                    `json:"search,omitempty"`
	Totals   totals                     `json:"totals"`
	Markers  *geojson.FeatureCollection `json:"markers"`
}

type search struct {
	Center   []float64 `json:"center"`
	RadiusKm float64   `json:"radiusKm"`
	City     string    `json:"city,omitempty"`
}

type totals struct {
	Public  int `json:"public"`
	Private int `json:"private"`
	Other   int `json:"other"`
}

// GeoJSONRenderer writes one JSON frame per line, with the markers as a
// GeoJSON FeatureCollection of points.
type GeoJSONRenderer struct {
	mu    sync.Mutex
	w     io.Writer
	icons IconSet
}

func NewGeoJSONRenderer(w io.Writer, icons IconSet) *GeoJSONRenderer {
	return &GeoJSONRenderer{w: w, icons: icons.WithDefaults()}
}

func (r *GeoJSONRenderer) Render(ctx context.Context, view domain.MapView) error {
	fc, err := r.features(view)
	if err != nil {
		return err
	}

	f := frame{
		Phase:   view.Phase,
		Message: view.Message,
		Center:  view.Center.CoordsToList(),
		Zoom:    view.Zoom,
		Markers: fc,
	}
	if view.Selected != nil {
		f.Selected = string(*view.Selected)
	}
	if view.Search != nil {
		f.Search = &search{
			Center:   view.Search.Center.CoordsToList(),
			RadiusKm: view.Search.RadiusKm,
			City:     view.Search.City,
		}
	}
	t := domain.CountCategories(view.Units)
	f.Totals = totals{Public: t.Public, Private: t.Private, Other: t.Other}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := json.NewEncoder(r.w).Encode(f); err != nil {
		return fmt.Errorf("encode geojson frame: %w", err)
	}
	return nil
}

func (r *GeoJSONRenderer) features(view domain.MapView) (*geojson.FeatureCollection, error) {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(view.Markers))}

	units := make(map[domain.UnitID]domain.HealthUnit, len(view.Units))
	for _, ru := range view.Units {
		units[ru.Unit.ID] = ru.Unit
	}

	for _, m := range view.Markers {
		pt, err := geom.NewPoint(geom.XY).SetCoords(geom.Coord(m.Position.CoordsToList()))
		if err != nil {
			return nil, fmt.Errorf("marker %q: %w", m.ID, err)
		}

		props := map[string]interface{}{
			"icon":     string(m.Icon),
			"iconUrl":  r.icons.URL(m.Icon),
			"shadow":   r.icons.Shadow,
			"popup":    m.Popup,
			"selected": m.Selected,
		}
		if m.DistanceKm != nil {
			props["distanceKm"] = *m.DistanceKm
		}
		if u, ok := units[m.ID]; ok {
			unitProperties(props, u)
		}
		if link, ok := view.Directions[m.ID]; ok && link != "" {
			props["directions"] = link
		}

		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         string(m.ID),
			Geometry:   pt,
			Properties: props,
		})
	}

	return fc, nil
}

// unitProperties copies the unit card fields that are set.
func unitProperties(props map[string]interface{}, u domain.HealthUnit) {
	props["name"] = u.Name
	props["category"] = string(u.Category)

	for key, v := range map[string]string{
		"address":       u.Address,
		"phone":         u.Phone,
		"email":         u.Email,
		"website":       u.Website,
		"openingHours":  u.OpeningHours,
		"services":      u.Services,
		"accessibility": u.AccessibilityNotes,
	} {
		if v != "" {
			props[key] = v
		}
	}
	if len(u.Specialties) > 0 {
		props["specialties"] = u.Specialties
	}
	if u.Rating != nil {
		props["rating"] = *u.Rating
	}
}
