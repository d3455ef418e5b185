package render

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"unit-finder/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleView() domain.MapView {
	d := 0.98
	origin := domain.Coordinates{Lat: -12.9714, Lon: -38.5014}
	sel := domain.UnitID("1")
	unit := domain.HealthUnit{
		ID:          "1",
		Name:        "HEMOBA",
		Category:    domain.CategoryPublic,
		Address:     "Brotas, Salvador",
		Phone:       "(71) 3116-5555",
		Coordinates: &domain.Coordinates{Lat: -12.9777, Lon: -38.4951},
	}

	return domain.MapView{
		Phase:    domain.PhaseReady,
		Center:   *unit.Coordinates,
		Zoom:     16,
		Origin:   &origin,
		Selected: &sel,
		Units:    []domain.ResolvedUnit{{Unit: unit, DistanceKm: &d}},
		Markers: []domain.Marker{
			{ID: "user", Position: origin, Icon: domain.IconUser, Popup: "Sua localização"},
			{ID: "1", Position: *unit.Coordinates, Icon: domain.IconPublic, Popup: "HEMOBA", DistanceKm: &d, Selected: true},
		},
		Directions: map[domain.UnitID]string{"1": domain.DirectionsURL(&origin, unit)},
	}
}

func TestTextRendererReady(t *testing.T) {
	var buf bytes.Buffer
	r := NewTextRenderer(&buf)

	require.NoError(t, r.Render(context.Background(), sampleView()))

	out := buf.String()
	assert.Contains(t, out, "[unidades encontradas]")
	assert.Contains(t, out, "* 1. [Pública] HEMOBA (id 1) - 1.0 km")
	assert.Contains(t, out, "Tel: (71) 3116-5555")
	assert.Contains(t, out, "origin=-12.9714,-38.5014&destination=-12.9777,-38.4951")
}

func TestTextRendererQuietSkipsBusyFrames(t *testing.T) {
	var buf bytes.Buffer
	r := NewTextRenderer(&buf)
	r.Quiet = true

	require.NoError(t, r.Render(context.Background(), domain.MapView{Phase: domain.PhaseFetching}))
	assert.Empty(t, buf.String())

	require.NoError(t, r.Render(context.Background(), domain.MapView{Phase: domain.PhaseFetchError, Message: "no data"}))
	assert.Contains(t, buf.String(), "no data")
}

func TestGeoJSONRendererFrame(t *testing.T) {
	var buf bytes.Buffer
	icons := IconSet{Private: "https://icons.example/violet.png"}
	r := NewGeoJSONRenderer(&buf, icons)

	require.NoError(t, r.Render(context.Background(), sampleView()))

	var got struct {
		Phase    string    `json:"phase"`
		Center   []float64 `json:"center"`
		Zoom     int       `json:"zoom"`
		Selected string    `json:"selected"`
		Markers  struct {
			Type     string `json:"type"`
			Features []struct {
				ID       string `json:"id"`
				Geometry struct {
					Type        string    `json:"type"`
					Coordinates []float64 `json:"coordinates"`
				} `json:"geometry"`
				Properties map[string]interface{} `json:"properties"`
			} `json:"features"`
		} `json:"markers"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))

	assert.Equal(t, "READY", got.Phase)
	assert.Equal(t, []float64{-38.4951, -12.9777}, got.Center)
	assert.Equal(t, 16, got.Zoom)
	assert.Equal(t, "1", got.Selected)
	assert.Equal(t, "FeatureCollection", got.Markers.Type)
	require.Len(t, got.Markers.Features, 2)

	user := got.Markers.Features[0]
	assert.Equal(t, "Point", user.Geometry.Type)
	assert.Equal(t, DefaultIconSet().User, user.Properties["iconUrl"])

	unit := got.Markers.Features[1]
	assert.Equal(t, "1", unit.ID)
	assert.Equal(t, []float64{-38.4951, -12.9777}, unit.Geometry.Coordinates)
	assert.Equal(t, true, unit.Properties["selected"])
	assert.InDelta(t, 0.98, unit.Properties["distanceKm"], 1e-9)
	assert.Contains(t, unit.Properties["directions"], "travelmode=driving")
}

func TestIconSetURL(t *testing.T) {
	s := IconSet{Public: "p"}.WithDefaults()
	assert.Equal(t, "p", s.URL(domain.IconPublic))
	assert.Equal(t, DefaultIconSet().Private, s.URL(domain.IconPrivate))
	assert.Equal(t, DefaultIconSet().User, s.URL(domain.IconUser))
}

func detailedView() domain.MapView {
	view := sampleView()
	rating := 4.5
	u := &view.Units[0].Unit
	u.Email = "hemoba@saude.ba.gov.br"
	u.Website = "https://www.hemoba.ba.gov.br"
	u.Services = "Hematologia, transfusão"
	u.AccessibilityNotes = "Rampa e elevador"
	u.Specialties = []string{"anemia falciforme"}
	u.Rating = &rating

	private := domain.HealthUnit{
		ID:          "2",
		Name:        "Clínica Hemato",
		Category:    domain.CategoryPrivate,
		Coordinates: &domain.Coordinates{Lat: -12.99, Lon: -38.48},
	}
	view.Units = append(view.Units, domain.ResolvedUnit{Unit: private})
	view.Markers = append(view.Markers, domain.Marker{ID: "2", Position: *private.Coordinates, Icon: domain.IconPrivate})
	view.Search = &domain.SearchLocation{Center: *view.Origin, RadiusKm: 50, City: "Salvador"}
	return view
}

func TestTextRendererShowsUnitCardAndTotals(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTextRenderer(&buf).Render(context.Background(), detailedView()))

	out := buf.String()
	assert.Contains(t, out, "Busca: Salvador, raio 50 km")
	assert.Contains(t, out, "2 unidades: 1 públicas, 1 privadas")
	assert.Contains(t, out, "E-mail: hemoba@saude.ba.gov.br")
	assert.Contains(t, out, "Site: https://www.hemoba.ba.gov.br")
	assert.Contains(t, out, "Serviços: Hematologia, transfusão")
	assert.Contains(t, out, "Especialidades: anemia falciforme")
	assert.Contains(t, out, "Acessibilidade: Rampa e elevador")
	assert.Contains(t, out, "Avaliação: 4.5/5")
	assert.Contains(t, out, " 2. [Privada] Clínica Hemato (id 2)")
}

func TestGeoJSONRendererUnitPropertiesAndTotals(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewGeoJSONRenderer(&buf, IconSet{}).Render(context.Background(), detailedView()))

	var got struct {
		Search struct {
			Center   []float64 `json:"center"`
			RadiusKm float64   `json:"radiusKm"`
			City     string    `json:"city"`
		} `json:"search"`
		Totals struct {
			Public  int `json:"public"`
			Private int `json:"private"`
		} `json:"totals"`
		Markers struct {
			Features []struct {
				ID         string                 `json:"id"`
				Properties map[string]interface{} `json:"properties"`
			} `json:"features"`
		} `json:"markers"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))

	assert.Equal(t, "Salvador", got.Search.City)
	assert.Equal(t, 50.0, got.Search.RadiusKm)
	assert.Equal(t, []float64{-38.5014, -12.9714}, got.Search.Center)
	assert.Equal(t, 1, got.Totals.Public)
	assert.Equal(t, 1, got.Totals.Private)

	require.Len(t, got.Markers.Features, 3)
	assert.NotContains(t, got.Markers.Features[0].Properties, "name", "user marker carries no unit card")

	card := got.Markers.Features[1].Properties
	assert.Equal(t, "HEMOBA", card["name"])
	assert.Equal(t, "public", card["category"])
	assert.Equal(t, "hemoba@saude.ba.gov.br", card["email"])
	assert.Equal(t, "Hematologia, transfusão", card["services"])
	assert.Equal(t, "Rampa e elevador", card["accessibility"])
	assert.Equal(t, 4.5, card["rating"])
	assert.Equal(t, []interface{}{"anemia falciforme"}, card["specialties"])

	private := got.Markers.Features[2].Properties
	assert.Equal(t, "private", private["category"])
	assert.NotContains(t, private, "email")
}
