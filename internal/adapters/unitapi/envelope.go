package unitapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unit-finder/internal/domain"
)

// envelope is the response shape of GET /api/unidades.
type envelope struct {
	Success        *bool           `json:"success"`
	Data           []unitRecord    `json:"data"`
	Message        string          `json:"message"`
	ErrorCode      string          `json:"error_code"`
	Total          int             `json:"total"`
	SearchLocation *searchLocation `json:"search_location"`
}

type searchLocation struct {
	Latitude  flexFloat `json:"latitude"`
	Longitude flexFloat `json:"longitude"`
	RadiusKm  flexFloat `json:"radius_km"`
	City      string    `json:"city"`
}

// unitRecord accepts both the canonical English field names and the
// Portuguese names older deployments still emit.
type unitRecord struct {
	ID flexID `json:"id"`

	Name string `json:"name"`
	Nome string `json:"nome"`

	Type string `json:"type"`
	Tipo string `json:"tipo"`

	Address  string `json:"address"`
	Endereco string `json:"endereco"`

	Latitude  flexFloat `json:"latitude"`
	Lat       flexFloat `json:"lat"`
	Longitude flexFloat `json:"longitude"`
	Lng       flexFloat `json:"lng"`
	Lon       flexFloat `json:"lon"`

	Phone    string `json:"phone"`
	Telefone string `json:"telefone"`
	Email    string `json:"email"`
	Website  string `json:"website"`

	OpeningHours string `json:"opening_hours"`
	Horario      string `json:"horario"`

	Services flexText `json:"services"`
	Servicos flexText `json:"servicos"`

	AccessibilityFeatures string `json:"accessibility_features"`
	Acessibilidade        string `json:"acessibilidade"`

	Rating        flexFloat `json:"rating"`
	Specialties   []string  `json:"specialties"`
	GoogleMapsURL string    `json:"google_maps_url"`
	DataSource    string    `json:"data_source"`
}

// flexFloat decodes a JSON number or a numeric string. Null, blank and
// unparseable values leave it unset, so one bad field never fails the
// whole envelope.
type flexFloat struct {
	Value float64
	Set   bool
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	*f = flexFloat{}

	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}

	if b[0] == '"' {
		var s string
		if json.Unmarshal(b, &s) != nil {
			return nil
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(s, ",", ".")), 64)
		if err != nil {
			return nil
		}
		*f = flexFloat{Value: v, Set: true}
		return nil
	}

	var v float64
	if json.Unmarshal(b, &v) != nil {
		return nil
	}
	*f = flexFloat{Value: v, Set: true}
	return nil
}

// flexID decodes integer or string identifiers.
type flexID string

func (id *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = flexID(strings.TrimSpace(s))
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("decode id: %w", err)
	}
	*id = flexID(n.String())
	return nil
}

// flexText decodes a string or a list of strings.
type flexText string

func (t *flexText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	if len(b) > 0 && b[0] == '[' {
		var parts []string
		if err := json.Unmarshal(b, &parts); err != nil {
			return err
		}
		*t = flexText(strings.Join(parts, ", "))
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*t = flexText(s)
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func firstSet(values ...flexFloat) flexFloat {
	for _, v := range values {
		if v.Set {
			return v
		}
	}
	return flexFloat{}
}

// coordinates returns nil when the pair is missing, out of range or the
// (0, 0) placeholder some records carry.
func coordinates(lat, lon flexFloat) *domain.Coordinates {
	if !lat.Set || !lon.Set {
		return nil
	}
	c := domain.Coordinates{Lat: lat.Value, Lon: lon.Value}
	if !c.Valid() || (c.Lat == 0 && c.Lon == 0) {
		return nil
	}
	return &c
}

func (r unitRecord) toDomain() domain.HealthUnit {
	u := domain.HealthUnit{
		ID:                 domain.UnitID(r.ID),
		Name:               firstNonEmpty(r.Name, r.Nome),
		Category:           domain.ParseCategory(firstNonEmpty(r.Type, r.Tipo)),
		Address:            firstNonEmpty(r.Address, r.Endereco),
		Coordinates:        coordinates(firstSet(r.Latitude, r.Lat), firstSet(r.Longitude, r.Lng, r.Lon)),
		Phone:              firstNonEmpty(r.Phone, r.Telefone),
		Email:              strings.TrimSpace(r.Email),
		Website:            strings.TrimSpace(r.Website),
		OpeningHours:       firstNonEmpty(r.OpeningHours, r.Horario),
		Services:           firstNonEmpty(string(r.Services), string(r.Servicos)),
		AccessibilityNotes: firstNonEmpty(r.AccessibilityFeatures, r.Acessibilidade),
		Specialties:        r.Specialties,
		DataSource:         strings.TrimSpace(r.DataSource),
		DirectionsURL:      strings.TrimSpace(r.GoogleMapsURL),
	}

	if r.Rating.Set && r.Rating.Value >= 0 && r.Rating.Value <= 5 {
		rating := r.Rating.Value
		u.Rating = &rating
	}

	if u.ID == "" {
		// Records without an id still need a stable key for selection.
		key := u.Name
		if u.Coordinates != nil {
			key += "@" + u.Coordinates.Query()
		}
		u.ID = domain.UnitID(key)
	}

	return u
}

// units converts the envelope payload, dropping duplicate ids.
func (e *envelope) units() []domain.HealthUnit {
	out := make([]domain.HealthUnit, 0, len(e.Data))
	seen := make(map[domain.UnitID]struct{}, len(e.Data))
	for _, r := range e.Data {
		u := r.toDomain()
		if _, ok := seen[u.ID]; ok {
			continue
		}
		seen[u.ID] = struct{}{}
		out = append(out, u)
	}
	return out
}

// searchLocation is nil when the backend echoed no usable center.
func (e *envelope) searchLocation() *domain.SearchLocation {
	if e.SearchLocation == nil {
		return nil
	}
	c := coordinates(e.SearchLocation.Latitude, e.SearchLocation.Longitude)
	if c == nil {
		return nil
	}

	loc := &domain.SearchLocation{Center: *c, City: strings.TrimSpace(e.SearchLocation.City)}
	if r := e.SearchLocation.RadiusKm; r.Set && r.Value > 0 {
		loc.RadiusKm = r.Value
	}
	return loc
}
