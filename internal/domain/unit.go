package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Category classifies a treatment unit as publicly or privately run.
type Category string

const (
	CategoryUnknown Category = ""
	CategoryPublic  Category = "public"
	CategoryPrivate Category = "private"
	// CategoryAll is a filter value only; no unit carries it.
	CategoryAll Category = "all"
)

// ParseCategory accepts the canonical names and the Portuguese spellings
// still emitted by older backend deployments ("publica", "Pública", "privada").
func ParseCategory(s string) Category {
	switch Fold(s) {
	case "public", "publica", "publico":
		return CategoryPublic
	case "private", "privada", "privado":
		return CategoryPrivate
	case "all", "todas", "todos":
		return CategoryAll
	default:
		return CategoryUnknown
	}
}

// Matches reports whether a unit of category c passes the filter.
func (c Category) Matches(filter Category) bool {
	if filter == CategoryAll || filter == CategoryUnknown {
		return true
	}
	return c == filter
}

func (c Category) Label() string {
	switch c {
	case CategoryPublic:
		return "Pública"
	case CategoryPrivate:
		return "Privada"
	default:
		return "Não informado"
	}
}

// Fold lower-cases s, trims it and strips diacritics.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// UnitID is the backend identifier of a unit. Numeric ids are kept in
// their decimal form.
type UnitID string

// HealthUnit is a treatment center as returned by the unit-search backend,
// after field-name normalization.
type HealthUnit struct {
	ID                 UnitID
	Name               string
	Category           Category
	Address            string
	Coordinates        *Coordinates
	Phone              string
	Email              string
	Website            string
	OpeningHours       string
	Services           string
	AccessibilityNotes string
	Specialties        []string
	Rating             *float64
	DataSource         string
	DirectionsURL      string
}

// Clone returns a copy that shares no pointers or slices with u.
func (u HealthUnit) Clone() HealthUnit {
	out := u
	if u.Coordinates != nil {
		c := *u.Coordinates
		out.Coordinates = &c
	}
	if u.Rating != nil {
		r := *u.Rating
		out.Rating = &r
	}
	if u.Specialties != nil {
		out.Specialties = append([]string(nil), u.Specialties...)
	}
	return out
}

// Mappable reports whether the unit carries a usable coordinate.
func (u HealthUnit) Mappable() bool {
	return u.Coordinates != nil && u.Coordinates.Valid()
}

// ResolvedUnit is a unit augmented with its distance from the reference
// point. DistanceKm is nil when no reference point was available.
type ResolvedUnit struct {
	Unit       HealthUnit
	DistanceKm *float64
}

func (r ResolvedUnit) Clone() ResolvedUnit {
	out := ResolvedUnit{Unit: r.Unit.Clone()}
	if r.DistanceKm != nil {
		d := *r.DistanceKm
		out.DistanceKm = &d
	}
	return out
}

// SearchLocation is the center and radius a query was answered for. City
// is empty for coordinate searches.
type SearchLocation struct {
	Center   Coordinates
	RadiusKm float64
	City     string
}

// CategoryTotals counts resolved units per category.
type CategoryTotals struct {
	Public  int
	Private int
	Other   int
}

func CountCategories(units []ResolvedUnit) CategoryTotals {
	var t CategoryTotals
	for _, r := range units {
		switch r.Unit.Category {
		case CategoryPublic:
			t.Public++
		case CategoryPrivate:
			t.Private++
		default:
			t.Other++
		}
	}
	return t
}
