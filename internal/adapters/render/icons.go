package render

import "unit-finder/internal/domain"

const (
	markerBase = "https://raw.githubusercontent.com/pointhi/leaflet-color-markers/master/img/"
	shadowURL  = "https://cdnjs.cloudflare.com/ajax/libs/leaflet/1.7.1/images/marker-shadow.png"
)

// IconSet holds the marker artwork handed to the map widget. It is passed
// to renderers at construction rather than kept in package state.
type IconSet struct {
	Public  string `yaml:"public"`
	Private string `yaml:"private"`
	User    string `yaml:"user"`
	Shadow  string `yaml:"shadow"`
}

// Blue for public units, violet for private ones, red for the user.
func DefaultIconSet() IconSet {
	return IconSet{
		Public:  markerBase + "marker-icon-2x-blue.png",
		Private: markerBase + "marker-icon-2x-violet.png",
		User:    markerBase + "marker-icon-2x-red.png",
		Shadow:  shadowURL,
	}
}

// WithDefaults fills unset icons from DefaultIconSet.
func (s IconSet) WithDefaults() IconSet {
	def := DefaultIconSet()
	if s.Public == "" {
		s.Public = def.Public
	}
	if s.Private == "" {
		s.Private = def.Private
	}
	if s.User == "" {
		s.User = def.User
	}
	if s.Shadow == "" {
		s.Shadow = def.Shadow
	}
	return s
}

func (s IconSet) URL(icon domain.MarkerIcon) string {
	switch icon {
	case domain.IconPrivate:
		return s.Private
	case domain.IconUser:
		return s.User
	default:
		return s.Public
	}
}
