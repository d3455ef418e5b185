package domain

// MarkerIcon selects the marker artwork on the map widget.
type MarkerIcon string

const (
	IconPublic  MarkerIcon = "public"
	IconPrivate MarkerIcon = "private"
	IconUser    MarkerIcon = "user"
)

// IconFor maps a unit category to its marker.
func IconFor(c Category) MarkerIcon {
	if c == CategoryPrivate {
		return IconPrivate
	}
	return IconPublic
}

// Marker describes one pin handed to the map widget.
type Marker struct {
	ID         UnitID
	Position   Coordinates
	Icon       MarkerIcon
	Popup      string
	DistanceKm *float64
	Selected   bool
}

// MapView is everything a map/list renderer needs for one frame.
// Markers and Units are derived from the same resolved collection.
type MapView struct {
	Phase      Phase
	Message    string
	Center     Coordinates
	Zoom       int
	Origin     *Coordinates
	Search     *SearchLocation
	Markers    []Marker
	Units      []ResolvedUnit
	Selected   *UnitID
	Directions map[UnitID]string
}
