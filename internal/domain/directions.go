package domain

import "net/url"

const (
	directionsBaseURL = "https://www.google.com/maps/dir/?api=1"
	searchBaseURL     = "https://www.google.com/maps/search/?api=1"
)

// DirectionsURL builds the external routing link for a unit.
// A backend-provided link wins; units without coordinates fall back to an
// address search.
func DirectionsURL(origin *Coordinates, u HealthUnit) string {
	if u.DirectionsURL != "" {
		return u.DirectionsURL
	}

	if !u.Mappable() {
		if u.Address == "" {
			return ""
		}
		return searchBaseURL + "&query=" + url.QueryEscape(u.Address)
	}

	link := directionsBaseURL
	if origin != nil && origin.Valid() {
		link += "&origin=" + origin.Query()
	}
	link += "&destination=" + u.Coordinates.Query() + "&travelmode=driving"
	return link
}
