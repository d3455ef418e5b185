package domain

// Phase is the discrete state of the finder's asynchronous lifecycle.
type Phase string

const (
	PhaseIdle          Phase = "IDLE"
	PhaseLocating      Phase = "LOCATING"
	PhaseFetching      Phase = "FETCHING"
	PhaseReady         Phase = "READY"
	PhaseLocationError Phase = "LOCATION_ERROR"
	PhaseFetchError    Phase = "FETCH_ERROR"
)

// Busy reports whether a request is outstanding.
func (p Phase) Busy() bool { return p == PhaseLocating || p == PhaseFetching }

// Failed reports whether the phase is one of the error phases.
func (p Phase) Failed() bool { return p == PhaseLocationError || p == PhaseFetchError }

// SearchMode records how the current reference point was obtained.
type SearchMode string

const (
	SearchModeNone     SearchMode = ""
	SearchModeLocation SearchMode = "location"
	SearchModeCity     SearchMode = "city"
)

// FinderState is the state owned by one finder view.
// Units are in ascending distance order whenever ReferencePoint is set.
type FinderState struct {
	Phase          Phase
	Mode           SearchMode
	City           string
	ReferencePoint *Coordinates
	Search         *SearchLocation
	Units          []ResolvedUnit
	Filter         Category
	MapCenter      Coordinates
	MapZoom        int
	SelectedUnitID *UnitID
	Message        string
	Version        uint64
}

// Clone returns a copy that shares no mutable memory with s.
func (s FinderState) Clone() FinderState {
	out := s
	if s.ReferencePoint != nil {
		rp := *s.ReferencePoint
		out.ReferencePoint = &rp
	}
	if s.SelectedUnitID != nil {
		id := *s.SelectedUnitID
		out.SelectedUnitID = &id
	}
	if s.Search != nil {
		loc := *s.Search
		out.Search = &loc
	}
	if s.Units != nil {
		out.Units = make([]ResolvedUnit, len(s.Units))
		for i, u := range s.Units {
			out.Units[i] = u.Clone()
		}
	}
	return out
}

// Unit looks up a unit of the current collection.
func (s FinderState) Unit(id UnitID) (ResolvedUnit, bool) {
	for _, u := range s.Units {
		if u.Unit.ID == id {
			return u, true
		}
	}
	return ResolvedUnit{}, false
}
