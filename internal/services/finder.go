package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unit-finder/internal/domain"
	"unit-finder/internal/platform/obs"
	"unit-finder/internal/ports"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrSuperseded is returned to the caller of a request whose result was
	// discarded because a newer request started meanwhile.
	ErrSuperseded = errors.New("finder: result superseded by a newer request")
	// ErrFinderClosed is returned once the owning view has been torn down.
	ErrFinderClosed = errors.New("finder: closed")
	// ErrSelectionUnavailable rejects selections outside the READY phase.
	ErrSelectionUnavailable = errors.New("finder: selection requires ready results")
	// ErrUnknownUnit rejects selections of units not in the current results.
	ErrUnknownUnit = errors.New("finder: unit not in current results")
)

// FinderConfig holds the map and search defaults of a finder view.
type FinderConfig struct {
	RadiusMeters     int
	MaxResults       int
	DefaultCenter    domain.Coordinates
	DefaultZoom      int
	NeighborhoodZoom int
	FocusZoom        int
}

// Defaults of the original website: a 50 km search around Salvador.
func DefaultFinderConfig() FinderConfig {
	return FinderConfig{
		RadiusMeters:     50000,
		MaxResults:       0,
		DefaultCenter:    domain.Coordinates{Lat: -12.9714, Lon: -38.5014},
		DefaultZoom:      11,
		NeighborhoodZoom: 12,
		FocusZoom:        16,
	}
}

// Finder is the state machine behind one finder view.
//
// Every user action takes a new request token. A result is applied only if
// its token is still the latest one, so a slow response can never clobber a
// newer one. Close suppresses every pending result.
//
// The renderer is invoked with the finder lock held and must not call back
// into the Finder.
type Finder struct {
	locator  ports.GeoLocator
	repo     ports.UnitRepository
	renderer ports.MapRenderer
	cfg      FinderConfig
	log      *zap.Logger

	mu     sync.Mutex
	state  domain.FinderState
	raw    []domain.HealthUnit
	user   *domain.Coordinates
	token  uint64
	closed bool
}

func NewFinder(
	locator ports.GeoLocator,
	repo ports.UnitRepository,
	renderer ports.MapRenderer,
	cfg FinderConfig,
	log *zap.Logger,
) (*Finder, error) {
	if locator == nil {
		return nil, errors.New("new finder: locator is nil")
	}
	if repo == nil {
		return nil, errors.New("new finder: unit repository is nil")
	}
	if renderer == nil {
		return nil, errors.New("new finder: renderer is nil")
	}
	if log == nil {
		log = zap.NewNop()
	}

	def := DefaultFinderConfig()
	if cfg.RadiusMeters <= 0 {
		cfg.RadiusMeters = def.RadiusMeters
	}
	if cfg.DefaultZoom <= 0 {
		cfg.DefaultZoom = def.DefaultZoom
	}
	if cfg.NeighborhoodZoom <= 0 {
		cfg.NeighborhoodZoom = def.NeighborhoodZoom
	}
	if cfg.FocusZoom <= 0 {
		cfg.FocusZoom = def.FocusZoom
	}
	if !cfg.DefaultCenter.Valid() || cfg.DefaultCenter == (domain.Coordinates{}) {
		cfg.DefaultCenter = def.DefaultCenter
	}

	return &Finder{
		locator:  locator,
		repo:     repo,
		renderer: renderer,
		cfg:      cfg,
		log:      log,
		state: domain.FinderState{
			Phase:     domain.PhaseIdle,
			Filter:    domain.CategoryAll,
			MapCenter: cfg.DefaultCenter,
			MapZoom:   cfg.DefaultZoom,
		},
	}, nil
}

// Snapshot returns a copy of the current state.
func (f *Finder) Snapshot() domain.FinderState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.Clone()
}

// MapView derives the current map/list frame.
func (f *Finder) MapView() domain.MapView {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.viewLocked()
}

// Refresh renders the current state again.
func (f *Finder) Refresh(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrFinderClosed
	}
	return f.renderLocked(ctx)
}

// Close tears the view down. Results still in flight are dropped.
func (f *Finder) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.token++
}

// UseMyLocation locates the device and searches for units around it.
// Failures end in LOCATION_ERROR or FETCH_ERROR and are also returned.
func (f *Finder) UseMyLocation(ctx context.Context) (err error) {
	ctx = obs.WithRequestID(ctx, uuid.NewString())
	defer obs.Time(ctx, "finder.UseMyLocation")(&err)

	token, err := f.begin(ctx, func(s *domain.FinderState) {
		s.Phase = domain.PhaseLocating
		s.Mode = domain.SearchModeLocation
		s.City = ""
		s.Message = ""
	})
	if err != nil {
		return err
	}

	c, err := f.locator.Locate(ctx)
	if err == nil && !c.Valid() {
		err = &domain.LocationError{
			Code: domain.LocationPositionUnavailable,
			Err:  fmt.Errorf("invalid position %s", c),
		}
	}
	if err != nil {
		le := asLocationError(err)
		if !f.apply(ctx, token, func(s *domain.FinderState) {
			s.Phase = domain.PhaseLocationError
			s.Message = le.Message()
		}) {
			return ErrSuperseded
		}
		return le
	}

	if !f.apply(ctx, token, func(s *domain.FinderState) {
		ref := c
		user := c
		f.user = &user
		s.Phase = domain.PhaseFetching
		s.ReferencePoint = &ref
		s.MapCenter = c
		s.MapZoom = f.cfg.NeighborhoodZoom
	}) {
		return ErrSuperseded
	}

	units, err := f.repo.FetchByLocation(ctx, c, f.cfg.RadiusMeters)
	if err != nil {
		return f.fetchFailed(ctx, token, err)
	}

	loc := &domain.SearchLocation{Center: c, RadiusKm: f.radiusKm()}
	if !f.apply(ctx, token, func(s *domain.FinderState) {
		f.ready(s, units, loc)
	}) {
		return ErrSuperseded
	}
	return nil
}

// SearchCity searches for units around a named city. Blank names are
// rejected before any request is issued.
func (f *Finder) SearchCity(ctx context.Context, city string) (err error) {
	ctx = obs.WithRequestID(ctx, uuid.NewString())
	defer obs.Time(ctx, "finder.SearchCity")(&err)

	name := strings.Join(strings.Fields(city), " ")
	if name == "" {
		verr := &domain.FetchError{Kind: domain.FetchEmptyQuery, Err: domain.ErrEmptyCity}

		f.mu.Lock()
		defer f.mu.Unlock()
		if f.closed {
			return ErrFinderClosed
		}
		f.state.Message = verr.Message()
		if rerr := f.renderLocked(ctx); rerr != nil {
			f.log.Warn("render failed", zap.Error(rerr))
		}
		return verr
	}

	token, err := f.begin(ctx, func(s *domain.FinderState) {
		s.Phase = domain.PhaseFetching
		s.Mode = domain.SearchModeCity
		s.City = name
		s.Message = ""
	})
	if err != nil {
		return err
	}

	units, loc, err := f.repo.FetchByCity(ctx, name, f.cfg.RadiusMeters)
	if err != nil {
		return f.fetchFailed(ctx, token, err)
	}

	if loc != nil && !loc.Center.Valid() {
		f.log.Warn("ignoring invalid search center", zap.String("city", name), zap.Stringer("center", loc.Center))
		loc = nil
	}
	if loc != nil {
		if loc.City == "" {
			loc.City = name
		}
		if loc.RadiusKm <= 0 {
			loc.RadiusKm = f.radiusKm()
		}
	}

	if !f.apply(ctx, token, func(s *domain.FinderState) {
		f.ready(s, units, loc)
	}) {
		return ErrSuperseded
	}
	return nil
}

// Select focuses a unit of the current results, as a list click or a
// marker click would. The phase does not change.
func (f *Finder) Select(ctx context.Context, id domain.UnitID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrFinderClosed
	}
	if f.state.Phase != domain.PhaseReady {
		return ErrSelectionUnavailable
	}

	u, ok := f.state.Unit(id)
	if !ok {
		return fmt.Errorf("select %q: %w", id, ErrUnknownUnit)
	}

	sel := id
	f.state.SelectedUnitID = &sel
	f.state.MapCenter = *u.Unit.Coordinates
	f.state.MapZoom = f.cfg.FocusZoom

	return f.renderLocked(ctx)
}

// SetFilter changes the category filter and re-resolves the last fetched
// collection without a new request.
func (f *Finder) SetFilter(ctx context.Context, c domain.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrFinderClosed
	}
	if c == domain.CategoryUnknown {
		c = domain.CategoryAll
	}
	f.state.Filter = c

	if f.raw != nil && f.state.Phase == domain.PhaseReady {
		f.state.Units = Resolve(f.state.ReferencePoint, f.raw, f.resolveOptions())
		if f.state.SelectedUnitID != nil {
			if _, ok := f.state.Unit(*f.state.SelectedUnitID); !ok {
				f.state.SelectedUnitID = nil
			}
		}
	}

	return f.renderLocked(ctx)
}

// begin takes a new request token and applies the initial transition.
func (f *Finder) begin(ctx context.Context, mutate func(*domain.FinderState)) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, ErrFinderClosed
	}

	f.token++
	mutate(&f.state)
	f.state.Version = f.token

	if err := f.renderLocked(ctx); err != nil {
		f.log.Warn("render failed", zap.Error(err))
	}
	return f.token, nil
}

// apply runs mutate only if token is still current. It reports whether the
// result was applied.
func (f *Finder) apply(ctx context.Context, token uint64, mutate func(*domain.FinderState)) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed || token != f.token {
		f.log.Debug("discarding stale result",
			zap.Uint64("token", token),
			zap.Uint64("current", f.token),
			zap.Bool("closed", f.closed),
			zap.String("req_id", obs.RequestID(ctx)),
		)
		return false
	}

	mutate(&f.state)
	f.state.Version = token

	if err := f.renderLocked(ctx); err != nil {
		f.log.Warn("render failed", zap.Error(err))
	}
	return true
}

func (f *Finder) fetchFailed(ctx context.Context, token uint64, err error) error {
	fe := asFetchError(err)
	if !f.apply(ctx, token, func(s *domain.FinderState) {
		s.Phase = domain.PhaseFetchError
		s.Message = fe.Message()
	}) {
		return ErrSuperseded
	}
	return fe
}

// ready stores a fresh collection ranked around loc, when known.
// Callers hold f.mu.
func (f *Finder) ready(s *domain.FinderState, units []domain.HealthUnit, loc *domain.SearchLocation) {
	f.raw = units

	s.Phase = domain.PhaseReady
	s.Message = ""
	s.SelectedUnitID = nil
	s.ReferencePoint = nil
	s.Search = nil
	if loc != nil {
		search := *loc
		ref := loc.Center
		s.Search = &search
		s.ReferencePoint = &ref
	}
	s.Units = Resolve(s.ReferencePoint, units, f.resolveOptions())

	switch {
	case s.ReferencePoint != nil:
		s.MapCenter = *s.ReferencePoint
		s.MapZoom = f.cfg.NeighborhoodZoom
	case len(s.Units) > 0:
		s.MapCenter = *s.Units[0].Unit.Coordinates
		s.MapZoom = f.cfg.NeighborhoodZoom
	}

	if len(s.Units) == 0 {
		s.Message = "Nenhuma unidade encontrada nesta região."
	}
}

func (f *Finder) resolveOptions() ResolveOptions {
	return ResolveOptions{
		MaxResults: f.cfg.MaxResults,
		Category:   f.state.Filter,
		RadiusKm:   f.radiusKm(),
	}
}

func (f *Finder) radiusKm() float64 {
	return float64(f.cfg.RadiusMeters) / 1000
}

func (f *Finder) renderLocked(ctx context.Context) error {
	if err := f.renderer.Render(ctx, f.viewLocked()); err != nil {
		return fmt.Errorf("render map view: %w", err)
	}
	return nil
}

func (f *Finder) viewLocked() domain.MapView {
	s := f.state.Clone()

	view := domain.MapView{
		Phase:      s.Phase,
		Message:    s.Message,
		Center:     s.MapCenter,
		Zoom:       s.MapZoom,
		Search:     s.Search,
		Units:      s.Units,
		Selected:   s.SelectedUnitID,
		Markers:    make([]domain.Marker, 0, len(s.Units)+1),
		Directions: make(map[domain.UnitID]string, len(s.Units)),
	}

	if s.Mode == domain.SearchModeLocation && f.user != nil {
		origin := *f.user
		view.Origin = &origin
		view.Markers = append(view.Markers, domain.Marker{
			ID:       "user",
			Position: origin,
			Icon:     domain.IconUser,
			Popup:    "Sua localização",
		})
	}

	for _, r := range s.Units {
		u := r.Unit
		view.Markers = append(view.Markers, domain.Marker{
			ID:         u.ID,
			Position:   *u.Coordinates,
			Icon:       domain.IconFor(u.Category),
			Popup:      popup(r),
			DistanceKm: r.DistanceKm,
			Selected:   s.SelectedUnitID != nil && *s.SelectedUnitID == u.ID,
		})
		view.Directions[u.ID] = domain.DirectionsURL(view.Origin, u)
	}

	return view
}

func popup(r domain.ResolvedUnit) string {
	var b strings.Builder
	b.WriteString(r.Unit.Name)
	if r.Unit.Address != "" {
		b.WriteString("\n")
		b.WriteString(r.Unit.Address)
	}
	for _, line := range []string{
		r.Unit.Phone,
		r.Unit.Email,
		r.Unit.OpeningHours,
		r.Unit.Services,
		r.Unit.AccessibilityNotes,
	} {
		if line != "" {
			b.WriteString("\n")
			b.WriteString(line)
		}
	}
	if r.DistanceKm != nil {
		fmt.Fprintf(&b, "\n%.1f km", *r.DistanceKm)
	}
	return b.String()
}

func asLocationError(err error) *domain.LocationError {
	var le *domain.LocationError
	if errors.As(err, &le) {
		return le
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.LocationError{Code: domain.LocationTimeout, Err: err}
	}
	return &domain.LocationError{Code: domain.LocationPositionUnavailable, Err: err}
}

func asFetchError(err error) *domain.FetchError {
	var fe *domain.FetchError
	if errors.As(err, &fe) {
		return fe
	}
	return &domain.FetchError{Kind: domain.FetchNetworkFailure, Err: err}
}
