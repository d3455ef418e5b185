package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
	"unit-finder/internal/adapters/locator"
	"unit-finder/internal/adapters/unitapi"
	"unit-finder/internal/domain"
	"unit-finder/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingRenderer struct {
	mu     sync.Mutex
	frames []domain.MapView
	err    error
}

func (r *recordingRenderer) Render(ctx context.Context, view domain.MapView) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, view)
	return r.err
}

func (r *recordingRenderer) phases() []domain.Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Phase, 0, len(r.frames))
	for _, f := range r.frames {
		out = append(out, f.Phase)
	}
	return out
}

func (r *recordingRenderer) last() domain.MapView {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames[len(r.frames)-1]
}

// gatedRepository blocks location searches until released.
type gatedRepository struct {
	*unitapi.MockRepository
	started chan struct{}
	release chan struct{}
}

func (g *gatedRepository) FetchByLocation(ctx context.Context, c domain.Coordinates, radiusMeters int) ([]domain.HealthUnit, error) {
	close(g.started)
	<-g.release
	return g.MockRepository.FetchByLocation(ctx, c, radiusMeters)
}

func salvadorUnits() []domain.HealthUnit {
	return []domain.HealthUnit{
		unitAt("2", domain.CategoryPublic, -13.0037, -38.5147),
		unitAt("1", domain.CategoryPublic, -12.9777, -38.4951),
		unitAt("3", domain.CategoryPrivate, -12.9885, -38.5120),
		{ID: "nocoord", Name: "Sem coordenadas"},
	}
}

func newTestFinder(t *testing.T, loc *locator.MockLocator, repo ports.UnitRepository) (*Finder, *recordingRenderer) {
	t.Helper()
	r := &recordingRenderer{}
	f, err := NewFinder(loc, repo, r, DefaultFinderConfig(), zap.NewNop())
	require.NoError(t, err)
	return f, r
}

func TestNewFinderRejectsNilCollaborators(t *testing.T) {
	repo := unitapi.NewMockRepository(nil, nil)
	_, err := NewFinder(nil, repo, &recordingRenderer{}, FinderConfig{}, nil)
	require.Error(t, err)
	_, err = NewFinder(&locator.MockLocator{}, nil, &recordingRenderer{}, FinderConfig{}, nil)
	require.Error(t, err)
	_, err = NewFinder(&locator.MockLocator{}, repo, nil, FinderConfig{}, nil)
	require.Error(t, err)

	f, err := NewFinder(&locator.MockLocator{}, repo, &recordingRenderer{}, FinderConfig{}, nil)
	require.NoError(t, err)
	s := f.Snapshot()
	assert.Equal(t, domain.PhaseIdle, s.Phase)
	assert.Equal(t, DefaultFinderConfig().DefaultCenter, s.MapCenter)
	assert.Equal(t, 11, s.MapZoom)
	assert.Equal(t, domain.CategoryAll, s.Filter)
}

func TestUseMyLocationHappyPath(t *testing.T) {
	repo := unitapi.NewMockRepository(salvadorUnits(), nil)
	f, r := newTestFinder(t, &locator.MockLocator{Position: salvador}, repo)

	require.NoError(t, f.UseMyLocation(context.Background()))

	assert.Equal(t,
		[]domain.Phase{domain.PhaseLocating, domain.PhaseFetching, domain.PhaseReady},
		r.phases(),
	)

	s := f.Snapshot()
	assert.Equal(t, domain.PhaseReady, s.Phase)
	assert.Equal(t, domain.SearchModeLocation, s.Mode)
	require.NotNil(t, s.ReferencePoint)
	assert.Equal(t, salvador, *s.ReferencePoint)
	assert.Equal(t, salvador, s.MapCenter)
	assert.Equal(t, 12, s.MapZoom)
	assert.Equal(t, []domain.UnitID{"1", "3", "2"}, ids(s.Units))

	view := r.last()
	require.Len(t, view.Markers, 4, "user marker plus three mappable units")
	assert.Equal(t, domain.IconUser, view.Markers[0].Icon)
	assert.Equal(t, domain.IconPrivate, view.Markers[2].Icon)
	assert.Contains(t, view.Directions["1"], "origin=-12.9714,-38.5014")
}

// Scenario C: permission denied leaves the previous units untouched and
// never reaches the repository.
func TestUseMyLocationPermissionDenied(t *testing.T) {
	repo := unitapi.NewMockRepository(salvadorUnits(), []unitapi.MockCity{
		{Name: "Salvador", Center: &salvador, Units: salvadorUnits()},
	})
	loc := &locator.MockLocator{}
	f, _ := newTestFinder(t, loc, repo)

	require.NoError(t, f.SearchCity(context.Background(), "Salvador"))
	before := f.Snapshot().Units
	calls := repo.Calls()

	loc.Err = &domain.LocationError{Code: domain.LocationPermissionDenied}
	err := f.UseMyLocation(context.Background())

	var le *domain.LocationError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, domain.LocationPermissionDenied, le.Code)

	s := f.Snapshot()
	assert.Equal(t, domain.PhaseLocationError, s.Phase)
	assert.Contains(t, s.Message, "Permissão negada")
	assert.Contains(t, s.Message, "cidade")
	assert.Equal(t, before, s.Units)
	assert.Equal(t, calls, repo.Calls(), "no fetch after a location failure")
}

func TestUseMyLocationWrapsPlainErrors(t *testing.T) {
	repo := unitapi.NewMockRepository(nil, nil)
	f, _ := newTestFinder(t, &locator.MockLocator{Err: context.DeadlineExceeded}, repo)

	err := f.UseMyLocation(context.Background())
	var le *domain.LocationError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, domain.LocationTimeout, le.Code)
	assert.Equal(t, domain.PhaseLocationError, f.Snapshot().Phase)
}

// Scenario B: an empty city is rejected without any request.
func TestSearchCityEmpty(t *testing.T) {
	repo := unitapi.NewMockRepository(nil, nil)
	f, _ := newTestFinder(t, &locator.MockLocator{}, repo)

	err := f.SearchCity(context.Background(), "   ")

	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, 0, repo.Calls())

	s := f.Snapshot()
	assert.Equal(t, domain.PhaseIdle, s.Phase)
	assert.NotEmpty(t, s.Message)
}

func TestSearchCityUsesBackendCenter(t *testing.T) {
	sp := domain.Coordinates{Lat: -23.5505, Lon: -46.6333}
	repo := unitapi.NewMockRepository(nil, []unitapi.MockCity{
		{Name: "São Paulo", Center: &sp, Units: []domain.HealthUnit{
			unitAt("far", domain.CategoryPublic, -23.60, -46.70),
			unitAt("near", domain.CategoryPublic, -23.551, -46.634),
		}},
	})
	f, r := newTestFinder(t, &locator.MockLocator{}, repo)

	require.NoError(t, f.SearchCity(context.Background(), "sao paulo"))

	assert.Equal(t, []domain.Phase{domain.PhaseFetching, domain.PhaseReady}, r.phases())
	s := f.Snapshot()
	assert.Equal(t, domain.SearchModeCity, s.Mode)
	assert.Equal(t, "sao paulo", s.City)
	assert.Equal(t, sp, s.MapCenter)
	assert.Equal(t, []domain.UnitID{"near", "far"}, ids(s.Units))
	assert.NotContains(t, r.last().Directions["near"], "origin=")
}

func TestSearchCityWithoutCenterIsUnranked(t *testing.T) {
	repo := unitapi.NewMockRepository(nil, []unitapi.MockCity{
		{Name: "Recife", Units: []domain.HealthUnit{
			unitAt("b", domain.CategoryPublic, -8.05, -34.88),
			unitAt("a", domain.CategoryPublic, -8.04, -34.87),
		}},
	})
	f, _ := newTestFinder(t, &locator.MockLocator{}, repo)

	require.NoError(t, f.SearchCity(context.Background(), "Recife"))

	s := f.Snapshot()
	assert.Nil(t, s.ReferencePoint)
	assert.Equal(t, []domain.UnitID{"b", "a"}, ids(s.Units))
	assert.Nil(t, s.Units[0].DistanceKm)
	assert.Equal(t, domain.Coordinates{Lat: -8.05, Lon: -34.88}, s.MapCenter)
}

// Scenario E: a failing envelope surfaces the backend message verbatim.
func TestFetchErrorShowsBackendMessage(t *testing.T) {
	repo := unitapi.NewMockRepository(salvadorUnits(), nil)
	f, _ := newTestFinder(t, &locator.MockLocator{Position: salvador}, repo)

	require.NoError(t, f.UseMyLocation(context.Background()))
	before := f.Snapshot().Units

	repo.FailWith(&domain.FetchError{Kind: domain.FetchInvalidResponse, BackendMessage: "no data"})
	err := f.UseMyLocation(context.Background())

	var fe *domain.FetchError
	require.True(t, errors.As(err, &fe))

	s := f.Snapshot()
	assert.Equal(t, domain.PhaseFetchError, s.Phase)
	assert.Equal(t, "no data", s.Message)
	assert.Equal(t, before, s.Units, "previous snapshot is kept")
}

func TestFetchErrorFromPlainError(t *testing.T) {
	repo := unitapi.NewMockRepository(nil, nil)
	repo.FailWith(errors.New("connection reset"))
	f, _ := newTestFinder(t, &locator.MockLocator{Position: salvador}, repo)

	err := f.UseMyLocation(context.Background())
	var fe *domain.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, domain.FetchNetworkFailure, fe.Kind)
	assert.Empty(t, f.Snapshot().Units)
}

// Scenario D: a slow location search finishing after a newer city search
// must not overwrite the city result.
func TestStaleLocationResultIsDiscarded(t *testing.T) {
	sp := domain.Coordinates{Lat: -23.5505, Lon: -46.6333}
	mock := unitapi.NewMockRepository(salvadorUnits(), []unitapi.MockCity{
		{Name: "São Paulo", Center: &sp, Units: []domain.HealthUnit{unitAt("sp", domain.CategoryPublic, -23.55, -46.63)}},
	})
	repo := &gatedRepository{MockRepository: mock, started: make(chan struct{}), release: make(chan struct{})}
	f, _ := newTestFinder(t, &locator.MockLocator{Position: salvador}, repo)

	locErr := make(chan error, 1)
	go func() { locErr <- f.UseMyLocation(context.Background()) }()

	select {
	case <-repo.started:
	case <-time.After(2 * time.Second):
		t.Fatal("location search never reached the repository")
	}

	require.NoError(t, f.SearchCity(context.Background(), "São Paulo"))
	close(repo.release)

	select {
	case err := <-locErr:
		assert.ErrorIs(t, err, ErrSuperseded)
	case <-time.After(2 * time.Second):
		t.Fatal("location search did not return")
	}

	s := f.Snapshot()
	assert.Equal(t, domain.PhaseReady, s.Phase)
	assert.Equal(t, domain.SearchModeCity, s.Mode)
	assert.Equal(t, []domain.UnitID{"sp"}, ids(s.Units))
	assert.Equal(t, sp, s.MapCenter)
}

func TestCloseSuppressesPendingResults(t *testing.T) {
	mock := unitapi.NewMockRepository(salvadorUnits(), nil)
	repo := &gatedRepository{MockRepository: mock, started: make(chan struct{}), release: make(chan struct{})}
	f, r := newTestFinder(t, &locator.MockLocator{Position: salvador}, repo)

	done := make(chan error, 1)
	go func() { done <- f.UseMyLocation(context.Background()) }()
	<-repo.started

	f.Close()
	framesAtClose := len(r.phases())
	close(repo.release)

	assert.ErrorIs(t, <-done, ErrSuperseded)
	assert.Equal(t, framesAtClose, len(r.phases()), "nothing rendered after close")
	assert.Equal(t, domain.PhaseFetching, f.Snapshot().Phase)

	assert.ErrorIs(t, f.UseMyLocation(context.Background()), ErrFinderClosed)
	assert.ErrorIs(t, f.SearchCity(context.Background(), "Salvador"), ErrFinderClosed)
	assert.ErrorIs(t, f.Select(context.Background(), "1"), ErrFinderClosed)
	assert.ErrorIs(t, f.Refresh(context.Background()), ErrFinderClosed)
}

func TestSelectFocusesUnit(t *testing.T) {
	repo := unitapi.NewMockRepository(salvadorUnits(), nil)
	f, r := newTestFinder(t, &locator.MockLocator{Position: salvador}, repo)

	assert.ErrorIs(t, f.Select(context.Background(), "1"), ErrSelectionUnavailable)

	require.NoError(t, f.UseMyLocation(context.Background()))
	require.NoError(t, f.Select(context.Background(), "2"))

	s := f.Snapshot()
	assert.Equal(t, domain.PhaseReady, s.Phase)
	require.NotNil(t, s.SelectedUnitID)
	assert.Equal(t, domain.UnitID("2"), *s.SelectedUnitID)
	assert.Equal(t, domain.Coordinates{Lat: -13.0037, Lon: -38.5147}, s.MapCenter)
	assert.Equal(t, 16, s.MapZoom)

	var selected []domain.UnitID
	for _, m := range r.last().Markers {
		if m.Selected {
			selected = append(selected, m.ID)
		}
	}
	assert.Equal(t, []domain.UnitID{"2"}, selected)

	assert.ErrorIs(t, f.Select(context.Background(), "nocoord"), ErrUnknownUnit)
	assert.ErrorIs(t, f.Select(context.Background(), "missing"), ErrUnknownUnit)
}

func TestSetFilterReResolvesWithoutFetching(t *testing.T) {
	repo := unitapi.NewMockRepository(salvadorUnits(), nil)
	f, _ := newTestFinder(t, &locator.MockLocator{Position: salvador}, repo)

	require.NoError(t, f.UseMyLocation(context.Background()))
	require.NoError(t, f.Select(context.Background(), "3"))
	calls := repo.Calls()

	require.NoError(t, f.SetFilter(context.Background(), domain.CategoryPublic))
	s := f.Snapshot()
	assert.Equal(t, []domain.UnitID{"1", "2"}, ids(s.Units))
	assert.Nil(t, s.SelectedUnitID, "selection filtered out")

	require.NoError(t, f.SetFilter(context.Background(), domain.CategoryUnknown))
	assert.Equal(t, []domain.UnitID{"1", "3", "2"}, ids(f.Snapshot().Units))
	assert.Equal(t, calls, repo.Calls())
}

func TestMaxResultsCapsUnits(t *testing.T) {
	repo := unitapi.NewMockRepository(salvadorUnits(), nil)
	cfg := DefaultFinderConfig()
	cfg.MaxResults = 2
	f, err := NewFinder(&locator.MockLocator{Position: salvador}, repo, &recordingRenderer{}, cfg, nil)
	require.NoError(t, err)

	require.NoError(t, f.UseMyLocation(context.Background()))
	assert.Equal(t, []domain.UnitID{"1", "3"}, ids(f.Snapshot().Units))
}

func TestRenderFailureDoesNotBreakFinder(t *testing.T) {
	repo := unitapi.NewMockRepository(salvadorUnits(), nil)
	r := &recordingRenderer{err: errors.New("widget gone")}
	f, err := NewFinder(&locator.MockLocator{Position: salvador}, repo, r, DefaultFinderConfig(), nil)
	require.NoError(t, err)

	require.NoError(t, f.UseMyLocation(context.Background()))
	assert.Equal(t, domain.PhaseReady, f.Snapshot().Phase)
	assert.Error(t, f.Refresh(context.Background()))
}

func TestSnapshotDoesNotExposeInternalState(t *testing.T) {
	repo := unitapi.NewMockRepository(salvadorUnits(), nil)
	f, _ := newTestFinder(t, &locator.MockLocator{Position: salvador}, repo)
	require.NoError(t, f.UseMyLocation(context.Background()))

	s := f.Snapshot()
	want := *s.Units[0].DistanceKm
	*s.Units[0].DistanceKm = 999
	s.Units[0].Unit.Coordinates.Lat = 45
	s.ReferencePoint.Lat = 0
	s.Search.RadiusKm = 1

	again := f.Snapshot()
	assert.Equal(t, want, *again.Units[0].DistanceKm)
	assert.Equal(t, -12.9777, again.Units[0].Unit.Coordinates.Lat)
	assert.Equal(t, salvador, *again.ReferencePoint)
	assert.Equal(t, 50.0, again.Search.RadiusKm)
	assert.Equal(t, -12.9777, f.MapView().Markers[1].Position.Lat)
}

func TestSearchRadiusDropsFarUnits(t *testing.T) {
	units := append(salvadorUnits(), unitAt("feira", domain.CategoryPublic, -12.2664, -38.9663))
	repo := unitapi.NewMockRepository(units, nil)
	cfg := DefaultFinderConfig()
	cfg.RadiusMeters = 20000
	r := &recordingRenderer{}
	f, err := NewFinder(&locator.MockLocator{Position: salvador}, repo, r, cfg, nil)
	require.NoError(t, err)

	require.NoError(t, f.UseMyLocation(context.Background()))

	s := f.Snapshot()
	assert.Equal(t, []domain.UnitID{"1", "3", "2"}, ids(s.Units))
	require.NotNil(t, s.Search)
	assert.Equal(t, domain.SearchLocation{Center: salvador, RadiusKm: 20}, *s.Search)
	require.NotNil(t, r.last().Search)
	assert.Equal(t, 20.0, r.last().Search.RadiusKm)
}

func TestSearchCityKeepsBackendLocation(t *testing.T) {
	sp := domain.Coordinates{Lat: -23.5505, Lon: -46.6333}
	repo := unitapi.NewMockRepository(nil, []unitapi.MockCity{
		{Name: "São Paulo", Center: &sp, Units: []domain.HealthUnit{unitAt("sp", domain.CategoryPublic, -23.55, -46.63)}},
	})
	f, _ := newTestFinder(t, &locator.MockLocator{}, repo)

	require.NoError(t, f.SearchCity(context.Background(), "sao paulo"))

	s := f.Snapshot()
	require.NotNil(t, s.Search)
	assert.Equal(t, "São Paulo", s.Search.City)
	assert.Equal(t, 50.0, s.Search.RadiusKm)
	assert.Equal(t, sp, s.Search.Center)
}

func TestPopupListsContactDetails(t *testing.T) {
	d := 1.26
	u := unitAt("1", domain.CategoryPublic, -12.97, -38.49)
	u.Address = "Brotas"
	u.Email = "contato@hemoba.ba.gov.br"
	u.Services = "Hematologia"
	u.AccessibilityNotes = "Rampa de acesso"

	p := popup(domain.ResolvedUnit{Unit: u, DistanceKm: &d})
	assert.Equal(t, "Unit 1\nBrotas\ncontato@hemoba.ba.gov.br\nHematologia\nRampa de acesso\n1.3 km", p)
}
