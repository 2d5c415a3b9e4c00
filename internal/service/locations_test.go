package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liveroute/internal/demo"
	"liveroute/internal/distance"
	"liveroute/internal/model"
	"liveroute/internal/opt"
	"liveroute/internal/planner"
	"liveroute/internal/store"
)

type snapshots struct {
	mu  sync.Mutex
	all []model.RouteSnapshot
}

func (s *snapshots) PublishRoute(snap model.RouteSnapshot) {
	s.mu.Lock()
	s.all = append(s.all, snap)
	s.mu.Unlock()
}

func (s *snapshots) last() (model.RouteSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.all) == 0 {
		return model.RouteSnapshot{}, false
	}
	return s.all[len(s.all)-1], true
}

func visitCount(snap model.RouteSnapshot) int {
	n := 0
	for _, r := range snap.Routes {
		n += len(r.Visits)
	}
	return n
}

type failingProvider struct{}

func (failingProvider) TravelTime(context.Context, model.LatLng, model.LatLng) (time.Duration, error) {
	return 0, errors.New("no route")
}

type env struct {
	svc    *LocationService
	store  *store.Memory
	matrix *distance.Matrix
	ro     *planner.RouteOptimizer
	pub    *snapshots
}

func newEnv(t *testing.T, p distance.Provider) env {
	t.Helper()
	solver := opt.NewSolver(opt.Config{Seed: 1, IdleIterations: 50})
	pub := &snapshots{}
	ro := planner.NewRouteOptimizer(solver, pub, planner.GoExecutor{}, planner.Fleet(2, 0))
	st := store.NewMemory()
	m := distance.NewMatrix(p)
	t.Cleanup(func() { _ = ro.Clear() })
	return env{svc: NewLocationService(st, m, ro), store: st, matrix: m, ro: ro, pub: pub}
}

// flakyStore fails deletes while deleteErr is set.
type flakyStore struct {
	*store.Memory
	deleteErr error
}

func (s *flakyStore) DeleteLocation(ctx context.Context, id int64) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	return s.Memory.DeleteLocation(ctx, id)
}

var inputs = []model.LocationInput{
	{Lat: 50.8503, Lng: 4.3517, Description: "Brussels"},
	{Lat: 51.2194, Lng: 4.4025, Description: "Antwerp"},
	{Lat: 51.0543, Lng: 3.7174, Description: "Ghent"},
}

func TestCreateLocationsStartsSolving(t *testing.T) {
	e := newEnv(t, distance.NewCalculator(60))
	ctx := context.Background()

	depot, err := e.svc.CreateLocation(ctx, inputs[0])
	require.NoError(t, err)
	snap, ok := e.pub.last()
	require.True(t, ok)
	require.NotNil(t, snap.Depot)
	assert.Equal(t, depot, *snap.Depot)
	assert.Len(t, snap.Routes, 2)
	assert.False(t, e.ro.IsSolving())

	for _, in := range inputs[1:] {
		_, err := e.svc.CreateLocation(ctx, in)
		require.NoError(t, err)
	}
	assert.True(t, e.ro.IsSolving())
	assert.Equal(t, 3, e.matrix.Size())
	require.Eventually(t, func() bool {
		snap, _ := e.pub.last()
		return visitCount(snap) == 2
	}, 2*time.Second, 5*time.Millisecond)
}

func TestCreateLocationRollsBackWhenTravelTimeFails(t *testing.T) {
	e := newEnv(t, failingProvider{})
	ctx := context.Background()
	_, err := e.svc.CreateLocation(ctx, inputs[0])
	require.NoError(t, err)

	_, err = e.svc.CreateLocation(ctx, inputs[1])
	require.ErrorContains(t, err, "no route")
	all, err := e.svc.Locations(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Equal(t, 1, e.ro.LocationCount())
}

func TestRemoveDepotIsRejectedBeforeStore(t *testing.T) {
	e := newEnv(t, distance.NewCalculator(60))
	ctx := context.Background()
	depot, err := e.svc.CreateLocation(ctx, inputs[0])
	require.NoError(t, err)
	_, err = e.svc.CreateLocation(ctx, inputs[1])
	require.NoError(t, err)

	require.ErrorIs(t, e.svc.RemoveLocation(ctx, depot.ID), planner.ErrInvalidOperation)
	_, err = e.store.GetLocation(ctx, depot.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, e.ro.LocationCount())
}

func TestRemoveUnknownLocation(t *testing.T) {
	e := newEnv(t, distance.NewCalculator(60))
	require.ErrorIs(t, e.svc.RemoveLocation(context.Background(), 99), store.ErrNotFound)
}

func TestRemoveLocationStopsAndPublishesDepot(t *testing.T) {
	e := newEnv(t, distance.NewCalculator(60))
	ctx := context.Background()
	depot, err := e.svc.CreateLocation(ctx, inputs[0])
	require.NoError(t, err)
	visit, err := e.svc.CreateLocation(ctx, inputs[1])
	require.NoError(t, err)
	require.True(t, e.ro.IsSolving())

	require.NoError(t, e.svc.RemoveLocation(ctx, visit.ID))
	assert.False(t, e.ro.IsSolving())
	assert.Equal(t, 1, e.matrix.Size())
	snap, _ := e.pub.last()
	require.NotNil(t, snap.Depot)
	assert.Equal(t, depot, *snap.Depot)
	assert.Zero(t, visitCount(snap))

	require.NoError(t, e.svc.RemoveLocation(ctx, depot.ID))
	snap, _ = e.pub.last()
	assert.Nil(t, snap.Depot)
	assert.Empty(t, snap.Routes)
}

func TestRemoveAllPublishesEmptySnapshot(t *testing.T) {
	for _, n := range []int{1, 3} {
		e := newEnv(t, distance.NewCalculator(60))
		ctx := context.Background()
		for _, in := range inputs[:n] {
			_, err := e.svc.CreateLocation(ctx, in)
			require.NoError(t, err)
		}
		require.NoError(t, e.svc.RemoveAll(ctx))

		assert.False(t, e.ro.IsSolving())
		assert.Zero(t, e.ro.LocationCount())
		assert.Zero(t, e.matrix.Size())
		snap, _ := e.pub.last()
		assert.Nil(t, snap.Depot, "n=%d", n)
		assert.Equal(t, "0h 0m 0s", snap.Distance)
		all, err := e.svc.Locations(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	}
}

func TestReloadReplaysStore(t *testing.T) {
	e := newEnv(t, distance.NewCalculator(60))
	ctx := context.Background()
	for _, in := range inputs {
		_, err := e.store.CreateLocation(ctx, in)
		require.NoError(t, err)
	}

	n, err := e.svc.Reload(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, e.ro.LocationCount())
	assert.Equal(t, "Brussels", e.ro.Locations()[0].Description)
	assert.True(t, e.ro.IsSolving())
}

func TestLoadDemo(t *testing.T) {
	e := newEnv(t, distance.NewCalculator(60))
	ctx := context.Background()
	locs, err := e.svc.LoadDemo(ctx, "berlin")
	require.NoError(t, err)
	ds, _ := demo.Get("berlin")
	assert.Len(t, locs, len(ds.Locations))
	assert.Equal(t, len(ds.Locations), e.ro.LocationCount())

	_, err = e.svc.LoadDemo(ctx, "nowhere")
	require.ErrorIs(t, err, demo.ErrUnknownDataset)
}

func TestRemoveWhileSolvingDropsMatrixRowsOnceStopped(t *testing.T) {
	e := newEnv(t, distance.NewCalculator(60))
	ctx := context.Background()
	var locs []model.Location
	for _, in := range inputs {
		loc, err := e.svc.CreateLocation(ctx, in)
		require.NoError(t, err)
		locs = append(locs, loc)
	}

	require.NoError(t, e.svc.RemoveLocation(ctx, locs[2].ID))
	require.True(t, e.ro.IsSolving())
	assert.Equal(t, 3, e.matrix.Size(), "running search may still read the removed rows")

	require.NoError(t, e.svc.RemoveLocation(ctx, locs[1].ID))
	require.False(t, e.ro.IsSolving())
	assert.Equal(t, 1, e.ro.LocationCount())
	assert.Equal(t, 1, e.matrix.Size())
	assert.Zero(t, e.matrix.TravelTime(locs[0].ID, locs[2].ID))
}

func TestRemoveLocationKeepsOptimizerWhenStoreDeleteFails(t *testing.T) {
	solver := opt.NewSolver(opt.Config{Seed: 1, IdleIterations: 50})
	ro := planner.NewRouteOptimizer(solver, &snapshots{}, planner.GoExecutor{}, planner.Fleet(2, 0))
	t.Cleanup(func() { _ = ro.Clear() })
	st := &flakyStore{Memory: store.NewMemory()}
	m := distance.NewMatrix(distance.NewCalculator(60))
	svc := NewLocationService(st, m, ro)
	ctx := context.Background()

	var last model.Location
	for _, in := range inputs {
		loc, err := svc.CreateLocation(ctx, in)
		require.NoError(t, err)
		last = loc
	}

	st.deleteErr = errors.New("db down")
	require.ErrorIs(t, svc.RemoveLocation(ctx, last.ID), st.deleteErr)
	assert.Equal(t, 3, ro.LocationCount())
	assert.Equal(t, 3, m.Size())
	_, err := st.GetLocation(ctx, last.ID)
	require.NoError(t, err)

	st.deleteErr = nil
	require.NoError(t, svc.RemoveLocation(ctx, last.ID))
	assert.Equal(t, 2, ro.LocationCount())
	_, err = st.GetLocation(ctx, last.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}
