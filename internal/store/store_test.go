package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liveroute/internal/model"
)

// runContract exercises a Store that starts out empty.
func runContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	depot, err := s.CreateLocation(ctx, model.LocationInput{Lat: 52.52, Lng: 13.405, Description: "Depot"})
	require.NoError(t, err)
	visit, err := s.CreateLocation(ctx, model.LocationInput{Lat: 52.39, Lng: 13.06})
	require.NoError(t, err)
	assert.NotZero(t, depot.ID)
	assert.Greater(t, visit.ID, depot.ID)

	got, err := s.GetLocation(ctx, depot.ID)
	require.NoError(t, err)
	assert.Equal(t, depot, got)
	assert.Equal(t, "Depot", got.Description)

	all, err := s.ListLocations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.Location{depot, visit}, all)

	require.NoError(t, s.DeleteLocation(ctx, depot.ID))
	require.ErrorIs(t, s.DeleteLocation(ctx, depot.ID), ErrNotFound)
	_, err = s.GetLocation(ctx, depot.ID)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.DeleteAll(ctx))
	all, err = s.ListLocations(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
	require.NoError(t, s.Ping(ctx))
}

func TestMemoryContract(t *testing.T) {
	runContract(t, NewMemory())
}

func TestSQLiteContract(t *testing.T) {
	s, err := NewSQLite(context.Background(), filepath.Join(t.TempDir(), "db", "liveroute.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	runContract(t, s)
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "liveroute.db")
	s, err := NewSQLite(ctx, path)
	require.NoError(t, err)
	loc, err := s.CreateLocation(ctx, model.LocationInput{Lat: 1, Lng: 2, Description: "kept"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = NewSQLite(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	all, err := s.ListLocations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.Location{loc}, all)
}

func TestRebind(t *testing.T) {
	pg := &sqlStore{numbered: true}
	assert.Equal(t, "INSERT INTO t VALUES ($1, $2, $3)", pg.rebind("INSERT INTO t VALUES (?, ?, ?)"))
	lite := &sqlStore{}
	assert.Equal(t, "DELETE FROM t WHERE id = ?", lite.rebind("DELETE FROM t WHERE id = ?"))
}
