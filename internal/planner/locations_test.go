package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liveroute/internal/model"
)

func TestLocationSetFirstLocationIsDepot(t *testing.T) {
	s := NewLocationSet()
	assert.True(t, s.IsEmpty())
	_, ok := s.Depot()
	assert.False(t, ok)

	s.Add(location1)
	s.Add(location2)
	d, ok := s.Depot()
	require.True(t, ok)
	assert.Equal(t, location1, d)
	assert.Equal(t, 2, s.Size())
	assert.Equal(t, []model.Location{location1, location2}, s.All())
}

func TestLocationSetDepotRemoval(t *testing.T) {
	s := NewLocationSet()
	s.Add(location1)
	s.Add(location2)

	require.ErrorIs(t, s.Remove(location1), ErrInvalidOperation)
	assert.Equal(t, 2, s.Size())

	require.NoError(t, s.Remove(location2))
	require.NoError(t, s.Remove(location1))
	assert.True(t, s.IsEmpty())
	_, ok := s.Depot()
	assert.False(t, ok)
}

func TestLocationSetBatchRemoval(t *testing.T) {
	s := NewLocationSet()
	s.Add(location1)
	s.Add(location2)
	s.Add(location3)

	// depot may only leave with everybody else
	require.ErrorIs(t, s.RemoveAll([]model.Location{location1, location2}), ErrInvalidOperation)
	assert.Equal(t, 3, s.Size())

	require.ErrorIs(t, s.RemoveAll([]model.Location{location2, location2}), ErrInvalidOperation)
	assert.Equal(t, 3, s.Size())

	require.NoError(t, s.RemoveAll([]model.Location{location3, location1, location2}))
	assert.True(t, s.IsEmpty())
}

func TestLocationSetAllReturnsCopy(t *testing.T) {
	s := NewLocationSet()
	s.Add(location1)
	all := s.All()
	all[0] = location3
	d, _ := s.Depot()
	assert.Equal(t, location1, d)
}
