package distance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liveroute/internal/model"
)

var (
	berlin  = model.LatLng{Lat: 52.5200, Lng: 13.4050}
	potsdam = model.LatLng{Lat: 52.3906, Lng: 13.0645}
)

// countingProvider charges two minutes northbound, one otherwise, and counts calls.
type countingProvider struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (p *countingProvider) TravelTime(_ context.Context, from, to model.LatLng) (time.Duration, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return 0, p.err
	}
	if from.Lat < to.Lat {
		return 2 * time.Minute, nil
	}
	return time.Minute, nil
}

func TestMetersBerlinPotsdam(t *testing.T) {
	m := Meters(berlin, potsdam)
	assert.InDelta(t, 27000, m, 1000)
	assert.Zero(t, Meters(berlin, berlin))
}

func TestCalculatorUsesSpeed(t *testing.T) {
	ctx := context.Background()
	slow, err := NewCalculator(30).TravelTime(ctx, berlin, potsdam)
	require.NoError(t, err)
	fast, err := NewCalculator(60).TravelTime(ctx, berlin, potsdam)
	require.NoError(t, err)
	assert.InDelta(t, float64(slow), float64(2*fast), float64(2*time.Second))
	assert.Equal(t, float64(50), NewCalculator(0).SpeedKPH)
}

func TestMatrixAddComputesBothDirections(t *testing.T) {
	p := &countingProvider{}
	m := NewMatrix(p)
	ctx := context.Background()

	require.NoError(t, m.Add(ctx, model.Location{ID: 1, LatLng: potsdam}))
	require.NoError(t, m.Add(ctx, model.Location{ID: 2, LatLng: berlin}))
	require.NoError(t, m.Add(ctx, model.Location{ID: 2, LatLng: berlin}))
	assert.Equal(t, 2, p.calls)
	assert.Equal(t, 2, m.Size())

	assert.Equal(t, 2*time.Minute, m.TravelTime(1, 2))
	assert.Equal(t, time.Minute, m.TravelTime(2, 1))
	assert.Zero(t, m.TravelTime(1, 1))

	m.Remove(2)
	assert.Equal(t, 1, m.Size())
	assert.Zero(t, m.TravelTime(1, 2))

	m.Clear()
	assert.Zero(t, m.Size())
}

func TestMatrixAddPropagatesProviderError(t *testing.T) {
	p := &countingProvider{}
	m := NewMatrix(p)
	ctx := context.Background()
	require.NoError(t, m.Add(ctx, model.Location{ID: 1, LatLng: berlin}))

	p.err = errors.New("upstream down")
	err := m.Add(ctx, model.Location{ID: 2, LatLng: potsdam})
	require.ErrorIs(t, err, p.err)
	assert.Equal(t, 1, m.Size())
}

func TestCachedSkipsProviderOnHit(t *testing.T) {
	p := &countingProvider{}
	c := Cached{Provider: p, Cache: NewMemoryCache()}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := c.TravelTime(ctx, potsdam, berlin)
		require.NoError(t, err)
		assert.Equal(t, 2*time.Minute, d)
	}
	assert.Equal(t, 1, p.calls)
}

func TestRedisCacheRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	cache := NewRedisCache(rdb, time.Hour)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, berlin, potsdam)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, berlin, potsdam, 90*time.Second))
	d, ok, err := cache.Get(ctx, berlin, potsdam)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 90*time.Second, d)

	// direction matters
	_, ok, err = cache.Get(ctx, potsdam, berlin)
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(2 * time.Hour)
	_, ok, err = cache.Get(ctx, berlin, potsdam)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCachedFallsBackWhenRedisIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	p := &countingProvider{}
	c := Cached{Provider: p, Cache: NewRedisCache(rdb, time.Minute)}
	d, err := c.TravelTime(context.Background(), berlin, potsdam)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, d)
}
