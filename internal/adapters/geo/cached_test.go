package geo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vrp-solver-service/internal/adapters/memory"
	"vrp-solver-service/internal/domain"
)

func TestCachedPathsRoutesEachLegOnce(t *testing.T) {
	a := domain.LatLng{Lat: 0, Lng: 0}
	b := domain.LatLng{Lat: 0, Lng: 1}
	c := domain.LatLng{Lat: 1, Lng: 1}
	inner := NewMock([]MockPair{
		{From: a, To: b, Meters: 100, Millis: 10},
		{From: b, To: c, Meters: 200, Millis: 20},
		{From: c, To: a, Meters: 300, Millis: 30},
	})
	cached := NewCachedPaths(inner, memory.NewPathCache())
	ctx := context.Background()

	routes := []domain.Route{
		{Order: []domain.LatLng{a, b, c, a}},
		{Order: []domain.LatLng{a, b}},
	}

	got, err := cached.DetailedPaths(ctx, routes)
	require.NoError(t, err)
	assert.Equal(t, []domain.LatLng{a, b, c, a}, got[0].Order)
	assert.Equal(t, []domain.LatLng{a, b}, got[1].Order)
	assert.Equal(t, int64(3), inner.Calls())

	_, err = cached.DetailedPaths(ctx, routes)
	require.NoError(t, err)
	assert.Equal(t, int64(3), inner.Calls())

	p, err := cached.SimplePath(ctx, b, c)
	require.NoError(t, err)
	assert.Equal(t, 200.0, p.Distance)
	assert.Equal(t, int64(3), inner.Calls())
}

func TestCachedPathsPropagatesRouterErrors(t *testing.T) {
	cached := NewCachedPaths(NewMock(nil), memory.NewPathCache())

	_, err := cached.SimplePath(context.Background(), domain.LatLng{}, domain.LatLng{Lat: 1})
	assert.Error(t, err)
}
