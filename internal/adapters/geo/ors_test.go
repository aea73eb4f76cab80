package geo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"vrp-solver-service/internal/domain"
)

func newTestORS(t *testing.T, h http.HandlerFunc) *ORS {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	o, err := NewORS("key", WithBaseURL(srv.URL), WithRetry(3, time.Millisecond))
	require.NoError(t, err)
	return o
}

func TestNewORSRequiresKey(t *testing.T) {
	_, err := NewORS("")
	assert.Error(t, err)
}

func TestORSSimplePathRetriesTransientFailures(t *testing.T) {
	var hits atomic.Int32
	o := newTestORS(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/directions/driving-car/geojson", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("Authorization"))

		if hits.Inc() == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		var body directionsRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, [][]float64{{-46.6, -23.5}, {-46.7, -23.6}}, body.Coordinates)

		_, _ = w.Write([]byte(`{"features":[{"geometry":{"coordinates":[[-46.6,-23.5],[-46.65,-23.55],[-46.7,-23.6]]},
			"properties":{"summary":{"distance":15321.4,"duration":1200.5}}}]}`))
	})

	p, err := o.SimplePath(context.Background(),
		domain.LatLng{Lat: -23.5, Lng: -46.6}, domain.LatLng{Lat: -23.6, Lng: -46.7})
	require.NoError(t, err)

	assert.EqualValues(t, 2, hits.Load())
	assert.InDelta(t, 15321.4, p.Distance, 1e-9)
	assert.EqualValues(t, 1200500, p.Time)
	require.Len(t, p.Coordinates, 3)
	assert.Equal(t, domain.LatLng{Lat: -23.55, Lng: -46.65}, p.Coordinates[1])
}

func TestORSDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	o := newTestORS(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Inc()
		http.Error(w, "bad coordinates", http.StatusBadRequest)
	})

	_, err := o.SimplePath(context.Background(), domain.LatLng{}, domain.LatLng{Lat: 1})
	require.Error(t, err)
	assert.EqualValues(t, 1, hits.Load())

	var he *httpStatusError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestORSGenerateMatrix(t *testing.T) {
	o := newTestORS(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/matrix/driving-car", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"distances":[[0,1000.5],[900,0]],
			"durations":[[0,60],[55.5,0]]
		}`))
	})

	locs := []domain.Location{
		domain.Depot{ID: 10, Lat: 1, Lng: 1},
		domain.Customer{ID: 20, Lat: 2, Lng: 2},
	}
	m, err := o.GenerateMatrix(context.Background(), locs)
	require.NoError(t, err)

	assert.Equal(t, 1000.5, m.Distance(10, 20))
	assert.Equal(t, 900.0, m.Distance(20, 10))
	assert.EqualValues(t, 60000, m.Time(10, 20))
	assert.EqualValues(t, 55500, m.Time(20, 10))
	assert.EqualValues(t, 0, m.Time(10, 10))
}

func TestORSGenerateMatrixRejectsMissingRoutes(t *testing.T) {
	o := newTestORS(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"distances":[[0,null],[1,0]],"durations":[[0,1],[1,0]]}`))
	})

	_, err := o.GenerateMatrix(context.Background(), []domain.Location{
		domain.Depot{ID: 1}, domain.Customer{ID: 2, Lat: 1},
	})
	assert.Error(t, err)
}

func TestRetryDelayHonorsRetryAfter(t *testing.T) {
	d, ok := retryDelay(&httpStatusError{Code: http.StatusTooManyRequests, RetryAfter: 2 * time.Second}, time.Millisecond)
	assert.True(t, ok)
	assert.Equal(t, 2*time.Second, d)

	d, ok = retryDelay(&httpStatusError{Code: http.StatusBadGateway}, time.Millisecond)
	assert.True(t, ok)
	assert.Equal(t, time.Millisecond, d)

	_, ok = retryDelay(&httpStatusError{Code: http.StatusNotFound}, time.Millisecond)
	assert.False(t, ok)
}
