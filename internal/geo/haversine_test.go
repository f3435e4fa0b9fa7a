package geo_test

import (
	"math"
	"testing"

	"github.com/rongwang/yana-server/internal/geo"
	"github.com/stretchr/testify/assert"
)

var (
	newYork = geo.Point{Lat: 40.7128, Lon: -74.0060}
	london  = geo.Point{Lat: 51.5074, Lon: -0.1278}
)

func TestDistanceZero(t *testing.T) {
	assert.Equal(t, 0.0, geo.Distance(newYork, newYork))
	assert.Equal(t, 0.0, geo.Distance(london, london))
}

func TestDistanceSymmetric(t *testing.T) {
	assert.InDelta(t, geo.Distance(newYork, london), geo.Distance(london, newYork), 1e-9)
}

func TestDistanceKnownPair(t *testing.T) {
	assert.InDelta(t, 5570.0, geo.Distance(newYork, london), 10.0)
}

func TestDistanceAntipodal(t *testing.T) {
	d := geo.Distance(geo.Point{Lat: 0, Lon: 0}, geo.Point{Lat: 0, Lon: 180})
	assert.InDelta(t, math.Pi*geo.EarthRadiusKm, d, 1e-6)
}

func TestWithinBoundary(t *testing.T) {
	nearby := geo.Point{Lat: 40.7228, Lon: -74.0060}
	d := geo.Distance(newYork, nearby)

	assert.True(t, geo.Within(newYork, nearby, d), "point exactly at the radius is included")
	assert.False(t, geo.Within(newYork, nearby, d-1e-9), "point just beyond the radius is excluded")
	assert.True(t, geo.Within(newYork, newYork, 0))
}

func TestValidatePoint(t *testing.T) {
	tests := []struct {
		name    string
		point   geo.Point
		wantErr error
	}{
		{"valid", newYork, nil},
		{"north pole", geo.Point{Lat: 90, Lon: 180}, nil},
		{"latitude too large", geo.Point{Lat: 91, Lon: 0}, geo.ErrInvalidLatitude},
		{"latitude NaN", geo.Point{Lat: math.NaN(), Lon: 0}, geo.ErrInvalidLatitude},
		{"longitude too small", geo.Point{Lat: 0, Lon: -181}, geo.ErrInvalidLongitude},
		{"longitude infinite", geo.Point{Lat: 0, Lon: math.Inf(1)}, geo.ErrInvalidLongitude},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := geo.ValidatePoint(tt.point)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateRadius(t *testing.T) {
	assert.NoError(t, geo.ValidateRadius(0))
	assert.NoError(t, geo.ValidateRadius(geo.DefaultRadiusKm))
	assert.ErrorIs(t, geo.ValidateRadius(-1), geo.ErrInvalidRadius)
	assert.ErrorIs(t, geo.ValidateRadius(math.NaN()), geo.ErrInvalidRadius)
	assert.ErrorIs(t, geo.ValidateRadius(math.Inf(1)), geo.ErrInvalidRadius)
}
