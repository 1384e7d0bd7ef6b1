package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoordinate_Validate(t *testing.T) {
	tests := []struct {
		name    string
		coord   Coordinate
		wantErr bool
	}{
		{"valid santiago", Coordinate{Latitude: -33.4489, Longitude: -70.6693}, false},
		{"valid equator", Coordinate{Latitude: 0, Longitude: 0}, false},
		{"valid boundary", Coordinate{Latitude: 90, Longitude: -180}, false},
		{"latitude too high", Coordinate{Latitude: 90.1, Longitude: 0}, true},
		{"latitude too low", Coordinate{Latitude: -90.1, Longitude: 0}, true},
		{"longitude too high", Coordinate{Latitude: 0, Longitude: 180.1}, true},
		{"longitude too low", Coordinate{Latitude: 0, Longitude: -180.1}, true},
		{"nan latitude", Coordinate{Latitude: math.NaN(), Longitude: 0}, true},
		{"inf longitude", Coordinate{Latitude: 0, Longitude: math.Inf(1)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.coord.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHaversine(t *testing.T) {
	santiago := Coordinate{Latitude: -33.4489, Longitude: -70.6693}
	valparaiso := Coordinate{Latitude: -33.0472, Longitude: -71.6127}

	// Straight-line Santiago to Valparaiso is roughly 99 km.
	d := Haversine(santiago, valparaiso)
	assert.InDelta(t, 99.0, d, 3.0)

	// Symmetric.
	assert.InDelta(t, d, Haversine(valparaiso, santiago), 1e-9)

	// Same point is zero.
	assert.Zero(t, Haversine(santiago, santiago))
}

func TestCoordinate_MovedBeyond(t *testing.T) {
	base := Coordinate{Latitude: -33.4489, Longitude: -70.6693}

	// ~0.011 km north (0.0001 degrees of latitude).
	nearby := Coordinate{Latitude: base.Latitude + 0.0001, Longitude: base.Longitude}
	assert.False(t, nearby.MovedBeyond(base, 0.05))

	// ~1.1 km north.
	far := Coordinate{Latitude: base.Latitude + 0.01, Longitude: base.Longitude}
	assert.True(t, far.MovedBeyond(base, 0.05))
}
