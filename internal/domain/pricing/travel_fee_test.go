package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oficio-marketplace/service-quoting/internal/domain/geo"
)

func TestComputeTravelFee(t *testing.T) {
	policy := TravelFeePolicy{
		FreeRadiusKm: 5.0,
		PerKmRateClp: 500,
		MinFeeClp:    1000,
		MaxFeeClp:    50000,
	}

	tests := []struct {
		name     string
		estimate geo.DistanceEstimate
		want     int64
	}{
		{"inside free radius", geo.DistanceEstimate{Kilometers: 3.2, Source: geo.SourceEstimated}, 0},
		{"exactly on free radius boundary", geo.DistanceEstimate{Kilometers: 5.0, Source: geo.SourceEstimated}, 0},
		{"routed shorter than free radius", geo.DistanceEstimate{Kilometers: 4.8, Source: geo.SourceRouted}, 0},
		{"just outside free radius", geo.DistanceEstimate{Kilometers: 5.1, Source: geo.SourceRouted}, 2550},
		{"normal distance", geo.DistanceEstimate{Kilometers: 12.0, Source: geo.SourceRouted}, 6000},
		{"fractional distance rounds half up", geo.DistanceEstimate{Kilometers: 12.345, Source: geo.SourceRouted}, 6173},
		{"very long distance clamps to max", geo.DistanceEstimate{Kilometers: 500.0, Source: geo.SourceRouted}, 50000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeTravelFee(tt.estimate, policy))
		})
	}
}

func TestComputeTravelFee_MinClamp(t *testing.T) {
	policy := TravelFeePolicy{
		FreeRadiusKm: 2.0,
		PerKmRateClp: 100,
		MinFeeClp:    1500,
		MaxFeeClp:    50000,
	}

	// 2.5 km * 100 = 250, below the minimum fee.
	fee := ComputeTravelFee(geo.DistanceEstimate{Kilometers: 2.5, Source: geo.SourceRouted}, policy)
	assert.Equal(t, int64(1500), fee)
}

func TestComputeTravelFee_Deterministic(t *testing.T) {
	policy := TravelFeePolicy{FreeRadiusKm: 1.0, PerKmRateClp: 333, MinFeeClp: 0, MaxFeeClp: 100000}
	estimate := geo.DistanceEstimate{Kilometers: 7.777, Source: geo.SourceRouted}

	first := ComputeTravelFee(estimate, policy)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ComputeTravelFee(estimate, policy))
	}
}

func TestTravelFeePolicy_Validate(t *testing.T) {
	valid := TravelFeePolicy{FreeRadiusKm: 5, PerKmRateClp: 500, MinFeeClp: 1000, MaxFeeClp: 50000}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		policy TravelFeePolicy
	}{
		{"negative free radius", TravelFeePolicy{FreeRadiusKm: -1, PerKmRateClp: 500, MaxFeeClp: 1}},
		{"negative rate", TravelFeePolicy{FreeRadiusKm: 0, PerKmRateClp: -1, MaxFeeClp: 1}},
		{"negative min fee", TravelFeePolicy{FreeRadiusKm: 0, PerKmRateClp: 0, MinFeeClp: -1}},
		{"max below min", TravelFeePolicy{FreeRadiusKm: 0, PerKmRateClp: 0, MinFeeClp: 100, MaxFeeClp: 50}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.policy.Validate())
		})
	}
}
