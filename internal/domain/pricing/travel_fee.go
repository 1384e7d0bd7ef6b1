package pricing

import (
	"math"

	"github.com/oficio-marketplace/service-quoting/internal/common/domain"
	"github.com/oficio-marketplace/service-quoting/internal/domain/geo"
)

// TravelFeePolicy is the per-provider travel fee configuration. Immutable for
// the lifetime of a quote.
type TravelFeePolicy struct {
	FreeRadiusKm float64 `json:"free_radius_km"`
	PerKmRateClp int64   `json:"per_km_rate_clp"`
	MinFeeClp    int64   `json:"min_fee_clp"`
	MaxFeeClp    int64   `json:"max_fee_clp"`
}

// Validate checks the policy invariants.
func (p TravelFeePolicy) Validate() error {
	if math.IsNaN(p.FreeRadiusKm) || math.IsInf(p.FreeRadiusKm, 0) || p.FreeRadiusKm < 0 {
		return domain.NewFieldValidationError("free_radius_km", "must be a non-negative number")
	}
	if p.PerKmRateClp < 0 {
		return domain.NewFieldValidationError("per_km_rate_clp", "must be non-negative")
	}
	if p.MinFeeClp < 0 {
		return domain.NewFieldValidationError("min_fee_clp", "must be non-negative")
	}
	if p.MaxFeeClp < p.MinFeeClp {
		return domain.NewFieldValidationError("max_fee_clp", "must be greater than or equal to min_fee_clp")
	}
	return nil
}

// ComputeTravelFee maps a resolved distance to a travel fee in whole pesos.
//
// Any distance inside the free radius costs nothing, including a routed
// distance that came back shorter than the straight-line pre-check. Outside
// the radius the fee is the per-km charge rounded to the nearest peso and
// clamped to the policy bounds. Identical inputs always produce identical fees.
func ComputeTravelFee(estimate geo.DistanceEstimate, policy TravelFeePolicy) int64 {
	if estimate.Kilometers <= policy.FreeRadiusKm {
		return 0
	}

	fee := roundHalfUp(estimate.Kilometers * float64(policy.PerKmRateClp))
	if fee < policy.MinFeeClp {
		fee = policy.MinFeeClp
	}
	if fee > policy.MaxFeeClp {
		fee = policy.MaxFeeClp
	}
	return fee
}

// roundHalfUp rounds a non-negative value to the nearest whole peso.
func roundHalfUp(v float64) int64 {
	return int64(math.Floor(v + 0.5))
}
