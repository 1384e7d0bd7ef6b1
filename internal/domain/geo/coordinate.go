package geo

import (
	"math"

	"github.com/oficio-marketplace/service-quoting/internal/common/domain"
)

// Coordinate is an immutable WGS84 point in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate checks that the coordinate is a finite point on the globe.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Latitude) || math.IsInf(c.Latitude, 0) ||
		math.IsNaN(c.Longitude) || math.IsInf(c.Longitude, 0) {
		return domain.NewValidationError("coordinate must be finite")
	}
	if c.Latitude < -90 || c.Latitude > 90 {
		return domain.NewValidationError("latitude must be between -90 and 90")
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return domain.NewValidationError("longitude must be between -180 and 180")
	}
	return nil
}

// Haversine returns the great-circle distance between two coordinates in
// kilometers, ignoring the road network.
func Haversine(from, to Coordinate) float64 {
	const earthRadiusKm = 6371.0

	dLat := degreesToRadians(to.Latitude - from.Latitude)
	dLng := degreesToRadians(to.Longitude - from.Longitude)

	lat1Rad := degreesToRadians(from.Latitude)
	lat2Rad := degreesToRadians(to.Latitude)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLng/2)*math.Sin(dLng/2)*math.Cos(lat1Rad)*math.Cos(lat2Rad)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// MovedBeyond reports whether the coordinate lies more than epsilonKm away
// from prev. Used to decide when a cached routed distance is stale.
func (c Coordinate) MovedBeyond(prev Coordinate, epsilonKm float64) bool {
	return Haversine(c, prev) > epsilonKm
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
