package distance

import (
	"context"

	"github.com/oficio-marketplace/service-quoting/internal/domain/geo"
)

// Route is the routing provider's answer for an origin/destination pair.
type Route struct {
	DistanceKm      float64
	DurationSeconds int64
}

// RoutedDistanceProvider returns road-network distances. Implementations make
// network calls and may fail or rate-limit; failures must be reported, never
// papered over with a guess.
type RoutedDistanceProvider interface {
	GetRoute(ctx context.Context, origin, destination geo.Coordinate) (Route, error)
}
