package distance

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/oficio-marketplace/service-quoting/internal/common/domain"
	"github.com/oficio-marketplace/service-quoting/internal/domain/geo"
	"github.com/oficio-marketplace/service-quoting/internal/domain/pricing"
)

// Resolver decides how to obtain a distance for a quote: a free haversine
// estimate inside the policy's free radius, a cached routed distance, or a
// paid routing provider call, in that order.
type Resolver struct {
	routed RoutedDistanceProvider
	cache  *Cache
	logger *zap.Logger
}

// NewResolver creates a Resolver.
func NewResolver(routed RoutedDistanceProvider, cache *Cache, logger *zap.Logger) *Resolver {
	return &Resolver{routed: routed, cache: cache, logger: logger}
}

// Resolve returns a distance estimate for the provider/job pair.
//
// Inside the free radius (boundary inclusive) the haversine estimate is
// authoritative and no external call is ever made. Outside it, a fresh cached
// routed distance is returned unchanged when available; otherwise the routing
// provider is called and the routed result cached. When the provider fails the
// haversine value is returned marked degraded together with a retryable
// error, so callers can keep composing but never present the fee as final.
func (r *Resolver) Resolve(ctx context.Context, key CacheKey, origin, destination geo.Coordinate, policy pricing.TravelFeePolicy) (geo.DistanceEstimate, error) {
	d0 := geo.Haversine(origin, destination)

	if d0 <= policy.FreeRadiusKm {
		return geo.DistanceEstimate{
			Kilometers: d0,
			Source:     geo.SourceEstimated,
			ResolvedAt: time.Now().UTC(),
		}, nil
	}

	if cached, ok := r.cache.Get(key, origin, destination); ok {
		r.logger.Debug("routed distance served from cache",
			zap.String("provider_id", key.ProviderID.String()),
			zap.String("project_id", key.ProjectID.String()),
		)
		return cached, nil
	}

	route, err := r.routed.GetRoute(ctx, origin, destination)
	if err != nil {
		r.logger.Warn("routed distance lookup failed, serving degraded estimate",
			zap.Float64("haversine_km", d0),
			zap.Error(err),
		)
		degraded := geo.DistanceEstimate{
			Kilometers: d0,
			Source:     geo.SourceEstimated,
			Degraded:   true,
			ResolvedAt: time.Now().UTC(),
		}
		return degraded, domain.NewDistanceServiceError("routed distance lookup failed").WithCause(err)
	}

	estimate := geo.DistanceEstimate{
		Kilometers:      route.DistanceKm,
		DurationSeconds: route.DurationSeconds,
		Source:          geo.SourceRouted,
		ResolvedAt:      time.Now().UTC(),
	}
	r.cache.Put(key, origin, destination, estimate)
	return estimate, nil
}
