package geo

import "time"

// DistanceSource tells how a distance estimate was obtained.
type DistanceSource string

const (
	// SourceEstimated is a straight-line haversine approximation.
	SourceEstimated DistanceSource = "estimated"
	// SourceRouted is a road-network distance from the routing provider.
	SourceRouted DistanceSource = "routed"
)

// DistanceEstimate is the resolved distance between a provider and a job.
// Degraded marks an estimated value served because the routing provider
// failed; callers must not present its fee as final.
type DistanceEstimate struct {
	Kilometers      float64        `json:"kilometers"`
	DurationSeconds int64          `json:"duration_seconds,omitempty"`
	Source          DistanceSource `json:"source"`
	Degraded        bool           `json:"degraded,omitempty"`
	ResolvedAt      time.Time      `json:"resolved_at"`
}

// IsRouted returns true if the estimate came from the routing provider.
func (e DistanceEstimate) IsRouted() bool {
	return e.Source == SourceRouted
}
