package quote

import (
	"time"

	"github.com/google/uuid"

	"github.com/oficio-marketplace/service-quoting/internal/domain/geo"
	"github.com/oficio-marketplace/service-quoting/internal/domain/pricing"
)

// ReconstructionData carries every persisted field of a Quote.
type ReconstructionData struct {
	ID                 uuid.UUID
	QuoteNumber        string
	ProjectID          uuid.UUID
	ProviderID         uuid.UUID
	ActingAsBusinessID *uuid.UUID
	Status             QuoteStatus
	ProviderLocation   geo.Coordinate
	JobLocation        *geo.Coordinate
	TravelPolicy       pricing.TravelFeePolicy
	TaxProfile         pricing.TaxProfile
	Breakdown          pricing.QuoteBreakdown
	DistanceEstimate   *geo.DistanceEstimate
	IVAAmountClp       int64
	TotalClp           int64
	ResponseType       ResponseType
	VisitTerms         *VisitTerms
	WorkTerms          WorkTerms
	DistanceToken      int64
	IdempotencyKey     uuid.UUID
	RemoteQuoteID      *string
	Revision           int
	SupersededBy       *uuid.UUID
	SubmittedAt        *time.Time
	DecidedAt          *time.Time
	Version            int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ReconstructQuote rebuilds a Quote from persistence data without validation.
func ReconstructQuote(d ReconstructionData) *Quote {
	return &Quote{
		id:                 d.ID,
		quoteNumber:        d.QuoteNumber,
		projectID:          d.ProjectID,
		providerID:         d.ProviderID,
		actingAsBusinessID: d.ActingAsBusinessID,
		status:             d.Status,
		providerLocation:   d.ProviderLocation,
		jobLocation:        d.JobLocation,
		travelPolicy:       d.TravelPolicy,
		taxProfile:         d.TaxProfile,
		breakdown:          d.Breakdown,
		distanceEstimate:   d.DistanceEstimate,
		ivaAmountClp:       d.IVAAmountClp,
		totalClp:           d.TotalClp,
		responseType:       d.ResponseType,
		visitTerms:         d.VisitTerms,
		workTerms:          d.WorkTerms,
		distanceToken:      d.DistanceToken,
		idempotencyKey:     d.IdempotencyKey,
		remoteQuoteID:      d.RemoteQuoteID,
		revision:           d.Revision,
		supersededBy:       d.SupersededBy,
		submittedAt:        d.SubmittedAt,
		decidedAt:          d.DecidedAt,
		version:            d.Version,
		createdAt:          d.CreatedAt,
		updatedAt:          d.UpdatedAt,
	}
}
