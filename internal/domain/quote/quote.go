package quote

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/oficio-marketplace/service-quoting/internal/common/domain"
	"github.com/oficio-marketplace/service-quoting/internal/domain/geo"
	"github.com/oficio-marketplace/service-quoting/internal/domain/pricing"
)

const quoteNumberChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Quote is the aggregate root for a provider-side quote. It carries the
// in-progress breakdown while editing and becomes the advisory copy of the
// submitted quote afterwards; the marketplace backend owns the authoritative
// record once submission succeeds.
type Quote struct {
	id                 uuid.UUID
	quoteNumber        string
	projectID          uuid.UUID
	providerID         uuid.UUID
	actingAsBusinessID *uuid.UUID
	status             QuoteStatus

	providerLocation geo.Coordinate
	jobLocation      *geo.Coordinate
	travelPolicy     pricing.TravelFeePolicy
	taxProfile       pricing.TaxProfile

	breakdown        pricing.QuoteBreakdown
	distanceEstimate *geo.DistanceEstimate
	ivaAmountClp     int64
	totalClp         int64

	responseType ResponseType
	visitTerms   *VisitTerms
	workTerms    WorkTerms

	// distanceToken increases monotonically; a distance resolution result is
	// applied only if it carries the latest token, so a slow response for an
	// old job location can never overwrite a newer one.
	distanceToken  int64
	idempotencyKey uuid.UUID

	remoteQuoteID *string
	revision      int
	supersededBy  *uuid.UUID

	submittedAt *time.Time
	decidedAt   *time.Time

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// generateQuoteNumber creates a quote number in the format "QT-XXXXXX".
func generateQuoteNumber() (string, error) {
	result := make([]byte, 6)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(quoteNumberChars))))
		if err != nil {
			return "", fmt.Errorf("failed to generate quote number: %w", err)
		}
		result[i] = quoteNumberChars[n.Int64()]
	}
	return "QT-" + string(result), nil
}

// NewQuote creates a new Quote in editing state with an empty breakdown.
// The tax profile and travel policy are fixed for the life of the quote.
func NewQuote(
	providerID uuid.UUID,
	projectID uuid.UUID,
	actingAsBusinessID *uuid.UUID,
	providerLocation geo.Coordinate,
	travelPolicy pricing.TravelFeePolicy,
	taxProfile pricing.TaxProfile,
) (*Quote, error) {
	if providerID == uuid.Nil {
		return nil, domain.NewValidationError("provider ID is required")
	}
	if projectID == uuid.Nil {
		return nil, domain.NewValidationError("project ID is required")
	}
	if err := providerLocation.Validate(); err != nil {
		return nil, err
	}
	if err := travelPolicy.Validate(); err != nil {
		return nil, err
	}
	if err := taxProfile.Validate(); err != nil {
		return nil, err
	}

	quoteNumber, err := generateQuoteNumber()
	if err != nil {
		return nil, err
	}

	breakdown, err := pricing.ComposeBreakdown(nil, nil, nil, 0)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	q := &Quote{
		id:                 uuid.New(),
		quoteNumber:        quoteNumber,
		projectID:          projectID,
		providerID:         providerID,
		actingAsBusinessID: actingAsBusinessID,
		status:             StatusEditing,
		providerLocation:   providerLocation,
		travelPolicy:       travelPolicy,
		taxProfile:         taxProfile,
		breakdown:          breakdown,
		idempotencyKey:     uuid.New(),
		revision:           1,
		version:            1,
		createdAt:          now,
		updatedAt:          now,
	}
	if err := q.recomputeTax(); err != nil {
		return nil, err
	}
	return q, nil
}

// --- Getters ---

// ID returns the quote's unique identifier.
func (q *Quote) ID() uuid.UUID { return q.id }

// QuoteNumber returns the human-readable quote number.
func (q *Quote) QuoteNumber() string { return q.quoteNumber }

// ProjectID returns the project this quote answers.
func (q *Quote) ProjectID() uuid.UUID { return q.projectID }

// ProviderID returns the quoting provider's user ID.
func (q *Quote) ProviderID() uuid.UUID { return q.providerID }

// ActingAsBusinessID returns the business the provider is quoting for, or nil.
func (q *Quote) ActingAsBusinessID() *uuid.UUID { return q.actingAsBusinessID }

// Status returns the current quote status.
func (q *Quote) Status() QuoteStatus { return q.status }

// ProviderLocation returns the provider's base location.
func (q *Quote) ProviderLocation() geo.Coordinate { return q.providerLocation }

// JobLocation returns the job site location, or nil if not yet known.
func (q *Quote) JobLocation() *geo.Coordinate { return q.jobLocation }

// TravelPolicy returns the travel fee policy fixed for this quote.
func (q *Quote) TravelPolicy() pricing.TravelFeePolicy { return q.travelPolicy }

// TaxProfile returns the tax profile fixed for this quote.
func (q *Quote) TaxProfile() pricing.TaxProfile { return q.taxProfile }

// Breakdown returns the current price breakdown.
func (q *Quote) Breakdown() pricing.QuoteBreakdown { return q.breakdown }

// DistanceEstimate returns the applied distance estimate, or nil.
func (q *Quote) DistanceEstimate() *geo.DistanceEstimate { return q.distanceEstimate }

// IVAAmountClp returns the computed IVA amount.
func (q *Quote) IVAAmountClp() int64 { return q.ivaAmountClp }

// TotalClp returns the subtotal plus IVA.
func (q *Quote) TotalClp() int64 { return q.totalClp }

// ResponseType returns the chosen response type, empty until set.
func (q *Quote) ResponseType() ResponseType { return q.responseType }

// VisitTerms returns the site-visit terms, or nil.
func (q *Quote) VisitTerms() *VisitTerms { return q.visitTerms }

// WorkTerms returns the duration and session metadata.
func (q *Quote) WorkTerms() WorkTerms { return q.workTerms }

// DistanceToken returns the current distance request token.
func (q *Quote) DistanceToken() int64 { return q.distanceToken }

// IdempotencyKey returns the client-generated submission idempotency key.
func (q *Quote) IdempotencyKey() uuid.UUID { return q.idempotencyKey }

// RemoteQuoteID returns the backend-assigned quote ID, or nil before submission.
func (q *Quote) RemoteQuoteID() *string { return q.remoteQuoteID }

// Revision returns the resubmission revision, starting at 1.
func (q *Quote) Revision() int { return q.revision }

// SupersededBy returns the ID of the quote replacing this one, or nil.
func (q *Quote) SupersededBy() *uuid.UUID { return q.supersededBy }

// SubmittedAt returns the submission time, or nil.
func (q *Quote) SubmittedAt() *time.Time { return q.submittedAt }

// DecidedAt returns the time the backend accepted or rejected the quote.
func (q *Quote) DecidedAt() *time.Time { return q.decidedAt }

// Version returns the entity version for optimistic locking.
func (q *Quote) Version() int64 { return q.version }

// CreatedAt returns the creation timestamp.
func (q *Quote) CreatedAt() time.Time { return q.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (q *Quote) UpdatedAt() time.Time { return q.updatedAt }

// IsPreliminary reports whether the quoted total is provisional pending an
// on-site visit. Callers must present such totals as estimates, not prices.
func (q *Quote) IsPreliminary() bool {
	return q.responseType == ResponseVisitRequired
}

// --- Editing behavior ---

// UpdateItems replaces the labor, materials and custom charge lines and
// recomposes the breakdown, keeping the current travel fee.
func (q *Quote) UpdateItems(labor []pricing.LaborItem, materials []pricing.MaterialItem, charges []pricing.CustomCharge) error {
	if q.status != StatusEditing {
		return domain.NewInvalidStateError(string(q.status), string(StatusEditing))
	}

	breakdown, err := pricing.ComposeBreakdown(labor, materials, charges, q.breakdown.TravelFeeClp)
	if err != nil {
		return err
	}
	q.breakdown = breakdown
	if err := q.recomputeTax(); err != nil {
		return err
	}
	q.updatedAt = time.Now().UTC()
	return nil
}

// SetResponseType chooses between a firm quote and a visit-required quote.
func (q *Quote) SetResponseType(rt ResponseType) error {
	if q.status != StatusEditing {
		return domain.NewInvalidStateError(string(q.status), string(StatusEditing))
	}
	if !rt.IsValid() {
		return domain.NewFieldValidationError("response_type", "must be quote_now or visit_required")
	}
	q.responseType = rt
	if rt == ResponseQuoteNow {
		q.visitTerms = nil
	}
	q.updatedAt = time.Now().UTC()
	return nil
}

// SetVisitTerms sets the site-visit cost and deductibility for a
// visit-required quote.
func (q *Quote) SetVisitTerms(terms VisitTerms) error {
	if q.status != StatusEditing {
		return domain.NewInvalidStateError(string(q.status), string(StatusEditing))
	}
	if err := terms.Validate(); err != nil {
		return err
	}
	q.visitTerms = &terms
	q.updatedAt = time.Now().UTC()
	return nil
}

// SetWorkTerms sets duration, session and notes metadata.
func (q *Quote) SetWorkTerms(terms WorkTerms) error {
	if q.status != StatusEditing {
		return domain.NewInvalidStateError(string(q.status), string(StatusEditing))
	}
	if err := terms.Validate(); err != nil {
		return err
	}
	q.workTerms = terms
	q.updatedAt = time.Now().UTC()
	return nil
}

// SetJobLocation records the job site. Any previous distance estimate is
// dropped and the distance token is bumped so in-flight resolutions for the
// old location are discarded when they return.
func (q *Quote) SetJobLocation(loc geo.Coordinate) error {
	if q.status != StatusEditing {
		return domain.NewInvalidStateError(string(q.status), string(StatusEditing))
	}
	if err := loc.Validate(); err != nil {
		return err
	}

	q.jobLocation = &loc
	q.distanceToken++
	q.distanceEstimate = nil

	breakdown, err := pricing.ComposeBreakdown(
		q.breakdown.LaborItems, q.breakdown.MaterialItems, q.breakdown.CustomCharges, 0)
	if err != nil {
		return err
	}
	q.breakdown = breakdown
	if err := q.recomputeTax(); err != nil {
		return err
	}
	q.updatedAt = time.Now().UTC()
	return nil
}

// --- Distance resolution ---

// BeginDistanceResolution moves the quote into resolving_distance and returns
// the token the eventual result must carry.
func (q *Quote) BeginDistanceResolution() (int64, error) {
	if !q.status.CanTransitionTo(StatusResolvingDistance) {
		return 0, domain.NewInvalidStateError(string(q.status), string(StatusResolvingDistance))
	}
	if q.jobLocation == nil {
		return 0, domain.NewFieldValidationError("job_location", "must be set before resolving distance")
	}
	q.status = StatusResolvingDistance
	q.updatedAt = time.Now().UTC()
	return q.distanceToken, nil
}

// ApplyDistanceEstimate applies a resolution result and returns to editing.
// A result carrying an outdated token is discarded: the quote returns to
// editing with its breakdown untouched and applied is false.
func (q *Quote) ApplyDistanceEstimate(token int64, estimate geo.DistanceEstimate, travelFeeClp int64) (applied bool, err error) {
	if q.status != StatusResolvingDistance {
		return false, domain.NewInvalidStateError(string(q.status), string(StatusEditing))
	}

	q.status = StatusEditing
	q.updatedAt = time.Now().UTC()

	if token != q.distanceToken {
		return false, nil
	}

	breakdown, composeErr := pricing.ComposeBreakdown(
		q.breakdown.LaborItems, q.breakdown.MaterialItems, q.breakdown.CustomCharges, travelFeeClp)
	if composeErr != nil {
		return false, composeErr
	}
	q.distanceEstimate = &estimate
	q.breakdown = breakdown
	if err := q.recomputeTax(); err != nil {
		return false, err
	}
	return true, nil
}

// CancelDistanceResolution abandons an in-flight resolution, returning to
// editing without applying anything.
func (q *Quote) CancelDistanceResolution() error {
	if q.status != StatusResolvingDistance {
		return domain.NewInvalidStateError(string(q.status), string(StatusEditing))
	}
	q.status = StatusEditing
	q.updatedAt = time.Now().UTC()
	return nil
}

// --- Submission lifecycle ---

// BeginSubmission validates the quote is submittable and moves to submitting.
func (q *Quote) BeginSubmission() error {
	if !q.status.CanTransitionTo(StatusSubmitting) {
		return domain.NewInvalidStateError(string(q.status), string(StatusSubmitting))
	}
	if q.breakdown.SubtotalClp <= 0 {
		return domain.NewFieldValidationError("subtotal_clp", "must be positive to submit")
	}
	if !q.responseType.IsValid() {
		return domain.NewFieldValidationError("response_type", "must be set before submitting")
	}
	if q.responseType == ResponseVisitRequired && q.visitTerms == nil {
		return domain.NewFieldValidationError("visit_terms", "site visit cost and deductibility are required for visit_required quotes")
	}
	q.status = StatusSubmitting
	q.updatedAt = time.Now().UTC()
	return nil
}

// CompleteSubmission records the backend-assigned quote ID and moves to submitted.
func (q *Quote) CompleteSubmission(remoteQuoteID string) error {
	if !q.status.CanTransitionTo(StatusSubmitted) {
		return domain.NewInvalidStateError(string(q.status), string(StatusSubmitted))
	}
	now := time.Now().UTC()
	q.status = StatusSubmitted
	q.remoteQuoteID = &remoteQuoteID
	q.submittedAt = &now
	q.updatedAt = now
	return nil
}

// FailSubmission returns a failed submission to editing. Nothing else changes;
// composed data is never corrupted by a submission failure.
func (q *Quote) FailSubmission() error {
	if q.status != StatusSubmitting {
		return domain.NewInvalidStateError(string(q.status), string(StatusEditing))
	}
	q.status = StatusEditing
	q.updatedAt = time.Now().UTC()
	return nil
}

// Accept records the backend's acceptance. The quote becomes immutable.
func (q *Quote) Accept() error {
	if !q.status.CanTransitionTo(StatusAccepted) {
		return domain.NewInvalidStateError(string(q.status), string(StatusAccepted))
	}
	now := time.Now().UTC()
	q.status = StatusAccepted
	q.decidedAt = &now
	q.updatedAt = now
	return nil
}

// Reject records the backend's rejection.
func (q *Quote) Reject() error {
	if !q.status.CanTransitionTo(StatusRejected) {
		return domain.NewInvalidStateError(string(q.status), string(StatusRejected))
	}
	now := time.Now().UTC()
	q.status = StatusRejected
	q.decidedAt = &now
	q.updatedAt = now
	return nil
}

// Withdraw takes the quote out of consideration.
func (q *Quote) Withdraw() error {
	if !q.status.CanTransitionTo(StatusWithdrawn) {
		return domain.NewInvalidStateError(string(q.status), string(StatusWithdrawn))
	}
	q.status = StatusWithdrawn
	q.updatedAt = time.Now().UTC()
	return nil
}

// MarkSuperseded links this quote to the new revision replacing it.
func (q *Quote) MarkSuperseded(byID uuid.UUID) error {
	if !q.status.CanTransitionTo(StatusSuperseded) {
		return domain.NewInvalidStateError(string(q.status), string(StatusSuperseded))
	}
	q.status = StatusSuperseded
	q.supersededBy = &byID
	q.updatedAt = time.Now().UTC()
	return nil
}

// NewRevision clones this quote into a fresh editing draft with revision+1 and
// a new idempotency key. The original is left untouched; callers mark it
// superseded separately so history is never rewritten.
func (q *Quote) NewRevision() (*Quote, error) {
	clone, err := NewQuote(q.providerID, q.projectID, q.actingAsBusinessID, q.providerLocation, q.travelPolicy, q.taxProfile)
	if err != nil {
		return nil, err
	}

	clone.revision = q.revision + 1
	clone.workTerms = q.workTerms
	clone.responseType = q.responseType
	if q.visitTerms != nil {
		terms := *q.visitTerms
		clone.visitTerms = &terms
	}
	if err := clone.UpdateItems(q.breakdown.LaborItems, q.breakdown.MaterialItems, q.breakdown.CustomCharges); err != nil {
		return nil, err
	}
	if q.jobLocation != nil {
		if err := clone.SetJobLocation(*q.jobLocation); err != nil {
			return nil, err
		}
	}
	return clone, nil
}

// IncrementVersion bumps the version for optimistic locking.
func (q *Quote) IncrementVersion() {
	q.version++
	q.updatedAt = time.Now().UTC()
}

// recomputeTax reapplies the fixed tax profile to the current subtotal.
func (q *Quote) recomputeTax() error {
	result, err := pricing.ApplyTax(q.breakdown.SubtotalClp, q.taxProfile)
	if err != nil {
		return err
	}
	q.ivaAmountClp = result.IVAAmountClp
	q.totalClp = result.TotalClp
	return nil
}
