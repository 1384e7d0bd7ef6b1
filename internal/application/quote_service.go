package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oficio-marketplace/service-quoting/internal/common/domain"
	"github.com/oficio-marketplace/service-quoting/internal/common/kafka"
	"github.com/oficio-marketplace/service-quoting/internal/distance"
	"github.com/oficio-marketplace/service-quoting/internal/domain/geo"
	"github.com/oficio-marketplace/service-quoting/internal/domain/pricing"
	quoteDomain "github.com/oficio-marketplace/service-quoting/internal/domain/quote"
	"github.com/oficio-marketplace/service-quoting/internal/gateway"
)

// EventPublisher publishes CloudEvents to a topic.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, event kafka.CloudEvent) error
}

// PricingDefaults holds the service-level fallbacks applied when a create
// request does not carry an explicit policy.
type PricingDefaults struct {
	TravelPolicy   pricing.TravelFeePolicy
	VATRatePercent float64
}

// CreateQuoteRequest holds the data needed to open a new quote draft.
// Locations arrive pre-validated from the address collaborator.
type CreateQuoteRequest struct {
	ProjectID          uuid.UUID                `json:"project_id" binding:"required"`
	ActingAsBusinessID *uuid.UUID               `json:"acting_as_business_id"`
	ProviderLocation   geo.Coordinate           `json:"provider_location" binding:"required"`
	JobLocation        *geo.Coordinate          `json:"job_location"`
	TravelPolicy       *pricing.TravelFeePolicy `json:"travel_policy"`
	VATExempt          *bool                    `json:"vat_exempt"`
}

// UpdateItemsRequest replaces the line items of a draft.
type UpdateItemsRequest struct {
	LaborItems    []pricing.LaborItem    `json:"labor_items"`
	MaterialItems []pricing.MaterialItem `json:"material_items"`
	CustomCharges []pricing.CustomCharge `json:"custom_charges"`
}

// UpdateTermsRequest updates response type, visit and work terms of a draft.
type UpdateTermsRequest struct {
	ResponseType *quoteDomain.ResponseType `json:"response_type"`
	VisitTerms   *quoteDomain.VisitTerms   `json:"visit_terms"`
	WorkTerms    *quoteDomain.WorkTerms    `json:"work_terms"`
}

// QuoteDTO is the response representation of a quote.
type QuoteDTO struct {
	ID                  uuid.UUID                     `json:"id"`
	QuoteNumber         string                        `json:"quote_number"`
	ProjectID           uuid.UUID                     `json:"project_id"`
	ProviderID          uuid.UUID                     `json:"provider_id"`
	ActingAsBusinessID  *uuid.UUID                    `json:"acting_as_business_id,omitempty"`
	Status              string                        `json:"status"`
	ProviderLocation    geo.Coordinate                `json:"provider_location"`
	JobLocation         *geo.Coordinate               `json:"job_location,omitempty"`
	TravelPolicy        pricing.TravelFeePolicy       `json:"travel_policy"`
	TaxProfile          pricing.TaxProfile            `json:"tax_profile"`
	Breakdown           pricing.QuoteBreakdown        `json:"breakdown"`
	DistanceEstimate    *geo.DistanceEstimate         `json:"distance_estimate,omitempty"`
	IVAAmountClp        int64                         `json:"iva_amount_clp"`
	TotalClp            int64                         `json:"total_clp"`
	ResponseType        string                        `json:"response_type,omitempty"`
	VisitTerms          *quoteDomain.VisitTerms       `json:"visit_terms,omitempty"`
	WorkTerms           quoteDomain.WorkTerms         `json:"work_terms"`
	PreliminaryEstimate bool                          `json:"preliminary_estimate"`
	RemoteQuoteID       *string                       `json:"remote_quote_id,omitempty"`
	Revision            int                           `json:"revision"`
	SupersededBy        *uuid.UUID                    `json:"superseded_by,omitempty"`
	SubmittedAt         *time.Time                    `json:"submitted_at,omitempty"`
	DecidedAt           *time.Time                    `json:"decided_at,omitempty"`
	Version             int64                         `json:"version"`
	CreatedAt           time.Time                     `json:"created_at"`
	UpdatedAt           time.Time                     `json:"updated_at"`
}

// QuoteService is the application service orchestrating quote composition,
// distance resolution and submission.
type QuoteService struct {
	repo      quoteDomain.QuoteRepository
	resolver  *distance.Resolver
	gateway   gateway.SubmissionGateway
	publisher EventPublisher
	defaults  PricingDefaults
	logger    *zap.Logger
}

// NewQuoteService creates a new QuoteService.
func NewQuoteService(
	repo quoteDomain.QuoteRepository,
	resolver *distance.Resolver,
	gw gateway.SubmissionGateway,
	publisher EventPublisher,
	defaults PricingDefaults,
	logger *zap.Logger,
) *QuoteService {
	return &QuoteService{
		repo:      repo,
		resolver:  resolver,
		gateway:   gw,
		publisher: publisher,
		defaults:  defaults,
		logger:    logger,
	}
}

// CreateQuote opens a new quote draft for the given provider. The tax profile
// is resolved here, once, from the acting entity and stays fixed for the quote.
func (s *QuoteService) CreateQuote(ctx context.Context, providerID uuid.UUID, req CreateQuoteRequest) (*QuoteDTO, error) {
	policy := s.defaults.TravelPolicy
	if req.TravelPolicy != nil {
		policy = *req.TravelPolicy
	}

	taxProfile := s.resolveTaxProfile(req.ActingAsBusinessID, req.VATExempt)

	q, err := quoteDomain.NewQuote(providerID, req.ProjectID, req.ActingAsBusinessID, req.ProviderLocation, policy, taxProfile)
	if err != nil {
		return nil, err
	}

	if req.JobLocation != nil {
		if err := q.SetJobLocation(*req.JobLocation); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Save(ctx, q); err != nil {
		return nil, fmt.Errorf("failed to save quote: %w", err)
	}

	result := toQuoteDTO(q)
	return &result, nil
}

// UpdateItems replaces the labor, materials and custom charge lines of a draft.
func (s *QuoteService) UpdateItems(ctx context.Context, providerID, quoteID uuid.UUID, req UpdateItemsRequest) (*QuoteDTO, error) {
	q, err := s.ownedQuote(ctx, providerID, quoteID)
	if err != nil {
		return nil, err
	}

	if err := q.UpdateItems(req.LaborItems, req.MaterialItems, req.CustomCharges); err != nil {
		return nil, err
	}

	return s.persist(ctx, q)
}

// UpdateTerms updates the response type, visit terms and work terms of a draft.
func (s *QuoteService) UpdateTerms(ctx context.Context, providerID, quoteID uuid.UUID, req UpdateTermsRequest) (*QuoteDTO, error) {
	q, err := s.ownedQuote(ctx, providerID, quoteID)
	if err != nil {
		return nil, err
	}

	if req.ResponseType != nil {
		if err := q.SetResponseType(*req.ResponseType); err != nil {
			return nil, err
		}
	}
	if req.VisitTerms != nil {
		if err := q.SetVisitTerms(*req.VisitTerms); err != nil {
			return nil, err
		}
	}
	if req.WorkTerms != nil {
		if err := q.SetWorkTerms(*req.WorkTerms); err != nil {
			return nil, err
		}
	}

	return s.persist(ctx, q)
}

// SetJobLocation records the job site on a draft. Any in-flight distance
// resolution for the previous location becomes stale.
func (s *QuoteService) SetJobLocation(ctx context.Context, providerID, quoteID uuid.UUID, loc geo.Coordinate) (*QuoteDTO, error) {
	q, err := s.ownedQuote(ctx, providerID, quoteID)
	if err != nil {
		return nil, err
	}

	if err := q.SetJobLocation(loc); err != nil {
		return nil, err
	}

	return s.persist(ctx, q)
}

// ResolveDistance resolves the travel distance for a draft and folds the
// resulting travel fee into its breakdown. When the routing provider fails the
// draft still receives a degraded estimate and the retryable error is returned
// alongside the updated quote; composition is never blocked.
func (s *QuoteService) ResolveDistance(ctx context.Context, providerID, quoteID uuid.UUID) (*QuoteDTO, error) {
	q, err := s.ownedQuote(ctx, providerID, quoteID)
	if err != nil {
		return nil, err
	}

	// A resolution interrupted before its result was persisted leaves the
	// quote parked in resolving_distance; reclaim it instead of rejecting
	// the retry.
	if q.Status() == quoteDomain.StatusResolvingDistance {
		if err := q.CancelDistanceResolution(); err != nil {
			return nil, err
		}
	}

	token, err := q.BeginDistanceResolution()
	if err != nil {
		return nil, err
	}
	if _, err := s.persist(ctx, q); err != nil {
		return nil, err
	}

	key := distance.CacheKey{ProviderID: q.ProviderID(), ProjectID: q.ProjectID()}
	estimate, resolveErr := s.resolver.Resolve(ctx, key, q.ProviderLocation(), *q.JobLocation(), q.TravelPolicy())
	if resolveErr != nil && !isDistanceDegradation(resolveErr) {
		if cancelErr := q.CancelDistanceResolution(); cancelErr == nil {
			_, _ = s.persist(ctx, q)
		}
		return nil, resolveErr
	}

	fee := pricing.ComputeTravelFee(estimate, q.TravelPolicy())
	applied, err := q.ApplyDistanceEstimate(token, estimate, fee)
	if err != nil {
		return nil, err
	}
	if !applied {
		s.logger.Info("stale distance resolution discarded",
			zap.String("quote_id", q.ID().String()),
			zap.Int64("token", token),
		)
	}

	dto, err := s.persist(ctx, q)
	if err != nil {
		return nil, err
	}
	return dto, resolveErr
}

// SubmitQuote validates and dispatches the quote to the marketplace core.
// Validation failures never reach the gateway; a gateway failure returns the
// quote to editing without touching the composed data.
func (s *QuoteService) SubmitQuote(ctx context.Context, providerID, quoteID uuid.UUID) (*QuoteDTO, error) {
	q, err := s.ownedQuote(ctx, providerID, quoteID)
	if err != nil {
		return nil, err
	}

	if err := q.BeginSubmission(); err != nil {
		return nil, err
	}
	if _, err := s.persist(ctx, q); err != nil {
		return nil, err
	}

	result, submitErr := s.gateway.SubmitQuote(ctx, q.IdempotencyKey(), buildQuotePayload(q))
	if submitErr != nil {
		if failErr := q.FailSubmission(); failErr != nil {
			return nil, failErr
		}
		if _, err := s.persist(ctx, q); err != nil {
			return nil, err
		}
		return nil, submitErr
	}

	if err := q.CompleteSubmission(result.QuoteID); err != nil {
		return nil, err
	}
	dto, err := s.persist(ctx, q)
	if err != nil {
		return nil, err
	}

	s.publishQuoteEvent(ctx, EventQuoteSubmitted, q.ID().String(), QuoteSubmittedEvent{
		QuoteID:             q.ID(),
		QuoteNumber:         q.QuoteNumber(),
		ProjectID:           q.ProjectID(),
		ProviderID:          q.ProviderID(),
		RemoteQuoteID:       result.QuoteID,
		TotalClp:            q.TotalClp(),
		PreliminaryEstimate: q.IsPreliminary(),
		OccurredAt:          time.Now().UTC(),
	})

	return dto, nil
}

// WithdrawQuote takes a quote out of consideration.
func (s *QuoteService) WithdrawQuote(ctx context.Context, providerID, quoteID uuid.UUID) (*QuoteDTO, error) {
	q, err := s.ownedQuote(ctx, providerID, quoteID)
	if err != nil {
		return nil, err
	}

	if err := q.Withdraw(); err != nil {
		return nil, err
	}
	dto, err := s.persist(ctx, q)
	if err != nil {
		return nil, err
	}

	s.publishQuoteEvent(ctx, EventQuoteWithdrawn, q.ID().String(), QuoteWithdrawnEvent{
		QuoteID:     q.ID(),
		QuoteNumber: q.QuoteNumber(),
		ProviderID:  q.ProviderID(),
		OccurredAt:  time.Now().UTC(),
	})

	return dto, nil
}

// ResubmitQuote clones a submitted or rejected quote into a new editing
// revision and marks the original superseded. History is never rewritten.
func (s *QuoteService) ResubmitQuote(ctx context.Context, providerID, quoteID uuid.UUID) (*QuoteDTO, error) {
	original, err := s.ownedQuote(ctx, providerID, quoteID)
	if err != nil {
		return nil, err
	}

	// The clone must not be persisted unless the original can actually be
	// superseded, otherwise a failed resubmit leaves an orphaned draft.
	if !original.Status().CanTransitionTo(quoteDomain.StatusSuperseded) {
		return nil, domain.NewInvalidStateError(string(original.Status()), string(quoteDomain.StatusSuperseded))
	}

	clone, err := original.NewRevision()
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, clone); err != nil {
		return nil, fmt.Errorf("failed to save quote revision: %w", err)
	}

	if err := original.MarkSuperseded(clone.ID()); err != nil {
		return nil, err
	}
	if _, err := s.persist(ctx, original); err != nil {
		return nil, err
	}

	s.publishQuoteEvent(ctx, EventQuoteSuperseded, original.ID().String(), QuoteSupersededEvent{
		QuoteID:      original.ID(),
		SupersededBy: clone.ID(),
		ProviderID:   original.ProviderID(),
		NewRevision:  clone.Revision(),
		OccurredAt:   time.Now().UTC(),
	})

	result := toQuoteDTO(clone)
	return &result, nil
}

// GetQuote retrieves a single quote by ID.
func (s *QuoteService) GetQuote(ctx context.Context, quoteID uuid.UUID) (*QuoteDTO, error) {
	q, err := s.repo.FindByID(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	result := toQuoteDTO(q)
	return &result, nil
}

// GetProviderQuotes retrieves paginated quotes for a provider.
func (s *QuoteService) GetProviderQuotes(ctx context.Context, providerID uuid.UUID, page, limit int) (*domain.PaginatedResult[QuoteDTO], error) {
	quotes, total, err := s.repo.FindByProviderID(ctx, providerID, page, limit)
	if err != nil {
		return nil, err
	}

	dtos := make([]QuoteDTO, len(quotes))
	for i, q := range quotes {
		dtos[i] = toQuoteDTO(q)
	}

	result := domain.NewPaginatedResult(dtos, total, page, limit)
	return &result, nil
}

// GetProjectQuotes retrieves paginated quote revisions for a project.
func (s *QuoteService) GetProjectQuotes(ctx context.Context, projectID uuid.UUID, page, limit int) (*domain.PaginatedResult[QuoteDTO], error) {
	quotes, total, err := s.repo.FindByProjectID(ctx, projectID, page, limit)
	if err != nil {
		return nil, err
	}

	dtos := make([]QuoteDTO, len(quotes))
	for i, q := range quotes {
		dtos[i] = toQuoteDTO(q)
	}

	result := domain.NewPaginatedResult(dtos, total, page, limit)
	return &result, nil
}

// ApplyDecision records the marketplace core's accept/reject decision for the
// quote holding the given remote ID.
func (s *QuoteService) ApplyDecision(ctx context.Context, remoteQuoteID string, accepted bool) (*QuoteDTO, error) {
	q, err := s.repo.FindByRemoteQuoteID(ctx, remoteQuoteID)
	if err != nil {
		return nil, err
	}

	if accepted {
		err = q.Accept()
	} else {
		err = q.Reject()
	}
	if err != nil {
		return nil, err
	}

	return s.persist(ctx, q)
}

// --- Admin methods ---

// QuoteStatsDTO holds quote statistics for the admin dashboard.
type QuoteStatsDTO struct {
	TotalQuotes int64            `json:"total_quotes"`
	ByStatus    map[string]int64 `json:"by_status"`
}

// ListAllQuotes returns a paginated list of all quotes (admin).
func (s *QuoteService) ListAllQuotes(ctx context.Context, page, limit int) ([]QuoteDTO, int64, error) {
	quotes, total, err := s.repo.ListAll(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list quotes: %w", err)
	}

	dtos := make([]QuoteDTO, len(quotes))
	for i, q := range quotes {
		dtos[i] = toQuoteDTO(q)
	}
	return dtos, total, nil
}

// GetQuoteStats returns aggregate quote statistics (admin).
func (s *QuoteService) GetQuoteStats(ctx context.Context) (*QuoteStatsDTO, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get quote stats: %w", err)
	}

	var total int64
	for _, c := range counts {
		total += c
	}

	return &QuoteStatsDTO{
		TotalQuotes: total,
		ByStatus:    counts,
	}, nil
}

// --- Helpers ---

func (s *QuoteService) ownedQuote(ctx context.Context, providerID, quoteID uuid.UUID) (*quoteDomain.Quote, error) {
	q, err := s.repo.FindByID(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if q.ProviderID() != providerID {
		return nil, domain.NewForbiddenError("quote does not belong to this provider")
	}
	return q, nil
}

func (s *QuoteService) persist(ctx context.Context, q *quoteDomain.Quote) (*QuoteDTO, error) {
	q.IncrementVersion()
	if err := s.repo.Update(ctx, q); err != nil {
		return nil, err
	}
	result := toQuoteDTO(q)
	return &result, nil
}

func (s *QuoteService) resolveTaxProfile(actingAsBusinessID *uuid.UUID, vatExempt *bool) pricing.TaxProfile {
	profile := pricing.TaxProfile{
		VATRatePercent: s.defaults.VATRatePercent,
		DocumentType:   pricing.DocumentBoleta,
	}
	if actingAsBusinessID != nil {
		profile.DocumentType = pricing.DocumentFactura
	}
	if vatExempt != nil {
		profile.VATExempt = *vatExempt
	}
	return profile
}

func (s *QuoteService) publishQuoteEvent(ctx context.Context, eventType, key string, data interface{}) {
	cloudEvent, err := kafka.NewCloudEvent("service-quoting", eventType, data)
	if err != nil {
		s.logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}

	if err := s.publisher.PublishEvent(ctx, TopicQuoteEvents, cloudEvent); err != nil {
		s.logger.Error("failed to publish event",
			zap.String("topic", TopicQuoteEvents),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}

func isDistanceDegradation(err error) bool {
	var appErr *domain.AppError
	return errors.As(err, &appErr) && appErr.Code == domain.CodeDistanceService
}

func buildQuotePayload(q *quoteDomain.Quote) gateway.QuotePayload {
	breakdown := q.Breakdown()
	terms := q.WorkTerms()

	payload := gateway.QuotePayload{
		ProjectID:                  q.ProjectID(),
		ProviderID:                 q.ProviderID(),
		ActingAsBusinessID:         q.ActingAsBusinessID(),
		LaborItems:                 breakdown.LaborItems,
		MaterialsItems:             breakdown.MaterialItems,
		AdditionalFees:             breakdown.CustomCharges,
		TravelFeeClp:               breakdown.TravelFeeClp,
		SubtotalClp:                breakdown.SubtotalClp,
		IVAAmountClp:               q.IVAAmountClp(),
		TotalClp:                   q.TotalClp(),
		EstimatedDurationHours:     terms.EstimatedDurationHours,
		Notes:                      terms.Notes,
		HoursPerSession:            terms.HoursPerSession,
		RequiresMultipleVisits:     terms.RequiresMultipleVisits,
		SessionStructure:           terms.SessionStructure,
		ResponseType:               string(q.ResponseType()),
		RequiresOnsiteConfirmation: q.IsPreliminary(),
		PreliminaryEstimate:        q.IsPreliminary(),
	}
	if vt := q.VisitTerms(); vt != nil {
		cost := vt.SiteVisitCostClp
		deductible := vt.Deductible
		payload.SiteVisitCostClp = &cost
		payload.SiteVisitDeductible = &deductible
	}
	return payload
}

func toQuoteDTO(q *quoteDomain.Quote) QuoteDTO {
	return QuoteDTO{
		ID:                  q.ID(),
		QuoteNumber:         q.QuoteNumber(),
		ProjectID:           q.ProjectID(),
		ProviderID:          q.ProviderID(),
		ActingAsBusinessID:  q.ActingAsBusinessID(),
		Status:              string(q.Status()),
		ProviderLocation:    q.ProviderLocation(),
		JobLocation:         q.JobLocation(),
		TravelPolicy:        q.TravelPolicy(),
		TaxProfile:          q.TaxProfile(),
		Breakdown:           q.Breakdown(),
		DistanceEstimate:    q.DistanceEstimate(),
		IVAAmountClp:        q.IVAAmountClp(),
		TotalClp:            q.TotalClp(),
		ResponseType:        string(q.ResponseType()),
		VisitTerms:          q.VisitTerms(),
		WorkTerms:           q.WorkTerms(),
		PreliminaryEstimate: q.IsPreliminary(),
		RemoteQuoteID:       q.RemoteQuoteID(),
		Revision:            q.Revision(),
		SupersededBy:        q.SupersededBy(),
		SubmittedAt:         q.SubmittedAt(),
		DecidedAt:           q.DecidedAt(),
		Version:             q.Version(),
		CreatedAt:           q.CreatedAt(),
		UpdatedAt:           q.UpdatedAt(),
	}
}
