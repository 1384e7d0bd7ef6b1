package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oficio-marketplace/service-quoting/internal/common/domain"
	"github.com/oficio-marketplace/service-quoting/internal/domain/geo"
	"github.com/oficio-marketplace/service-quoting/internal/domain/pricing"
	quoteDomain "github.com/oficio-marketplace/service-quoting/internal/domain/quote"
)

// QuoteModel is the GORM model for the quotes table.
type QuoteModel struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey"`
	QuoteNumber        string          `gorm:"uniqueIndex;not null;size:20"`
	ProjectID          uuid.UUID       `gorm:"type:uuid;index;not null"`
	ProviderID         uuid.UUID       `gorm:"type:uuid;index;not null"`
	ActingAsBusinessID *uuid.UUID      `gorm:"type:uuid"`
	Status             string          `gorm:"not null;size:30;index"`
	ProviderLocation   json.RawMessage `gorm:"type:jsonb;not null"`
	JobLocation        json.RawMessage `gorm:"type:jsonb"`
	TravelPolicy       json.RawMessage `gorm:"type:jsonb;not null"`
	TaxProfile         json.RawMessage `gorm:"type:jsonb;not null"`
	Breakdown          json.RawMessage `gorm:"type:jsonb;not null"`
	DistanceEstimate   json.RawMessage `gorm:"type:jsonb"`
	IVAAmountClp       int64           `gorm:"not null;default:0"`
	TotalClp           int64           `gorm:"not null;default:0"`
	ResponseType       string          `gorm:"size:30"`
	VisitTerms         json.RawMessage `gorm:"type:jsonb"`
	WorkTerms          json.RawMessage `gorm:"type:jsonb;not null"`
	DistanceToken      int64           `gorm:"not null;default:0"`
	IdempotencyKey     uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null"`
	RemoteQuoteID      *string         `gorm:"index;size:64"`
	Revision           int             `gorm:"not null;default:1"`
	SupersededBy       *uuid.UUID      `gorm:"type:uuid"`
	SubmittedAt        *time.Time      `gorm:""`
	DecidedAt          *time.Time      `gorm:""`
	Version            int64           `gorm:"not null;default:1"`
	CreatedAt          time.Time       `gorm:"not null"`
	UpdatedAt          time.Time       `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (QuoteModel) TableName() string {
	return "quotes"
}

// GormQuoteRepository is the GORM-based implementation of QuoteRepository.
type GormQuoteRepository struct {
	db *gorm.DB
}

// NewGormQuoteRepository creates a new GormQuoteRepository.
func NewGormQuoteRepository(db *gorm.DB) *GormQuoteRepository {
	return &GormQuoteRepository{db: db}
}

// FindByID retrieves a quote by its unique identifier.
func (r *GormQuoteRepository) FindByID(ctx context.Context, id uuid.UUID) (*quoteDomain.Quote, error) {
	var model QuoteModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Quote", id.String())
		}
		return nil, fmt.Errorf("failed to find quote by ID: %w", err)
	}
	return toDomainQuote(&model)
}

// FindByNumber retrieves a quote by its quote number.
func (r *GormQuoteRepository) FindByNumber(ctx context.Context, number string) (*quoteDomain.Quote, error) {
	var model QuoteModel
	if err := r.db.WithContext(ctx).Where("quote_number = ?", number).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Quote", number)
		}
		return nil, fmt.Errorf("failed to find quote by number: %w", err)
	}
	return toDomainQuote(&model)
}

// FindByProviderID retrieves quotes for a specific provider with pagination.
func (r *GormQuoteRepository) FindByProviderID(ctx context.Context, providerID uuid.UUID, page, limit int) ([]*quoteDomain.Quote, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&QuoteModel{}).Where("provider_id = ?", providerID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count provider quotes: %w", err)
	}

	var models []QuoteModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Where("provider_id = ?", providerID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to find provider quotes: %w", err)
	}

	quotes := make([]*quoteDomain.Quote, len(models))
	for i, m := range models {
		q, err := toDomainQuote(&m)
		if err != nil {
			return nil, 0, err
		}
		quotes[i] = q
	}

	return quotes, total, nil
}

// FindByProjectID retrieves quote revisions for a project with pagination.
func (r *GormQuoteRepository) FindByProjectID(ctx context.Context, projectID uuid.UUID, page, limit int) ([]*quoteDomain.Quote, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&QuoteModel{}).Where("project_id = ?", projectID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count project quotes: %w", err)
	}

	var models []QuoteModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("revision DESC, created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to find project quotes: %w", err)
	}

	quotes := make([]*quoteDomain.Quote, len(models))
	for i, m := range models {
		q, err := toDomainQuote(&m)
		if err != nil {
			return nil, 0, err
		}
		quotes[i] = q
	}

	return quotes, total, nil
}

// FindByRemoteQuoteID retrieves the quote holding a backend-assigned ID.
func (r *GormQuoteRepository) FindByRemoteQuoteID(ctx context.Context, remoteQuoteID string) (*quoteDomain.Quote, error) {
	var model QuoteModel
	if err := r.db.WithContext(ctx).Where("remote_quote_id = ?", remoteQuoteID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Quote", remoteQuoteID)
		}
		return nil, fmt.Errorf("failed to find quote by remote ID: %w", err)
	}
	return toDomainQuote(&model)
}

// Save persists a new quote.
func (r *GormQuoteRepository) Save(ctx context.Context, q *quoteDomain.Quote) error {
	model, err := toQuoteModel(q)
	if err != nil {
		return fmt.Errorf("failed to convert quote to model: %w", err)
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to save quote: %w", err)
	}
	return nil
}

// Update persists changes to an existing quote with optimistic locking.
func (r *GormQuoteRepository) Update(ctx context.Context, q *quoteDomain.Quote) error {
	model, err := toQuoteModel(q)
	if err != nil {
		return fmt.Errorf("failed to convert quote to model: %w", err)
	}

	// Only update if the version matches (current version - 1 since
	// IncrementVersion was called before persisting).
	expectedVersion := q.Version() - 1
	result := r.db.WithContext(ctx).
		Model(&QuoteModel{}).
		Where("id = ? AND version = ?", model.ID, expectedVersion).
		Updates(map[string]interface{}{
			"status":            model.Status,
			"job_location":      model.JobLocation,
			"travel_policy":     model.TravelPolicy,
			"tax_profile":       model.TaxProfile,
			"breakdown":         model.Breakdown,
			"distance_estimate": model.DistanceEstimate,
			"iva_amount_clp":    model.IVAAmountClp,
			"total_clp":         model.TotalClp,
			"response_type":     model.ResponseType,
			"visit_terms":       model.VisitTerms,
			"work_terms":        model.WorkTerms,
			"distance_token":    model.DistanceToken,
			"remote_quote_id":   model.RemoteQuoteID,
			"superseded_by":     model.SupersededBy,
			"submitted_at":      model.SubmittedAt,
			"decided_at":        model.DecidedAt,
			"version":           model.Version,
			"updated_at":        model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update quote: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return domain.NewConflictError("quote was modified by another transaction")
	}

	return nil
}

// ListAll retrieves all quotes with pagination (admin).
func (r *GormQuoteRepository) ListAll(ctx context.Context, page, limit int) ([]*quoteDomain.Quote, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&QuoteModel{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count quotes: %w", err)
	}

	var models []QuoteModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list quotes: %w", err)
	}

	quotes := make([]*quoteDomain.Quote, len(models))
	for i, m := range models {
		q, err := toDomainQuote(&m)
		if err != nil {
			return nil, 0, err
		}
		quotes[i] = q
	}

	return quotes, total, nil
}

// CountByStatus returns quote counts grouped by status (admin).
func (r *GormQuoteRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := r.db.WithContext(ctx).Model(&QuoteModel{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}

	counts := make(map[string]int64)
	for _, sc := range results {
		counts[sc.Status] = sc.Count
	}
	return counts, nil
}

// --- Conversion Helpers ---

func toQuoteModel(q *quoteDomain.Quote) (*QuoteModel, error) {
	providerLocJSON, err := json.Marshal(q.ProviderLocation())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal provider location: %w", err)
	}

	var jobLocJSON json.RawMessage
	if q.JobLocation() != nil {
		data, err := json.Marshal(q.JobLocation())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal job location: %w", err)
		}
		jobLocJSON = data
	}

	policyJSON, err := json.Marshal(q.TravelPolicy())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal travel policy: %w", err)
	}

	taxJSON, err := json.Marshal(q.TaxProfile())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tax profile: %w", err)
	}

	breakdownJSON, err := json.Marshal(q.Breakdown())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal breakdown: %w", err)
	}

	var estimateJSON json.RawMessage
	if q.DistanceEstimate() != nil {
		data, err := json.Marshal(q.DistanceEstimate())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal distance estimate: %w", err)
		}
		estimateJSON = data
	}

	var visitTermsJSON json.RawMessage
	if q.VisitTerms() != nil {
		data, err := json.Marshal(q.VisitTerms())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal visit terms: %w", err)
		}
		visitTermsJSON = data
	}

	workTermsJSON, err := json.Marshal(q.WorkTerms())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal work terms: %w", err)
	}

	return &QuoteModel{
		ID:                 q.ID(),
		QuoteNumber:        q.QuoteNumber(),
		ProjectID:          q.ProjectID(),
		ProviderID:         q.ProviderID(),
		ActingAsBusinessID: q.ActingAsBusinessID(),
		Status:             string(q.Status()),
		ProviderLocation:   providerLocJSON,
		JobLocation:        jobLocJSON,
		TravelPolicy:       policyJSON,
		TaxProfile:         taxJSON,
		Breakdown:          breakdownJSON,
		DistanceEstimate:   estimateJSON,
		IVAAmountClp:       q.IVAAmountClp(),
		TotalClp:           q.TotalClp(),
		ResponseType:       string(q.ResponseType()),
		VisitTerms:         visitTermsJSON,
		WorkTerms:          workTermsJSON,
		DistanceToken:      q.DistanceToken(),
		IdempotencyKey:     q.IdempotencyKey(),
		RemoteQuoteID:      q.RemoteQuoteID(),
		Revision:           q.Revision(),
		SupersededBy:       q.SupersededBy(),
		SubmittedAt:        q.SubmittedAt(),
		DecidedAt:          q.DecidedAt(),
		Version:            q.Version(),
		CreatedAt:          q.CreatedAt(),
		UpdatedAt:          q.UpdatedAt(),
	}, nil
}

func toDomainQuote(m *QuoteModel) (*quoteDomain.Quote, error) {
	var providerLoc geo.Coordinate
	if err := json.Unmarshal(m.ProviderLocation, &providerLoc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal provider location: %w", err)
	}

	var jobLoc *geo.Coordinate
	if len(m.JobLocation) > 0 {
		var loc geo.Coordinate
		if err := json.Unmarshal(m.JobLocation, &loc); err != nil {
			return nil, fmt.Errorf("failed to unmarshal job location: %w", err)
		}
		jobLoc = &loc
	}

	var policy pricing.TravelFeePolicy
	if err := json.Unmarshal(m.TravelPolicy, &policy); err != nil {
		return nil, fmt.Errorf("failed to unmarshal travel policy: %w", err)
	}

	var taxProfile pricing.TaxProfile
	if err := json.Unmarshal(m.TaxProfile, &taxProfile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tax profile: %w", err)
	}

	var breakdown pricing.QuoteBreakdown
	if err := json.Unmarshal(m.Breakdown, &breakdown); err != nil {
		return nil, fmt.Errorf("failed to unmarshal breakdown: %w", err)
	}

	var estimate *geo.DistanceEstimate
	if len(m.DistanceEstimate) > 0 {
		var est geo.DistanceEstimate
		if err := json.Unmarshal(m.DistanceEstimate, &est); err != nil {
			return nil, fmt.Errorf("failed to unmarshal distance estimate: %w", err)
		}
		estimate = &est
	}

	var visitTerms *quoteDomain.VisitTerms
	if len(m.VisitTerms) > 0 {
		var vt quoteDomain.VisitTerms
		if err := json.Unmarshal(m.VisitTerms, &vt); err != nil {
			return nil, fmt.Errorf("failed to unmarshal visit terms: %w", err)
		}
		visitTerms = &vt
	}

	var workTerms quoteDomain.WorkTerms
	if err := json.Unmarshal(m.WorkTerms, &workTerms); err != nil {
		return nil, fmt.Errorf("failed to unmarshal work terms: %w", err)
	}

	status, err := quoteDomain.ParseQuoteStatus(m.Status)
	if err != nil {
		return nil, err
	}

	return quoteDomain.ReconstructQuote(quoteDomain.ReconstructionData{
		ID:                 m.ID,
		QuoteNumber:        m.QuoteNumber,
		ProjectID:          m.ProjectID,
		ProviderID:         m.ProviderID,
		ActingAsBusinessID: m.ActingAsBusinessID,
		Status:             status,
		ProviderLocation:   providerLoc,
		JobLocation:        jobLoc,
		TravelPolicy:       policy,
		TaxProfile:         taxProfile,
		Breakdown:          breakdown,
		DistanceEstimate:   estimate,
		IVAAmountClp:       m.IVAAmountClp,
		TotalClp:           m.TotalClp,
		ResponseType:       quoteDomain.ResponseType(m.ResponseType),
		VisitTerms:         visitTerms,
		WorkTerms:          workTerms,
		DistanceToken:      m.DistanceToken,
		IdempotencyKey:     m.IdempotencyKey,
		RemoteQuoteID:      m.RemoteQuoteID,
		Revision:           m.Revision,
		SupersededBy:       m.SupersededBy,
		SubmittedAt:        m.SubmittedAt,
		DecidedAt:          m.DecidedAt,
		Version:            m.Version,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}), nil
}
