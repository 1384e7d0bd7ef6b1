package quote

import (
	"math"

	"github.com/oficio-marketplace/service-quoting/internal/common/domain"
)

// ResponseType tells how the provider is answering the project: with a firm
// price now, or with a provisional price pending an on-site visit.
type ResponseType string

const (
	ResponseQuoteNow      ResponseType = "quote_now"
	ResponseVisitRequired ResponseType = "visit_required"
)

// IsValid returns true if the response type is recognized.
func (r ResponseType) IsValid() bool {
	switch r {
	case ResponseQuoteNow, ResponseVisitRequired:
		return true
	}
	return false
}

// SessionStructure describes how a multi-visit job is split into sessions.
type SessionStructure struct {
	Sessions        int     `json:"sessions"`
	HoursPerSession float64 `json:"hours_per_session"`
}

// VisitTerms carries the site-visit pricing for a visit-required quote.
// Deductible tells whether the visit cost is deducted from the final quote.
type VisitTerms struct {
	SiteVisitCostClp int64 `json:"site_visit_cost_clp"`
	Deductible       bool  `json:"deductible"`
}

// WorkTerms carries the duration and session metadata for the quoted job.
type WorkTerms struct {
	EstimatedDurationHours float64           `json:"estimated_duration_hours"`
	HoursPerSession        float64           `json:"hours_per_session"`
	RequiresMultipleVisits bool              `json:"requires_multiple_visits"`
	SessionStructure       *SessionStructure `json:"session_structure,omitempty"`
	Notes                  string            `json:"notes,omitempty"`
}

// Validate checks the work terms.
func (t WorkTerms) Validate() error {
	if math.IsNaN(t.EstimatedDurationHours) || math.IsInf(t.EstimatedDurationHours, 0) || t.EstimatedDurationHours < 0 {
		return domain.NewFieldValidationError("estimated_duration_hours", "must be a non-negative number")
	}
	if math.IsNaN(t.HoursPerSession) || math.IsInf(t.HoursPerSession, 0) || t.HoursPerSession < 0 {
		return domain.NewFieldValidationError("hours_per_session", "must be a non-negative number")
	}
	if t.SessionStructure != nil {
		if t.SessionStructure.Sessions <= 0 {
			return domain.NewFieldValidationError("session_structure.sessions", "must be positive")
		}
		if t.SessionStructure.HoursPerSession <= 0 {
			return domain.NewFieldValidationError("session_structure.hours_per_session", "must be positive")
		}
	}
	return nil
}

// Validate checks the visit terms.
func (t VisitTerms) Validate() error {
	if t.SiteVisitCostClp < 0 {
		return domain.NewFieldValidationError("site_visit_cost_clp", "must be non-negative")
	}
	return nil
}
