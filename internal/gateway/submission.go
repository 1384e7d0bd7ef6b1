package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oficio-marketplace/service-quoting/internal/common/domain"
	"github.com/oficio-marketplace/service-quoting/internal/domain/pricing"
	quoteDomain "github.com/oficio-marketplace/service-quoting/internal/domain/quote"
)

// QuotePayload is the wire format submitted to the marketplace core. The
// backend recomputes and is authoritative for totals; the breakdown here is
// advisory input.
type QuotePayload struct {
	ProjectID                  uuid.UUID                     `json:"project_id"`
	ProviderID                 uuid.UUID                     `json:"provider_id"`
	ActingAsBusinessID         *uuid.UUID                    `json:"acting_as_business_id,omitempty"`
	LaborItems                 []pricing.LaborItem           `json:"labor_items"`
	MaterialsItems             []pricing.MaterialItem        `json:"materials_items"`
	AdditionalFees             []pricing.CustomCharge        `json:"additional_fees"`
	TravelFeeClp               int64                         `json:"travel_fee_clp"`
	SubtotalClp                int64                         `json:"subtotal_clp"`
	IVAAmountClp               int64                         `json:"iva_amount_clp"`
	TotalClp                   int64                         `json:"total_clp"`
	EstimatedDurationHours     float64                       `json:"estimated_duration_hours"`
	Notes                      string                        `json:"notes,omitempty"`
	HoursPerSession            float64                       `json:"hours_per_session"`
	RequiresMultipleVisits     bool                          `json:"requires_multiple_visits"`
	SessionStructure           *quoteDomain.SessionStructure `json:"session_structure,omitempty"`
	ResponseType               string                        `json:"response_type"`
	RequiresOnsiteConfirmation bool                          `json:"requires_onsite_confirmation"`
	SiteVisitCostClp           *int64                        `json:"site_visit_cost_clp,omitempty"`
	SiteVisitDeductible        *bool                         `json:"site_visit_deductible,omitempty"`
	PreliminaryEstimate        bool                          `json:"preliminary_estimate"`
}

// SubmissionResult is the backend's acknowledgement of a submitted quote.
type SubmissionResult struct {
	QuoteID string `json:"quote_id"`
}

// SubmissionGateway dispatches composed quotes to the marketplace core.
type SubmissionGateway interface {
	SubmitQuote(ctx context.Context, idempotencyKey uuid.UUID, payload QuotePayload) (SubmissionResult, error)
}

// MarketplaceGateway is the HTTP implementation of SubmissionGateway.
// Submissions are never retried here; the idempotency key makes an explicit
// user-driven retry safe against duplicate quote creation server-side.
type MarketplaceGateway struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewMarketplaceGateway creates a MarketplaceGateway for the given base URL.
func NewMarketplaceGateway(baseURL string, timeout time.Duration, logger *zap.Logger) *MarketplaceGateway {
	return &MarketplaceGateway{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type submissionErrorBody struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// SubmitQuote posts the payload to the marketplace core.
func (g *MarketplaceGateway) SubmitQuote(ctx context.Context, idempotencyKey uuid.UUID, payload QuotePayload) (SubmissionResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return SubmissionResult{}, domain.NewInternalError("failed to marshal quote payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/internal/v1/quotes", bytes.NewReader(body))
	if err != nil {
		return SubmissionResult{}, domain.NewInternalError("failed to build submission request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", idempotencyKey.String())

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return SubmissionResult{}, domain.NewSubmissionError("marketplace core unreachable").WithCause(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		var result SubmissionResult
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil || result.QuoteID == "" {
			return SubmissionResult{}, domain.NewProtocolError("submission response missing quote_id")
		}
		g.logger.Info("quote submitted to marketplace core",
			zap.String("remote_quote_id", result.QuoteID),
			zap.String("idempotency_key", idempotencyKey.String()),
		)
		return result, nil

	case resp.StatusCode == http.StatusBadRequest:
		var errBody submissionErrorBody
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		if errBody.Field != "" {
			return SubmissionResult{}, domain.NewFieldValidationError(errBody.Field, errBody.Message)
		}
		return SubmissionResult{}, domain.NewValidationError(nonEmpty(errBody.Message, "submission rejected as malformed"))

	case resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusUnprocessableEntity:
		var errBody submissionErrorBody
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return SubmissionResult{}, domain.NewSubmissionError(nonEmpty(errBody.Message, "quote rejected by marketplace core"))

	case resp.StatusCode >= 500:
		return SubmissionResult{}, domain.NewSubmissionError(fmt.Sprintf("marketplace core error: status %d", resp.StatusCode))

	default:
		return SubmissionResult{}, domain.NewProtocolError(fmt.Sprintf("unexpected submission status %d", resp.StatusCode))
	}
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
