package application

import (
	"time"

	"github.com/google/uuid"
)

// Kafka topics the quoting service produces to and consumes from.
const (
	TopicQuoteEvents       = "quote.events"
	TopicMarketplaceEvents = "marketplace.events"
)

// Event types published on quote.events.
const (
	EventQuoteSubmitted  = "quote.submitted.v1"
	EventQuoteWithdrawn  = "quote.withdrawn.v1"
	EventQuoteSuperseded = "quote.superseded.v1"
)

// Event types consumed from marketplace.events.
const (
	EventQuoteAccepted = "marketplace.quote.accepted.v1"
	EventQuoteRejected = "marketplace.quote.rejected.v1"
)

// QuoteSubmittedEvent is published after the marketplace core acknowledges a
// submission.
type QuoteSubmittedEvent struct {
	QuoteID             uuid.UUID `json:"quote_id"`
	QuoteNumber         string    `json:"quote_number"`
	ProjectID           uuid.UUID `json:"project_id"`
	ProviderID          uuid.UUID `json:"provider_id"`
	RemoteQuoteID       string    `json:"remote_quote_id"`
	TotalClp            int64     `json:"total_clp"`
	PreliminaryEstimate bool      `json:"preliminary_estimate"`
	OccurredAt          time.Time `json:"occurred_at"`
}

// QuoteWithdrawnEvent is published when a provider withdraws a quote.
type QuoteWithdrawnEvent struct {
	QuoteID     uuid.UUID `json:"quote_id"`
	QuoteNumber string    `json:"quote_number"`
	ProviderID  uuid.UUID `json:"provider_id"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// QuoteSupersededEvent is published when a resubmission replaces a quote.
type QuoteSupersededEvent struct {
	QuoteID       uuid.UUID `json:"quote_id"`
	SupersededBy  uuid.UUID `json:"superseded_by"`
	ProviderID    uuid.UUID `json:"provider_id"`
	NewRevision   int       `json:"new_revision"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// QuoteDecisionEvent is the marketplace core's accept/reject notification,
// keyed by the remote quote ID it assigned at submission.
type QuoteDecisionEvent struct {
	RemoteQuoteID string    `json:"remote_quote_id"`
	Reason        string    `json:"reason,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}
