package quote

import (
	"context"

	"github.com/google/uuid"
)

// QuoteRepository defines the persistence contract for quote aggregates.
type QuoteRepository interface {
	// FindByID retrieves a quote by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Quote, error)

	// FindByNumber retrieves a quote by its human-readable quote number.
	FindByNumber(ctx context.Context, number string) (*Quote, error)

	// FindByProviderID retrieves quotes belonging to a provider with pagination.
	FindByProviderID(ctx context.Context, providerID uuid.UUID, page, limit int) ([]*Quote, int64, error)

	// FindByProjectID retrieves all quote revisions for a project, newest first.
	FindByProjectID(ctx context.Context, projectID uuid.UUID, page, limit int) ([]*Quote, int64, error)

	// FindByRemoteQuoteID retrieves the quote holding a backend-assigned ID.
	FindByRemoteQuoteID(ctx context.Context, remoteQuoteID string) (*Quote, error)

	// ListAll retrieves all quotes with pagination (admin).
	ListAll(ctx context.Context, page, limit int) ([]*Quote, int64, error)

	// CountByStatus returns quote counts grouped by status (admin).
	CountByStatus(ctx context.Context) (map[string]int64, error)

	// Save persists a new quote.
	Save(ctx context.Context, q *Quote) error

	// Update persists changes to an existing quote with optimistic locking.
	Update(ctx context.Context, q *Quote) error
}
