//go:build integration

package main_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oficio-marketplace/service-quoting/internal/application"
	"github.com/oficio-marketplace/service-quoting/internal/domain/geo"
	"github.com/oficio-marketplace/service-quoting/internal/domain/pricing"
	quoteDomain "github.com/oficio-marketplace/service-quoting/internal/domain/quote"
)

func testProviderLocation() geo.Coordinate {
	return geo.Coordinate{Latitude: -33.4489, Longitude: -70.6693}
}

func testJobLocation() geo.Coordinate {
	return geo.Coordinate{Latitude: -33.5123, Longitude: -70.7551}
}

func responseQuoteNow() quoteDomain.ResponseType {
	return quoteDomain.ResponseQuoteNow
}

// TestQuoteAccepted_RecordsDecision verifies that when a quote.accepted event
// is published to marketplace.events, the quoting service picks it up and
// transitions the matching quote to "accepted".
func TestQuoteAccepted_RecordsDecision(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupQuotingStack(t, infra.DB, infra.KafkaBrokers, "http://localhost:1", "http://localhost:1")
	defer stack.CleanupProducer()
	defer func() { _ = stack.Consumer.Close() }()

	// Seed a quote in "submitted" state holding a remote quote ID.
	quoteID := uuid.New()
	remoteQuoteID := "mk-quote-int-1"
	seedQuoteInSubmittedState(t, infra.DB, quoteID, uuid.New(), uuid.New(), remoteQuoteID)

	// Start the consumer.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = stack.Consumer.Start(ctx) }()
	time.Sleep(3 * time.Second) // Wait for consumer group join.

	// Publish the marketplace decision.
	evt := application.QuoteDecisionEvent{
		RemoteQuoteID: remoteQuoteID,
		OccurredAt:    time.Now().UTC(),
	}
	publishTestEvent(t, infra.KafkaBrokers, application.TopicMarketplaceEvents,
		"marketplace-core", application.EventQuoteAccepted, evt)

	// Assert: quote transitions to "accepted" with a decision timestamp.
	model := waitForQuoteStatus(t, infra.DB, quoteID, "accepted", 15*time.Second)
	assert.NotNil(t, model.DecidedAt, "decided_at should be set")
}

// TestSubmitQuote_EndToEnd composes a quote against real PostgreSQL and fake
// routing/marketplace HTTP backends, submits it and asserts the published
// quote.submitted event.
func TestSubmitQuote_EndToEnd(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	// Fake OSRM returning a fixed 18.2 km route.
	routingServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"code": "Ok",
			"routes": []map[string]interface{}{
				{"distance": 18200.0, "duration": 1500.0},
			},
		})
	}))
	defer routingServer.Close()

	// Fake marketplace core acknowledging submissions.
	marketplaceServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NotEmpty(t, r.Header.Get("Idempotency-Key"))
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"quote_id": "mk-quote-e2e"})
	}))
	defer marketplaceServer.Close()

	stack := setupQuotingStack(t, infra.DB, infra.KafkaBrokers, routingServer.URL, marketplaceServer.URL)
	defer stack.CleanupProducer()

	ctx := context.Background()
	providerID := uuid.New()

	draft, err := stack.Service.CreateQuote(ctx, providerID, application.CreateQuoteRequest{
		ProjectID:        uuid.New(),
		ProviderLocation: testProviderLocation(),
	})
	require.NoError(t, err)

	_, err = stack.Service.SetJobLocation(ctx, providerID, draft.ID, testJobLocation())
	require.NoError(t, err)

	resolved, err := stack.Service.ResolveDistance(ctx, providerID, draft.ID)
	require.NoError(t, err)
	require.NotNil(t, resolved.DistanceEstimate)
	assert.Equal(t, 18.2, resolved.DistanceEstimate.Kilometers)
	assert.Equal(t, int64(9100), resolved.Breakdown.TravelFeeClp)

	_, err = stack.Service.UpdateItems(ctx, providerID, draft.ID, application.UpdateItemsRequest{
		LaborItems: []pricing.LaborItem{{Name: "Instalación eléctrica", AmountClp: 50000}},
	})
	require.NoError(t, err)

	rt := responseQuoteNow()
	_, err = stack.Service.UpdateTerms(ctx, providerID, draft.ID, application.UpdateTermsRequest{ResponseType: &rt})
	require.NoError(t, err)

	submitted, err := stack.Service.SubmitQuote(ctx, providerID, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, "submitted", submitted.Status)
	require.NotNil(t, submitted.RemoteQuoteID)
	assert.Equal(t, "mk-quote-e2e", *submitted.RemoteQuoteID)

	// Assert: quote.submitted event on quote.events.
	ce := consumeOneEvent(t, infra.KafkaBrokers, application.TopicQuoteEvents,
		application.EventQuoteSubmitted, 15*time.Second)

	var evt application.QuoteSubmittedEvent
	require.NoError(t, ce.ParseData(&evt))
	assert.Equal(t, draft.ID, evt.QuoteID)
	assert.Equal(t, "mk-quote-e2e", evt.RemoteQuoteID)
	assert.Equal(t, submitted.TotalClp, evt.TotalClp)
}
