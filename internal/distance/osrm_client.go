package distance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/oficio-marketplace/service-quoting/internal/common/domain"
	"github.com/oficio-marketplace/service-quoting/internal/domain/geo"
)

// OSRMClient is a RoutedDistanceProvider backed by an OSRM-compatible routing
// API. Transient failures are retried a bounded number of times with
// exponential backoff; client errors are not retried.
type OSRMClient struct {
	baseURL    string
	httpClient *http.Client
	maxRetries uint64
	logger     *zap.Logger
}

// NewOSRMClient creates an OSRMClient for the given base URL.
func NewOSRMClient(baseURL string, timeout time.Duration, maxRetries uint64, logger *zap.Logger) *OSRMClient {
	return &OSRMClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
		logger:     logger,
	}
}

type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
	} `json:"routes"`
}

// GetRoute fetches the driving route between the two coordinates.
func (c *OSRMClient) GetRoute(ctx context.Context, origin, destination geo.Coordinate) (Route, error) {
	url := fmt.Sprintf("%s/route/v1/driving/%f,%f;%f,%f?overview=false",
		c.baseURL,
		origin.Longitude, origin.Latitude,
		destination.Longitude, destination.Latitude,
	)

	var route Route
	operation := func() error {
		result, err := c.fetch(ctx, url)
		if err != nil {
			return err
		}
		route = result
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return Route{}, err
	}
	return route, nil
}

func (c *OSRMClient) fetch(ctx context.Context, url string) (Route, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Route{}, backoff.Permanent(err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Route{}, fmt.Errorf("routing request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return Route{}, fmt.Errorf("routing service unavailable: status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return Route{}, backoff.Permanent(
			domain.NewProtocolError(fmt.Sprintf("unexpected routing status %d", resp.StatusCode)))
	}

	var body osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Route{}, backoff.Permanent(
			domain.NewProtocolError("malformed routing response").WithCause(err))
	}
	if body.Code != "Ok" || len(body.Routes) == 0 {
		return Route{}, backoff.Permanent(
			domain.NewProtocolError(fmt.Sprintf("routing response code %q with %d routes", body.Code, len(body.Routes))))
	}

	c.logger.Debug("routed distance fetched",
		zap.Float64("distance_m", body.Routes[0].Distance),
	)

	return Route{
		DistanceKm:      body.Routes[0].Distance / 1000.0,
		DurationSeconds: int64(body.Routes[0].Duration),
	}, nil
}
