package distance

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/oficio-marketplace/service-quoting/internal/common/domain"
	"github.com/oficio-marketplace/service-quoting/internal/domain/geo"
)

func newOSRMTestClient(serverURL string) *OSRMClient {
	return NewOSRMClient(serverURL, 2*time.Second, 2, zap.NewNop())
}

func TestOSRMClient_GetRoute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// OSRM expects longitude,latitude pairs in the path.
		assert.Contains(t, r.URL.Path, "/route/v1/driving/")
		assert.Contains(t, r.URL.Path, "-70.669300,-33.448900")

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"code": "Ok",
			"routes": []map[string]interface{}{
				{"distance": 112400.0, "duration": 5400.0},
			},
		})
	}))
	defer server.Close()

	route, err := newOSRMTestClient(server.URL).GetRoute(context.Background(), santiagoCentro, valparaiso)
	require.NoError(t, err)
	assert.Equal(t, 112.4, route.DistanceKm)
	assert.Equal(t, int64(5400), route.DurationSeconds)
}

func TestOSRMClient_RetriesTransientFailures(t *testing.T) {
	var attempts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"code": "Ok",
			"routes": []map[string]interface{}{
				{"distance": 112400.0, "duration": 5400.0},
			},
		})
	}))
	defer server.Close()

	route, err := newOSRMTestClient(server.URL).GetRoute(context.Background(), santiagoCentro, valparaiso)
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 112.4, route.DistanceKm)
}

func TestOSRMClient_NoRouteIsPermanent(t *testing.T) {
	var attempts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"code":   "NoRoute",
			"routes": []interface{}{},
		})
	}))
	defer server.Close()

	_, err := newOSRMTestClient(server.URL).GetRoute(context.Background(), santiagoCentro, valparaiso)
	require.Error(t, err)

	var appErr *domain.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, domain.CodeProtocol, appErr.Code)
	assert.Equal(t, 1, attempts, "protocol errors must not be retried")
}

func TestOSRMClient_GivesUpAfterMaxRetries(t *testing.T) {
	var attempts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newOSRMTestClient(server.URL).GetRoute(context.Background(), geo.Coordinate{}, valparaiso)
	require.Error(t, err)
	assert.Equal(t, 3, attempts, "initial attempt plus two retries")
}
