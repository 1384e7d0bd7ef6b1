//go:build integration

package main_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/oficio-marketplace/service-quoting/internal/application"
	"github.com/oficio-marketplace/service-quoting/internal/common/kafka"
	"github.com/oficio-marketplace/service-quoting/internal/distance"
	quoteEvents "github.com/oficio-marketplace/service-quoting/internal/events"
	"github.com/oficio-marketplace/service-quoting/internal/domain/pricing"
	"github.com/oficio-marketplace/service-quoting/internal/gateway"
	"github.com/oficio-marketplace/service-quoting/internal/repository"
)

// testInfra holds shared test infrastructure.
type testInfra struct {
	DB           *gorm.DB
	KafkaBrokers []string
	Cleanup      func()
}

// quotingStack holds wired-up quoting service components.
type quotingStack struct {
	Service         *application.QuoteService
	Consumer        *quoteEvents.DecisionEventConsumer
	CleanupProducer func()
}

// setupContainers starts PostgreSQL and Kafka testcontainers and returns a connected GORM DB.
func setupContainers(t *testing.T) *testInfra {
	t.Helper()
	ctx := context.Background()

	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test_quoting",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")

	pgHost, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%s user=test password=test dbname=test_quoting sslmode=disable", pgHost, pgPort.Port())

	// Poll until GORM can actually connect and ping.
	var db *gorm.DB
	require.Eventually(t, func() bool {
		var err error
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			return false
		}
		sqlDB, err := db.DB()
		if err != nil {
			return false
		}
		return sqlDB.Ping() == nil
	}, 30*time.Second, 1*time.Second, "PostgreSQL not ready for connections")

	require.NoError(t, db.AutoMigrate(&repository.QuoteModel{}))

	// Start Kafka container using confluent-local (supports KRaft natively).
	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")

	kafkaBrokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	// Pre-create required topics.
	createTopics(t, kafkaBrokers, application.TopicQuoteEvents, application.TopicMarketplaceEvents)

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Kafka container: %v", err)
		}
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	}

	return &testInfra{
		DB:           db,
		KafkaBrokers: kafkaBrokers,
		Cleanup:      cleanup,
	}
}

// setupQuotingStack wires up the full quoting service stack. The routing
// provider and submission gateway point at the given base URLs, typically
// httptest servers.
func setupQuotingStack(t *testing.T, db *gorm.DB, brokers []string, routingURL, marketplaceURL string) *quotingStack {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	quoteRepo := repository.NewGormQuoteRepository(db)
	osrmClient := distance.NewOSRMClient(routingURL, 5*time.Second, 2, logger)
	resolver := distance.NewResolver(osrmClient, distance.NewCache(10*time.Minute, 0.05), logger)
	marketplaceGateway := gateway.NewMarketplaceGateway(marketplaceURL, 10*time.Second, logger)
	producer := kafka.NewProducer(brokers, logger)

	defaults := application.PricingDefaults{
		TravelPolicy: pricing.TravelFeePolicy{
			FreeRadiusKm: 5.0,
			PerKmRateClp: 500,
			MinFeeClp:    1000,
			MaxFeeClp:    50000,
		},
		VATRatePercent: 19.0,
	}

	quoteSvc := application.NewQuoteService(quoteRepo, resolver, marketplaceGateway, producer, defaults, logger)

	groupID := fmt.Sprintf("test-quoting-%s", uuid.New().String()[:8])
	consumer := quoteEvents.NewDecisionEventConsumer(brokers, groupID, quoteSvc, logger)

	return &quotingStack{
		Service:         quoteSvc,
		Consumer:        consumer,
		CleanupProducer: func() { _ = producer.Close() },
	}
}

// seedQuoteInSubmittedState inserts a quote in "submitted" state holding the
// given remote quote ID.
func seedQuoteInSubmittedState(t *testing.T, db *gorm.DB, quoteID, providerID, projectID uuid.UUID, remoteQuoteID string) {
	t.Helper()
	now := time.Now().UTC()
	submitted := now.Add(-5 * time.Minute)

	providerLoc, _ := json.Marshal(map[string]float64{"latitude": -33.4489, "longitude": -70.6693})
	jobLoc, _ := json.Marshal(map[string]float64{"latitude": -33.5123, "longitude": -70.7551})
	policy, _ := json.Marshal(map[string]interface{}{
		"free_radius_km": 5.0, "per_km_rate_clp": 500, "min_fee_clp": 1000, "max_fee_clp": 50000,
	})
	taxProfile, _ := json.Marshal(map[string]interface{}{
		"vat_exempt": false, "vat_rate_percent": 19.0, "document_type": "boleta",
	})
	breakdown, _ := json.Marshal(map[string]interface{}{
		"labor_items":    []map[string]interface{}{{"name": "Instalación", "amount_clp": 50000}},
		"material_items": []interface{}{},
		"custom_charges": []interface{}{},
		"travel_fee_clp": 3500,
		"subtotal_clp":   53500,
	})
	workTerms, _ := json.Marshal(map[string]interface{}{"estimated_duration_hours": 4.0})

	model := repository.QuoteModel{
		ID:               quoteID,
		QuoteNumber:      fmt.Sprintf("QT-INT%s", uuid.New().String()[:3]),
		ProjectID:        projectID,
		ProviderID:       providerID,
		Status:           "submitted",
		ProviderLocation: providerLoc,
		JobLocation:      jobLoc,
		TravelPolicy:     policy,
		TaxProfile:       taxProfile,
		Breakdown:        breakdown,
		IVAAmountClp:     10165,
		TotalClp:         63665,
		ResponseType:     "quote_now",
		WorkTerms:        workTerms,
		DistanceToken:    1,
		IdempotencyKey:   uuid.New(),
		RemoteQuoteID:    &remoteQuoteID,
		Revision:         1,
		SubmittedAt:      &submitted,
		Version:          5,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	require.NoError(t, db.Create(&model).Error, "failed to seed quote")
}

// publishTestEvent publishes a CloudEvent to Kafka.
func publishTestEvent(t *testing.T, brokers []string, topic, source, eventType string, data interface{}) {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	producer := kafka.NewProducer(brokers, logger)
	defer func() { _ = producer.Close() }()

	ce, err := kafka.NewCloudEvent(source, eventType, data)
	require.NoError(t, err, "failed to create cloud event")

	err = producer.PublishEvent(context.Background(), topic, ce)
	require.NoError(t, err, "failed to publish event")
}

// waitForQuoteStatus polls the quotes table until the status matches.
func waitForQuoteStatus(t *testing.T, db *gorm.DB, quoteID uuid.UUID, expectedStatus string, timeout time.Duration) repository.QuoteModel {
	t.Helper()
	var result repository.QuoteModel
	require.Eventually(t, func() bool {
		var model repository.QuoteModel
		err := db.Where("id = ?", quoteID).First(&model).Error
		if err != nil {
			return false
		}
		if model.Status == expectedStatus {
			result = model
			return true
		}
		return false
	}, timeout, 200*time.Millisecond, "quote did not transition to %s", expectedStatus)
	return result
}

// consumeOneEvent reads from a Kafka topic until it finds an event of the expected type.
func consumeOneEvent(t *testing.T, brokers []string, topic, expectedType string, timeout time.Duration) kafka.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	groupID := fmt.Sprintf("test-assert-%s", uuid.New().String()[:8])
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	defer func() { _ = reader.Close() }()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.Fatalf("timed out waiting for event type %q on topic %q", expectedType, topic)
			}
			continue
		}
		ce, err := kafka.ParseCloudEvent(msg.Value)
		if err != nil {
			continue
		}
		if ce.Type == expectedType {
			return ce
		}
	}
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	err = controllerConn.CreateTopics(topicConfigs...)
	require.NoError(t, err, "failed to create Kafka topics")

	// Give Kafka a moment to propagate topic metadata.
	time.Sleep(1 * time.Second)
}
