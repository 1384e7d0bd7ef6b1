package events

import (
	"context"
	"encoding/json"
	"errors"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/oficio-marketplace/service-quoting/internal/application"
	"github.com/oficio-marketplace/service-quoting/internal/common/domain"
	"github.com/oficio-marketplace/service-quoting/internal/common/kafka"
)

// DecisionApplier records a marketplace decision against the quote the
// remote ID identifies.
type DecisionApplier interface {
	ApplyDecision(ctx context.Context, remoteQuoteID string, accepted bool) (*application.QuoteDTO, error)
}

// DecisionEventConsumer listens to marketplace events and records quote
// accept/reject decisions.
type DecisionEventConsumer struct {
	consumer *kafka.Consumer
	service  DecisionApplier
	logger   *zap.Logger
}

// NewDecisionEventConsumer creates a new DecisionEventConsumer.
func NewDecisionEventConsumer(
	brokers []string,
	groupID string,
	service DecisionApplier,
	logger *zap.Logger,
) *DecisionEventConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, application.TopicMarketplaceEvents, logger)
	return &DecisionEventConsumer{
		consumer: consumer,
		service:  service,
		logger:   logger,
	}
}

// Start begins consuming marketplace events. This blocks until the context is cancelled.
func (c *DecisionEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *DecisionEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *DecisionEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	var cloudEvent kafka.CloudEvent
	if err := json.Unmarshal(msg.Value, &cloudEvent); err != nil {
		c.logger.Error("failed to parse cloud event from marketplace topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	switch cloudEvent.Type {
	case application.EventQuoteAccepted:
		return c.handleDecision(ctx, cloudEvent, true)
	case application.EventQuoteRejected:
		return c.handleDecision(ctx, cloudEvent, false)
	default:
		c.logger.Debug("ignoring unhandled marketplace event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

func (c *DecisionEventConsumer) handleDecision(ctx context.Context, cloudEvent kafka.CloudEvent, accepted bool) error {
	var evt application.QuoteDecisionEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse QuoteDecisionEvent data",
			zap.Error(err),
		)
		return nil // Don't retry malformed data
	}

	c.logger.Info("processing quote decision event",
		zap.String("remote_quote_id", evt.RemoteQuoteID),
		zap.Bool("accepted", accepted),
	)

	_, err := c.service.ApplyDecision(ctx, evt.RemoteQuoteID, accepted)
	if err != nil {
		var appErr *domain.AppError
		if errors.As(err, &appErr) {
			switch appErr.Code {
			case domain.CodeNotFound:
				// Decisions for quotes this service never submitted are not ours.
				c.logger.Debug("decision for unknown quote ignored",
					zap.String("remote_quote_id", evt.RemoteQuoteID),
				)
				return nil
			case domain.CodeInvalidState:
				// The quote already left submitted (withdrawn, superseded, or
				// an earlier decision landed). Redelivery can never succeed.
				c.logger.Warn("decision for quote no longer awaiting one skipped",
					zap.String("remote_quote_id", evt.RemoteQuoteID),
					zap.Bool("accepted", accepted),
					zap.Error(err),
				)
				return nil
			}
		}
		c.logger.Error("failed to apply quote decision",
			zap.String("remote_quote_id", evt.RemoteQuoteID),
			zap.Error(err),
		)
		return err
	}

	c.logger.Info("quote decision recorded",
		zap.String("remote_quote_id", evt.RemoteQuoteID),
		zap.Bool("accepted", accepted),
	)
	return nil
}
