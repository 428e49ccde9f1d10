package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/loadhaul/platform/services/payments-service/internal/contracts"
)

// LoggingPublisher emits envelopes to the structured log. It stands in for the
// broker in environments that have none; the outbox keeps records pending if a
// real publisher is swapped in and fails.
type LoggingPublisher struct {
	logger *slog.Logger
}

func NewLoggingPublisher(logger *slog.Logger) *LoggingPublisher {
	return &LoggingPublisher{logger: logger}
}

func (p *LoggingPublisher) PublishDomain(ctx context.Context, envelope contracts.EventEnvelope) error {
	return p.publish(ctx, "domain", envelope)
}

func (p *LoggingPublisher) PublishAnalytics(ctx context.Context, envelope contracts.EventEnvelope) error {
	return p.publish(ctx, "analytics", envelope)
}

func (p *LoggingPublisher) publish(ctx context.Context, class string, envelope contracts.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	p.logger.InfoContext(ctx, "published event",
		"module", "events.publisher",
		"layer", "adapter",
		"operation", "publish",
		"outcome", "success",
		"event_class", class,
		"event_type", envelope.EventType,
		"payload", string(payload),
	)
	return nil
}
