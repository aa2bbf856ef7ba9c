package aws

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

// EventPublisher sends domain events to one SNS topic. Publishing is best
// effort: failures are logged and never returned to the request path.
// A nil *EventPublisher discards events.
type EventPublisher struct {
	sns      SNSPublisher
	topicArn string
	log      *zap.Logger
}

// NewEventPublisher binds a publisher to a topic.
func NewEventPublisher(p SNSPublisher, topicArn string, log *zap.Logger) *EventPublisher {
	return &EventPublisher{sns: p, topicArn: topicArn, log: log}
}

// Emit marshals event and publishes it with an event_type attribute.
func (e *EventPublisher) Emit(ctx context.Context, eventType string, event interface{}) {
	if e == nil || e.sns == nil || e.topicArn == "" {
		return
	}
	body, err := json.Marshal(event)
	if err != nil {
		e.log.Warn("Failed to marshal event", zap.String("event_type", eventType), zap.Error(err))
		return
	}
	if err := e.sns.Publish(ctx, e.topicArn, body, map[string]string{"event_type": eventType}); err != nil {
		e.log.Warn("Failed to publish event", zap.String("event_type", eventType), zap.Error(err))
		return
	}
	e.log.Debug("Event published", zap.String("event_type", eventType), zap.Int("bytes", len(body)))
}
