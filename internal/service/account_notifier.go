package service

import (
	"context"
	"encoding/json"
	"time"

	"codepilot-be/internal/dto"
	"codepilot-be/internal/pkg/logger"
	"codepilot-be/pkg/events"
)

const notifyTimeout = 3 * time.Second

// accountNotifier fans account changes out to the event bus and the mail
// topic. Either side may be nil; failures are logged, never returned.
type accountNotifier struct {
	events events.Publisher
	mail   IPublisherService
	logger logger.ILogger
}

func (n accountNotifier) event(ctx context.Context, eventType string, data map[string]interface{}) {
	if n.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()

	if err := n.events.Publish(ctx, events.New(eventType, data)); err != nil {
		n.logger.Warn("Events", "Failed to publish event", map[string]interface{}{
			"type":  eventType,
			"error": err.Error(),
		})
	}
}

func (n accountNotifier) mailTo(ctx context.Context, kind, email, name string) {
	if n.mail == nil {
		return
	}
	payload, err := json.Marshal(dto.AccountMailMessage{Kind: kind, Email: email, Name: name})
	if err != nil {
		return
	}
	if err := n.mail.Publish(ctx, payload); err != nil {
		n.logger.Warn("Events", "Failed to queue account mail", map[string]interface{}{
			"kind":  kind,
			"error": err.Error(),
		})
	}
}
