package service

import (
	"context"
	"time"

	"codepilot-be/internal/pkg/logger"
	"codepilot-be/pkg/events"
	pktNats "codepilot-be/pkg/nats"
)

const activityDurable = "activity-audit"

// EventSubscriber is satisfied by the NATS subscriber.
type EventSubscriber interface {
	Subscribe(ctx context.Context, subject, durableName string, handler pktNats.EventHandler) error
}

type IActivityService interface {
	Start(ctx context.Context) error
	Handle(ctx context.Context, event events.Event) error
}

// activityService writes every domain event to the audit log.
type activityService struct {
	subscriber EventSubscriber
	auditLog   logger.ILogger
}

func NewActivityService(subscriber EventSubscriber, auditLog logger.ILogger) IActivityService {
	return &activityService{
		subscriber: subscriber,
		auditLog:   auditLog,
	}
}

func (s *activityService) Start(ctx context.Context) error {
	return s.subscriber.Subscribe(ctx, pktNats.AllSubjects, activityDurable, s.Handle)
}

func (s *activityService) Handle(ctx context.Context, event events.Event) error {
	details := make(map[string]interface{}, len(event.Payload())+1)
	for k, v := range event.Payload() {
		details[k] = v
	}
	details["occurred_at"] = event.Timestamp().Format(time.RFC3339)

	s.auditLog.Info("Activity", event.EventType(), details)
	return nil
}
