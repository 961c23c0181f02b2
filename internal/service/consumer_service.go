package service

import (
	"context"
	"encoding/json"

	"codepilot-be/internal/dto"
	"codepilot-be/internal/pkg/logger"
	"codepilot-be/internal/pkg/mailer"

	"github.com/ThreeDotsLabs/watermill/message"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService delivers account mail published on the in-process bus.
type consumerService struct {
	subscriber   message.Subscriber
	topicName    string
	emailService mailer.IEmailService
	logger       logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	emailService mailer.IEmailService,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber:   subscriber,
		topicName:    topicName,
		emailService: emailService,
		logger:       log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(msg)
		}
	}()

	return nil
}

// processMessage acks everything: a mail that fails once is not retried.
func (cs *consumerService) processMessage(msg *message.Message) {
	defer msg.Ack()

	var payload dto.AccountMailMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("Consumer", "Failed to unmarshal account mail", map[string]interface{}{"error": err.Error()})
		return
	}

	var err error
	switch payload.Kind {
	case dto.AccountMailWelcome:
		err = cs.emailService.SendWelcome(payload.Email, payload.Name)
	case dto.AccountMailPasswordChanged:
		err = cs.emailService.SendPasswordChanged(payload.Email, payload.Name)
	default:
		cs.logger.Warn("Consumer", "Unknown account mail kind", map[string]interface{}{"kind": payload.Kind})
		return
	}
	if err != nil {
		cs.logger.Error("Consumer", "Account mail failed", map[string]interface{}{
			"kind":  payload.Kind,
			"email": payload.Email,
			"error": err.Error(),
		})
	}
}
