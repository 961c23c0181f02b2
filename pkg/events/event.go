package events

import (
	"context"
	"time"
)

const (
	UserSignup         = "USER_SIGNUP"
	UserLogin          = "USER_LOGIN"
	PasswordChanged    = "PASSWORD_CHANGED"
	ChatSessionCreated = "CHAT_SESSION_CREATED"
	ChatTitleGenerated = "CHAT_TITLE_GENERATED"
	ChatSessionDeleted = "CHAT_SESSION_DELETED"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "USER_LOGIN").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Publisher is satisfied by the NATS publisher; services depend on this
// so they can run with the bus disabled.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func New(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{Type: eventType, Data: data, OccurredAt: time.Now()}
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}
