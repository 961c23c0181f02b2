package entity

import (
	"time"

	"github.com/google/uuid"
)

type MessageSender string

const (
	MessageSenderUser MessageSender = "user"
	MessageSenderAI   MessageSender = "ai"
)

const DefaultChatTitle = "New Chat"

type ChatMessage struct {
	Sender MessageSender `json:"sender"`
	Text   string        `json:"text"`
}

// ChatSession is a titled conversation thread. CreatedAt is unix milliseconds.
type ChatSession struct {
	Id        string        `json:"id"`
	Title     string        `json:"title"`
	Messages  []ChatMessage `json:"messages"`
	CreatedAt int64         `json:"createdAt"`
}

func NewChatSession(initial ChatMessage, now time.Time) *ChatSession {
	return &ChatSession{
		Id:        uuid.NewString(),
		Title:     DefaultChatTitle,
		Messages:  []ChatMessage{initial},
		CreatedAt: now.UnixMilli(),
	}
}

// Clone returns a deep copy so callers never share the message slice.
func (s *ChatSession) Clone() *ChatSession {
	if s == nil {
		return nil
	}
	out := *s
	out.Messages = make([]ChatMessage, len(s.Messages))
	copy(out.Messages, s.Messages)
	return &out
}

// LastMessage returns nil for an empty session.
func (s *ChatSession) LastMessage() *ChatMessage {
	if len(s.Messages) == 0 {
		return nil
	}
	return &s.Messages[len(s.Messages)-1]
}
