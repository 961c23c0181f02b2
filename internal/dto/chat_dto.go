package dto

import "codepilot-be/internal/entity"

type SendMessageRequest struct {
	SessionId string `json:"session_id"`
	Text      string `json:"text"`
}

type SessionListResponse struct {
	Sessions        []*entity.ChatSession `json:"sessions"`
	ActiveSessionId string                `json:"active_session_id,omitempty"`
}

// ChatUpdateEvent is pushed over SSE and websocket while a send progresses.
type ChatUpdateEvent struct {
	Type    string              `json:"type"`
	Session *entity.ChatSession `json:"session"`
}

const (
	ChatEventSession = "session"
	ChatEventDone    = "done"
)
