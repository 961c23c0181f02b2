package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"codepilot-be/internal/constant"
	"codepilot-be/internal/dto"
	"codepilot-be/internal/entity"
	"codepilot-be/internal/pkg/logger"
	"codepilot-be/pkg/apperror"
	"codepilot-be/pkg/chatstore"
	"codepilot-be/pkg/events"
	"codepilot-be/pkg/llm"
)

const maxTitleWords = 5

var (
	ErrEmptyMessage = apperror.Validation("message text is empty")
	ErrSendInFlight = &apperror.Error{Kind: apperror.KindConflict, Message: "a message is already being sent"}
)

const msgSaveFailed = "Failed to save chat session"

// ChatSink receives a snapshot of the session after every visible change
// during a send.
type ChatSink interface {
	OnUpdate(session *entity.ChatSession)
}

type ChatSinkFunc func(session *entity.ChatSession)

func (f ChatSinkFunc) OnUpdate(session *entity.ChatSession) {
	f(session)
}

// UserBroadcaster pushes a payload to every connected device of a user.
type UserBroadcaster interface {
	SendToUser(userID string, payload interface{})
}

type IChatService interface {
	SendMessage(ctx context.Context, userID, sessionID, text string, sink ChatSink) (*entity.ChatSession, error)
	ListSessions(ctx context.Context, userID string) (*dto.SessionListResponse, error)
	GetSession(ctx context.Context, userID, sessionID string) (*entity.ChatSession, error)
	DeleteSession(ctx context.Context, userID, sessionID string) error
	NewChat(ctx context.Context, userID string) error
	SelectSession(ctx context.Context, userID, sessionID string) (*entity.ChatSession, error)
	ActiveSession(ctx context.Context, userID string) (*entity.ChatSession, error)
}

type chatService struct {
	sessions    *chatstore.Registry
	provider    llm.LLMProvider
	status      llm.Status
	broadcaster UserBroadcaster
	events      events.Publisher
	logger      logger.ILogger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewChatService(
	sessions *chatstore.Registry,
	provider llm.LLMProvider,
	status llm.Status,
	broadcaster UserBroadcaster,
	eventPublisher events.Publisher,
	log logger.ILogger,
) IChatService {
	return &chatService{
		sessions:    sessions,
		provider:    provider,
		status:      status,
		broadcaster: broadcaster,
		events:      eventPublisher,
		logger:      log,
		inFlight:    make(map[string]struct{}),
	}
}

func (s *chatService) acquire(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[userID]; busy {
		return false
	}
	s.inFlight[userID] = struct{}{}
	return true
}

func (s *chatService) release(userID string) {
	s.mu.Lock()
	delete(s.inFlight, userID)
	s.mu.Unlock()
}

// SendMessage appends text to sessionID (or a new session when empty),
// streams the assistant reply into a placeholder message and, for a new
// session, names it. Provider failures end up as the reply text; only
// precondition failures are returned as errors.
func (s *chatService) SendMessage(ctx context.Context, userID, sessionID, text string, sink ChatSink) (*entity.ChatSession, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if !s.acquire(userID) {
		return nil, ErrSendInFlight
	}
	defer s.release(userID)

	if !s.status.IsConfigured {
		return nil, apperror.Configuration("%s", s.status.Error)
	}

	st, release, err := s.sessions.Acquire(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer release()

	// The reply outlives the request: a client that disconnects mid-stream
	// still finds the finished session on its next load.
	streamCtx := context.WithoutCancel(ctx)

	userMessage := entity.ChatMessage{Sender: entity.MessageSenderUser, Text: text}
	placeholder := entity.ChatMessage{Sender: entity.MessageSenderAI, Text: ""}

	var (
		snapshot *entity.ChatSession
		history  []llm.Message
		isNew    = sessionID == ""
	)

	if isNew {
		created, err := st.Create(streamCtx, userMessage)
		if err != nil {
			return nil, storeError(err)
		}
		sessionID = created.Id
		s.publish(streamCtx, events.ChatSessionCreated, map[string]interface{}{
			"user_id":    userID,
			"session_id": sessionID,
		})
		snapshot, err = st.Update(streamCtx, sessionID, func(sess *entity.ChatSession) {
			sess.Messages = append(sess.Messages, placeholder)
		})
		if err != nil {
			return nil, storeError(err)
		}
	} else {
		snapshot, err = st.Update(streamCtx, sessionID, func(sess *entity.ChatSession) {
			history = toHistory(sess.Messages)
			sess.Messages = append(sess.Messages, userMessage, placeholder)
		})
		if err != nil {
			return nil, storeError(err)
		}
		if err := st.SetActive(sessionID); err != nil {
			return nil, err
		}
	}
	s.notify(userID, sink, snapshot)

	reply, streamErr := s.streamReply(streamCtx, st, userID, sessionID, history, text, sink)
	if errors.Is(streamErr, chatstore.ErrSessionNotFound) {
		// Deleted while streaming; nothing left to update.
		return nil, streamErr
	}
	if streamErr != nil {
		s.logger.Warn("Chat", "Streaming reply failed", map[string]interface{}{
			"user_id":    userID,
			"session_id": sessionID,
			"error":      streamErr.Error(),
		})
		return s.replaceLast(streamCtx, st, userID, sessionID, errorText(streamErr), sink)
	}

	if isNew && reply != "" {
		title := s.generateTitle(streamCtx, text)
		snapshot, err = st.Update(streamCtx, sessionID, func(sess *entity.ChatSession) {
			sess.Title = title
		})
		if err != nil {
			return nil, storeError(err)
		}
		s.publish(streamCtx, events.ChatTitleGenerated, map[string]interface{}{
			"user_id":    userID,
			"session_id": sessionID,
			"title":      title,
		})
		s.notify(userID, sink, snapshot)
	}

	final, _ := st.Get(sessionID)
	return final, nil
}

// streamReply writes the accumulated reply into the last message once per chunk.
func (s *chatService) streamReply(
	ctx context.Context,
	st *chatstore.Store,
	userID, sessionID string,
	history []llm.Message,
	text string,
	sink ChatSink,
) (string, error) {
	stream, err := s.provider.StreamChat(ctx, constant.SystemPromptChat, history, text)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var acc strings.Builder
	for {
		chunk, err := stream.Next()
		if err == io.EOF {
			return acc.String(), nil
		}
		if err != nil {
			return acc.String(), err
		}

		acc.WriteString(chunk)
		reply := acc.String()
		snapshot, err := st.Update(ctx, sessionID, func(sess *entity.ChatSession) {
			setLastAIMessage(sess, reply)
		})
		if err != nil {
			return reply, storeError(err)
		}
		s.notify(userID, sink, snapshot)
	}
}

func (s *chatService) replaceLast(ctx context.Context, st *chatstore.Store, userID, sessionID, text string, sink ChatSink) (*entity.ChatSession, error) {
	snapshot, err := st.Update(ctx, sessionID, func(sess *entity.ChatSession) {
		setLastAIMessage(sess, text)
	})
	if err != nil {
		return nil, storeError(err)
	}
	s.notify(userID, sink, snapshot)
	return snapshot, nil
}

func (s *chatService) generateTitle(ctx context.Context, firstMessage string) string {
	raw, err := s.provider.Generate(ctx,
		constant.SystemPromptTitleGeneration,
		fmt.Sprintf(constant.TitleRequestFormat, firstMessage),
		llm.WithoutThinking(),
	)
	if err != nil {
		s.logger.Warn("Chat", "Title generation failed", map[string]interface{}{"error": err.Error()})
		return entity.DefaultChatTitle
	}
	return CleanTitle(raw)
}

// CleanTitle strips quotes and whitespace and keeps at most five words.
func CleanTitle(raw string) string {
	words := strings.Fields(strings.ReplaceAll(raw, `"`, ""))
	if len(words) == 0 {
		return entity.DefaultChatTitle
	}
	if len(words) > maxTitleWords {
		words = words[:maxTitleWords]
	}
	return strings.Join(words, " ")
}

func setLastAIMessage(sess *entity.ChatSession, text string) {
	last := sess.LastMessage()
	if last != nil && last.Sender == entity.MessageSenderAI {
		last.Text = text
		return
	}
	sess.Messages = append(sess.Messages, entity.ChatMessage{Sender: entity.MessageSenderAI, Text: text})
}

// storeError passes not-found through and turns a failed write into an
// internal error: the in-memory session is ahead of durable storage.
func storeError(err error) error {
	if errors.Is(err, chatstore.ErrSessionNotFound) {
		return err
	}
	return apperror.Internal(err, msgSaveFailed)
}

func toHistory(messages []entity.ChatMessage) []llm.Message {
	history := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		role := llm.RoleModel
		if m.Sender == entity.MessageSenderUser {
			role = llm.RoleUser
		}
		history = append(history, llm.Message{Role: role, Content: m.Text})
	}
	return history
}

func errorText(err error) string {
	if err == nil || strings.TrimSpace(err.Error()) == "" {
		return constant.ChatErrorFallback
	}
	return err.Error()
}

func (s *chatService) notify(userID string, sink ChatSink, snapshot *entity.ChatSession) {
	if sink != nil {
		sink.OnUpdate(snapshot)
	}
	if s.broadcaster != nil {
		s.broadcaster.SendToUser(userID, dto.ChatUpdateEvent{Type: dto.ChatEventSession, Session: snapshot})
	}
}

func (s *chatService) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	accountNotifier{events: s.events, logger: s.logger}.event(ctx, eventType, data)
}

func (s *chatService) ListSessions(ctx context.Context, userID string) (*dto.SessionListResponse, error) {
	st, err := s.sessions.For(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &dto.SessionListResponse{
		Sessions:        st.List(),
		ActiveSessionId: st.ActiveID(),
	}, nil
}

func (s *chatService) GetSession(ctx context.Context, userID, sessionID string) (*entity.ChatSession, error) {
	st, err := s.sessions.For(ctx, userID)
	if err != nil {
		return nil, err
	}
	sess, ok := st.Get(sessionID)
	if !ok {
		return nil, chatstore.ErrSessionNotFound
	}
	return sess, nil
}

func (s *chatService) DeleteSession(ctx context.Context, userID, sessionID string) error {
	st, err := s.sessions.For(ctx, userID)
	if err != nil {
		return err
	}
	if err := st.Delete(ctx, sessionID); err != nil {
		return err
	}
	s.publish(ctx, events.ChatSessionDeleted, map[string]interface{}{
		"user_id":    userID,
		"session_id": sessionID,
	})
	return nil
}

// NewChat clears the active pointer; the session itself is created by the first send.
func (s *chatService) NewChat(ctx context.Context, userID string) error {
	st, err := s.sessions.For(ctx, userID)
	if err != nil {
		return err
	}
	return st.SetActive("")
}

func (s *chatService) SelectSession(ctx context.Context, userID, sessionID string) (*entity.ChatSession, error) {
	st, err := s.sessions.For(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := st.SetActive(sessionID); err != nil {
		return nil, err
	}
	sess, _ := st.Get(sessionID)
	return sess, nil
}

// ActiveSession returns nil without error when no session is active.
func (s *chatService) ActiveSession(ctx context.Context, userID string) (*entity.ChatSession, error) {
	st, err := s.sessions.For(ctx, userID)
	if err != nil {
		return nil, err
	}
	id := st.ActiveID()
	if id == "" {
		return nil, nil
	}
	sess, ok := st.Get(id)
	if !ok {
		return nil, nil
	}
	return sess, nil
}
