package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"codepilot-be/internal/constant"
	"codepilot-be/internal/dto"
	"codepilot-be/internal/entity"
	"codepilot-be/internal/pkg/logger"
	"codepilot-be/pkg/apperror"
	"codepilot-be/pkg/chatstore"
	"codepilot-be/pkg/events"
	"codepilot-be/pkg/kvstore"
	"codepilot-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu        sync.Mutex
	snapshots []*entity.ChatSession
}

func (s *recordingSink) OnUpdate(session *entity.ChatSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, session)
}

type recordingBroadcaster struct {
	mu   sync.Mutex
	sent map[string]int
}

func (b *recordingBroadcaster) SendToUser(userID string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sent == nil {
		b.sent = map[string]int{}
	}
	if _, ok := payload.(dto.ChatUpdateEvent); ok {
		b.sent[userID]++
	}
}

type chatFixture struct {
	svc       IChatService
	provider  *fakeLLM
	registry  *chatstore.Registry
	kv        kvstore.Store
	events    *recordingPublisher
	broadcast *recordingBroadcaster
}

func newChatFixture(provider *fakeLLM, status llm.Status) *chatFixture {
	return newChatFixtureWithKV(provider, status, kvstore.NewMemoryStore())
}

func newChatFixtureWithKV(provider *fakeLLM, status llm.Status, kv kvstore.Store) *chatFixture {
	registry := chatstore.NewRegistry(kv, logger.NewNopLogger())
	pub := &recordingPublisher{}
	b := &recordingBroadcaster{}
	return &chatFixture{
		svc:       NewChatService(registry, provider, status, b, pub, logger.NewNopLogger()),
		provider:  provider,
		registry:  registry,
		kv:        kv,
		events:    pub,
		broadcast: b,
	}
}

var configured = llm.Status{IsConfigured: true}

func TestSendMessageNewSession(t *testing.T) {
	provider := &fakeLLM{chunks: []string{"Hel", "lo!"}, title: `"Friendly Greeting"`}
	fx := newChatFixture(provider, configured)
	sink := &recordingSink{}

	sess, err := fx.svc.SendMessage(context.Background(), "u1", "", "  hello  ", sink)
	require.NoError(t, err)

	assert.Equal(t, "Friendly Greeting", sess.Title)
	assert.Equal(t, []entity.ChatMessage{
		{Sender: entity.MessageSenderUser, Text: "hello"},
		{Sender: entity.MessageSenderAI, Text: "Hello!"},
	}, sess.Messages)

	// placeholder, two chunks, title
	require.Len(t, sink.snapshots, 4)
	assert.Equal(t, "", sink.snapshots[0].Messages[1].Text)
	assert.Equal(t, "Hel", sink.snapshots[1].Messages[1].Text)
	assert.Equal(t, "Hello!", sink.snapshots[2].Messages[1].Text)
	assert.Equal(t, 4, fx.broadcast.sent["u1"])

	require.Len(t, provider.histories, 1)
	assert.Empty(t, provider.histories[0])
	assert.Equal(t, []string{"hello"}, provider.messages)
	assert.Equal(t, []string{`Generate a concise title for a chat that starts with: "hello"`}, provider.generateCalls)

	assert.Equal(t, []string{events.ChatSessionCreated, events.ChatTitleGenerated}, fx.events.types())

	list, err := fx.svc.ListSessions(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, list.Sessions, 1)
	assert.Equal(t, sess.Id, list.ActiveSessionId)
}

func TestSendMessageExistingSessionPassesPriorHistory(t *testing.T) {
	provider := &fakeLLM{chunks: []string{"first answer"}, title: "Title"}
	fx := newChatFixture(provider, configured)
	ctx := context.Background()

	first, err := fx.svc.SendMessage(ctx, "u1", "", "question one", nil)
	require.NoError(t, err)

	provider.chunks = []string{"second answer"}
	second, err := fx.svc.SendMessage(ctx, "u1", first.Id, "question two", nil)
	require.NoError(t, err)

	require.Len(t, provider.histories, 2)
	assert.Equal(t, []llm.Message{
		{Role: llm.RoleUser, Content: "question one"},
		{Role: llm.RoleModel, Content: "first answer"},
	}, provider.histories[1])
	assert.Equal(t, "question two", provider.messages[1])

	require.Len(t, second.Messages, 4)
	assert.Equal(t, "second answer", second.Messages[3].Text)
	assert.Equal(t, "Title", second.Title)
	assert.Len(t, provider.generateCalls, 1, "title is generated only for new sessions")
}

func TestSendMessageStreamFailureReplacesPartialReply(t *testing.T) {
	provider := &fakeLLM{
		chunks:    []string{"partial"},
		streamErr: apperror.Network(500, "Gemini API error (500): boom"),
	}
	fx := newChatFixture(provider, configured)

	sess, err := fx.svc.SendMessage(context.Background(), "u1", "", "hi", nil)
	require.NoError(t, err)

	require.Len(t, sess.Messages, 2)
	assert.Equal(t, entity.ChatMessage{Sender: entity.MessageSenderAI, Text: "Gemini API error (500): boom"}, sess.Messages[1])
	assert.Equal(t, entity.DefaultChatTitle, sess.Title)
	assert.Empty(t, provider.generateCalls)
}

func TestSendMessageBlankErrorUsesFallback(t *testing.T) {
	provider := &fakeLLM{openErr: apperror.Network(502, "")}
	fx := newChatFixture(provider, configured)

	sess, err := fx.svc.SendMessage(context.Background(), "u1", "", "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, constant.ChatErrorFallback, sess.LastMessage().Text)
}

func TestSendMessageTitleFailureKeepsDefault(t *testing.T) {
	provider := &fakeLLM{chunks: []string{"ok"}, titleErr: apperror.Network(429, "quota")}
	fx := newChatFixture(provider, configured)

	sess, err := fx.svc.SendMessage(context.Background(), "u1", "", "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, entity.DefaultChatTitle, sess.Title)
}

func TestSendMessageUnconfiguredMutatesNothing(t *testing.T) {
	fx := newChatFixture(&fakeLLM{}, llm.Status{IsConfigured: false, Error: "API_KEY environment variable not set."})

	_, err := fx.svc.SendMessage(context.Background(), "u1", "", "hi", nil)
	assert.True(t, apperror.IsConfiguration(err))

	list, err := fx.svc.ListSessions(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, list.Sessions)
}

func TestSendMessageRejectsEmptyAndUnknownSession(t *testing.T) {
	fx := newChatFixture(&fakeLLM{}, configured)
	ctx := context.Background()

	_, err := fx.svc.SendMessage(ctx, "u1", "", "   ", nil)
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = fx.svc.SendMessage(ctx, "u1", "missing", "hi", nil)
	assert.ErrorIs(t, err, chatstore.ErrSessionNotFound)
}

func TestSendMessageSingleFlightPerUser(t *testing.T) {
	gate := make(chan struct{})
	started := make(chan struct{})
	provider := &fakeLLM{chunks: []string{"slow"}, title: "T", gate: gate, started: started}
	fx := newChatFixture(provider, configured)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := fx.svc.SendMessage(ctx, "u1", "", "first", nil)
		done <- err
	}()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("first send never reached the provider")
	}

	_, err := fx.svc.SendMessage(ctx, "u1", "", "second", nil)
	assert.ErrorIs(t, err, ErrSendInFlight)

	close(gate)
	require.NoError(t, <-done)

	list, err := fx.svc.ListSessions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list.Sessions, 1)
	assert.Len(t, list.Sessions[0].Messages, 2)
}

func TestNewChatSelectAndDelete(t *testing.T) {
	fx := newChatFixture(&fakeLLM{chunks: []string{"a"}, title: "T"}, configured)
	ctx := context.Background()

	sess, err := fx.svc.SendMessage(ctx, "u1", "", "hi", nil)
	require.NoError(t, err)

	require.NoError(t, fx.svc.NewChat(ctx, "u1"))
	active, err := fx.svc.ActiveSession(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, active)

	selected, err := fx.svc.SelectSession(ctx, "u1", sess.Id)
	require.NoError(t, err)
	assert.Equal(t, sess.Id, selected.Id)

	_, err = fx.svc.SelectSession(ctx, "u1", "nope")
	assert.ErrorIs(t, err, chatstore.ErrSessionNotFound)

	require.NoError(t, fx.svc.DeleteSession(ctx, "u1", sess.Id))
	_, err = fx.svc.GetSession(ctx, "u1", sess.Id)
	assert.ErrorIs(t, err, chatstore.ErrSessionNotFound)
	assert.Contains(t, fx.events.types(), events.ChatSessionDeleted)
}

func TestSessionsAreScopedPerUser(t *testing.T) {
	fx := newChatFixture(&fakeLLM{chunks: []string{"a"}, title: "T"}, configured)
	ctx := context.Background()

	sess, err := fx.svc.SendMessage(ctx, "u1", "", "mine", nil)
	require.NoError(t, err)

	_, err = fx.svc.GetSession(ctx, "u2", sess.Id)
	assert.ErrorIs(t, err, chatstore.ErrSessionNotFound)
}

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`"Fixing Login Bug"`, "Fixing Login Bug"},
		{"  Go Channels Explained \n", "Go Channels Explained"},
		{"one two three four five six seven", "one two three four five"},
		{`""`, entity.DefaultChatTitle},
		{"", entity.DefaultChatTitle},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanTitle(tt.raw), "raw=%q", tt.raw)
	}
}

func durableSessions(t *testing.T, kv kvstore.Store, userID string) []*entity.ChatSession {
	t.Helper()
	raw, found, err := kv.Get(context.Background(), kvstore.SessionsKey(userID))
	require.NoError(t, err)
	if !found {
		return nil
	}
	var sessions []*entity.ChatSession
	require.NoError(t, json.Unmarshal(raw, &sessions))
	return sessions
}

func TestSendMessageSurvivesLogoutMidStream(t *testing.T) {
	provider := &fakeLLM{chunks: []string{"partial ", "rest"}, title: "Title"}
	fx := newChatFixture(provider, configured)
	provider.beforeChunk = func(i int) {
		if i == 1 {
			fx.registry.Evict("u1")
		}
	}

	sess, err := fx.svc.SendMessage(context.Background(), "u1", "", "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "partial rest", sess.LastMessage().Text)

	stored := durableSessions(t, fx.kv, "u1")
	require.Len(t, stored, 1)
	assert.Equal(t, "partial rest", stored[0].LastMessage().Text)
	assert.Equal(t, "Title", stored[0].Title)

	fresh, err := fx.registry.For(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, fresh.ActiveID(), "eviction applies once the send releases the store")
}

// flakyKV fails the Set calls whose 1-based ordinal is listed in failOn, or
// every Set when failAll is true.
type flakyKV struct {
	kvstore.Store
	mu      sync.Mutex
	sets    int
	failOn  map[int]bool
	failAll bool
}

func (k *flakyKV) Set(ctx context.Context, key string, value []byte) error {
	k.mu.Lock()
	k.sets++
	fail := k.failAll || k.failOn[k.sets]
	k.mu.Unlock()
	if fail {
		return errors.New("kv unavailable")
	}
	return k.Store.Set(ctx, key, value)
}

func TestSendMessageReportsUnsavedSession(t *testing.T) {
	kv := &flakyKV{Store: kvstore.NewMemoryStore(), failAll: true}
	fx := newChatFixtureWithKV(&fakeLLM{chunks: []string{"a"}, title: "T"}, configured, kv)

	sess, err := fx.svc.SendMessage(context.Background(), "u1", "", "hi", nil)
	require.Error(t, err)
	assert.Nil(t, sess)
	assert.Equal(t, apperror.KindInternal, apperror.KindOf(err))
	assert.Nil(t, durableSessions(t, kv, "u1"))
}

func TestSendMessageWriteFailureMidStreamBecomesReply(t *testing.T) {
	// Sets: create, placeholder, first chunk (fails), error reply.
	kv := &flakyKV{Store: kvstore.NewMemoryStore(), failOn: map[int]bool{3: true}}
	fx := newChatFixtureWithKV(&fakeLLM{chunks: []string{"lost", "more"}, title: "T"}, configured, kv)

	sess, err := fx.svc.SendMessage(context.Background(), "u1", "", "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, msgSaveFailed, sess.LastMessage().Text)

	stored := durableSessions(t, kv, "u1")
	require.Len(t, stored, 1)
	require.Len(t, stored[0].Messages, 2)
	assert.Equal(t, msgSaveFailed, stored[0].Messages[1].Text)
	assert.Equal(t, entity.DefaultChatTitle, stored[0].Title)
}
