// Package chatstore holds a user's chat sessions in memory and mirrors the
// full list to durable key-value storage after every mutation.
package chatstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"codepilot-be/internal/entity"
	"codepilot-be/internal/pkg/logger"
	"codepilot-be/pkg/kvstore"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("chat session not found")

// Mutator edits a session in place. It runs under the store lock.
type Mutator func(session *entity.ChatSession)

type Store struct {
	mu       sync.Mutex
	kv       kvstore.Store
	logger   logger.ILogger
	now      func() time.Time
	userID   string
	sessions []*entity.ChatSession // newest first by insertion
	activeID string
}

func New(kv kvstore.Store, log logger.ILogger) *Store {
	return &Store{
		kv:     kv,
		logger: log,
		now:    time.Now,
	}
}

// Load switches the store to userID: sessions are reloaded from durable
// storage (empty when absent or unreadable) and the active pointer is cleared.
func (s *Store) Load(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.userID = userID
	s.sessions = nil
	s.activeID = ""

	raw, found, err := s.kv.Get(ctx, kvstore.SessionsKey(userID))
	if err != nil {
		return fmt.Errorf("load chat sessions: %w", err)
	}
	if !found {
		return nil
	}

	var sessions []*entity.ChatSession
	if err := json.Unmarshal(raw, &sessions); err != nil {
		s.logger.Error("ChatStore", "Failed to parse chat sessions, starting empty", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		return nil
	}
	for _, sess := range sessions {
		if sess != nil {
			s.sessions = append(s.sessions, sess)
		}
	}
	return nil
}

func (s *Store) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// List returns copies ordered by CreatedAt descending.
func (s *Store) List() []*entity.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*entity.ChatSession, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt > out[j].CreatedAt
	})
	return out
}

func (s *Store) Get(id string) (*entity.ChatSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess := s.find(id); sess != nil {
		return sess.Clone(), true
	}
	return nil, false
}

// Create starts a session holding initial and makes it active.
func (s *Store) Create(ctx context.Context, initial entity.ChatMessage) (*entity.ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := entity.NewChatSession(initial, s.now())
	for s.find(sess.Id) != nil {
		sess.Id = uuid.NewString()
	}

	s.sessions = append([]*entity.ChatSession{sess}, s.sessions...)
	s.activeID = sess.Id

	return sess.Clone(), s.persist(ctx)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return ErrSessionNotFound
	}
	s.sessions = append(s.sessions[:idx], s.sessions[idx+1:]...)
	if s.activeID == id {
		s.activeID = ""
	}
	return s.persist(ctx)
}

// Update applies mutate to the session and persists the whole list.
// The returned session is a snapshot taken after the mutation.
func (s *Store) Update(ctx context.Context, id string, mutate Mutator) (*entity.ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.find(id)
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	mutate(sess)
	return sess.Clone(), s.persist(ctx)
}

func (s *Store) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// SetActive points at an existing session; an empty id clears the pointer (new chat).
func (s *Store) SetActive(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" && s.find(id) == nil {
		return ErrSessionNotFound
	}
	s.activeID = id
	return nil
}

// Clear drops in-memory state without touching durable storage (logout).
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.userID = ""
	s.sessions = nil
	s.activeID = ""
}

func (s *Store) find(id string) *entity.ChatSession {
	if idx := s.indexOf(id); idx >= 0 {
		return s.sessions[idx]
	}
	return nil
}

func (s *Store) indexOf(id string) int {
	for i, sess := range s.sessions {
		if sess.Id == id {
			return i
		}
	}
	return -1
}

// persist rewrites the full list; last writer wins. Caller holds the lock.
func (s *Store) persist(ctx context.Context) error {
	if s.userID == "" {
		return nil
	}
	sessions := s.sessions
	if sessions == nil {
		sessions = []*entity.ChatSession{}
	}
	raw, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("encode chat sessions: %w", err)
	}
	if err := s.kv.Set(ctx, kvstore.SessionsKey(s.userID), raw); err != nil {
		s.logger.Error("ChatStore", "Failed to persist chat sessions", map[string]interface{}{
			"user_id": s.userID,
			"error":   err.Error(),
		})
		return fmt.Errorf("persist chat sessions: %w", err)
	}
	return nil
}
