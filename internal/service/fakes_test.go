package service

import (
	"context"
	"io"
	"sync"

	"codepilot-be/internal/entity"
	"codepilot-be/internal/repository/contract"
	"codepilot-be/internal/repository/implementation"
	"codepilot-be/internal/repository/specification"
	"codepilot-be/internal/repository/unitofwork"
	"codepilot-be/pkg/events"
	"codepilot-be/pkg/llm"

	"github.com/google/uuid"
)

// --- users ---

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*entity.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*entity.User)}
}

func (r *fakeUserRepo) matches(u *entity.User, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByID:
			if u.Id != s.ID {
				return false
			}
		case specification.ByEmail:
			if u.Email != normalizeEmail(s.Email) {
				return false
			}
		case specification.ExcludeID:
			if u.Id == s.ID {
				return false
			}
		}
	}
	return true
}

func (r *fakeUserRepo) Create(ctx context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return implementation.ErrDuplicateKey
		}
	}
	cp := *user
	r.users[user.Id] = &cp
	return nil
}

func (r *fakeUserRepo) Update(ctx context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *user
	r.users[user.Id] = &cp
	return nil
}

func (r *fakeUserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if r.matches(u, specs) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.User
	for _, u := range r.users {
		if r.matches(u, specs) {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, _ := r.FindAll(ctx, specs...)
	return int64(len(all)), nil
}

func (r *fakeUserRepo) UpdatePassword(ctx context.Context, userId uuid.UUID, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userId]; ok {
		u.PasswordHash = hash
	}
	return nil
}

type fakeUoW struct {
	repo *fakeUserRepo
}

func (u fakeUoW) Begin(ctx context.Context) error         { return nil }
func (u fakeUoW) Commit() error                           { return nil }
func (u fakeUoW) Rollback() error                         { return nil }
func (u fakeUoW) UserRepository() contract.UserRepository { return u.repo }

type fakeUoWFactory struct {
	repo *fakeUserRepo
}

func (f fakeUoWFactory) NewUnitOfWork(context.Context) unitofwork.UnitOfWork {
	return fakeUoW{repo: f.repo}
}

// --- events ---

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

type recordingMailQueue struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (q *recordingMailQueue) Publish(ctx context.Context, payload []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.payloads = append(q.payloads, payload)
	return nil
}

// --- llm ---

type fakeStream struct {
	chunks []string
	err    error
	gate   <-chan struct{}
	pos    int
	before func(i int)
}

func (s *fakeStream) Next() (string, error) {
	if s.gate != nil {
		<-s.gate
		s.gate = nil
	}
	if s.before != nil {
		s.before(s.pos)
	}
	if s.pos < len(s.chunks) {
		s.pos++
		return s.chunks[s.pos-1], nil
	}
	if s.err != nil {
		return "", s.err
	}
	return "", io.EOF
}

func (s *fakeStream) Close() error { return nil }

type fakeLLM struct {
	mu sync.Mutex

	chunks    []string
	streamErr error // returned after chunks
	openErr   error // returned by StreamChat itself
	gate      chan struct{}
	started   chan struct{}
	// beforeChunk runs ahead of each Next with the index about to be served.
	beforeChunk func(i int)

	title    string
	titleErr error

	generateText string
	generateErr  error

	histories     [][]llm.Message
	messages      []string
	generateCalls []string
	generateOpts  []llm.Options
}

func (f *fakeLLM) Name() string { return "fake" }

func (f *fakeLLM) Generate(ctx context.Context, systemPrompt, content string, options ...llm.Option) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generateCalls = append(f.generateCalls, content)
	f.generateOpts = append(f.generateOpts, llm.ApplyOptions(llm.Options{}, options))
	if f.generateText != "" || f.generateErr != nil {
		return f.generateText, f.generateErr
	}
	return f.title, f.titleErr
}

func (f *fakeLLM) StreamChat(ctx context.Context, systemPrompt string, history []llm.Message, message string, options ...llm.Option) (llm.Stream, error) {
	f.mu.Lock()
	f.histories = append(f.histories, history)
	f.messages = append(f.messages, message)
	f.mu.Unlock()

	if f.started != nil {
		close(f.started)
		f.started = nil
	}
	if f.openErr != nil {
		return nil, f.openErr
	}
	return &fakeStream{chunks: f.chunks, err: f.streamErr, gate: f.gate, before: f.beforeChunk}, nil
}
