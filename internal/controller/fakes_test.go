package controller

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"codepilot-be/internal/dto"
	"codepilot-be/internal/entity"
	"codepilot-be/internal/pkg/serverutils"
	"codepilot-be/internal/service"
	"codepilot-be/pkg/chatstore"
	"codepilot-be/pkg/llm"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const testSecret = "controller-secret"

var testUserID = uuid.MustParse("7f6b3a52-4c1e-4f0a-9d57-2b8e1c0d9a11")

func bearer(t *testing.T) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": testUserID.String(),
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + token
}

func protected() fiber.Handler {
	return serverutils.NewJwtMiddleware(testSecret)
}

func passThrough(ctx *fiber.Ctx) error {
	return ctx.Next()
}

func doJSON(t *testing.T, app *fiber.App, method, target string, body interface{}, auth string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return out
}

type fakeAuthService struct {
	signupErr  error
	loginErr   error
	loggedOut  []string
	signups    []dto.SignupRequest
	loginReply *dto.LoginResponse
}

func (f *fakeAuthService) Signup(ctx context.Context, req *dto.SignupRequest) (*dto.SignupResponse, error) {
	f.signups = append(f.signups, *req)
	if f.signupErr != nil {
		return nil, f.signupErr
	}
	return &dto.SignupResponse{Message: service.SignupSuccessMessage}, nil
}

func (f *fakeAuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.loginReply, nil
}

func (f *fakeAuthService) Logout(ctx context.Context, userID string) error {
	f.loggedOut = append(f.loggedOut, userID)
	return nil
}

type fakeUserService struct {
	profile     *dto.UserDTO
	passwordErr error
	deleted     []uuid.UUID
}

func (f *fakeUserService) GetProfile(ctx context.Context, userId uuid.UUID) (*dto.UserDTO, error) {
	return f.profile, nil
}

func (f *fakeUserService) UpdateProfile(ctx context.Context, userId uuid.UUID, req *dto.UpdateProfileRequest) (*dto.UserDTO, error) {
	return &dto.UserDTO{Id: userId, Name: req.Name, Email: req.Email}, nil
}

func (f *fakeUserService) ChangePassword(ctx context.Context, userId uuid.UUID, req *dto.ChangePasswordRequest) error {
	return f.passwordErr
}

func (f *fakeUserService) DeleteAccount(ctx context.Context, userId uuid.UUID) error {
	f.deleted = append(f.deleted, userId)
	return nil
}

type fakePreferenceService struct {
	theme string
}

func (f *fakePreferenceService) Get(ctx context.Context, userID string) (*dto.PreferencesDTO, error) {
	if f.theme == "" {
		return &dto.PreferencesDTO{Theme: string(entity.ThemeDark)}, nil
	}
	return &dto.PreferencesDTO{Theme: f.theme}, nil
}

func (f *fakePreferenceService) Update(ctx context.Context, userID string, req *dto.PreferencesDTO) (*dto.PreferencesDTO, error) {
	f.theme = req.Theme
	return req, nil
}

// fakeChatService answers every send with a two-step reply so the SSE path
// emits more than one update.
type fakeChatService struct {
	sessions map[string]*entity.ChatSession
	sendErr  error
	sent     []string
}

func newFakeChatService() *fakeChatService {
	return &fakeChatService{sessions: map[string]*entity.ChatSession{}}
}

func (f *fakeChatService) SendMessage(ctx context.Context, userID, sessionID, text string, sink service.ChatSink) (*entity.ChatSession, error) {
	f.sent = append(f.sent, text)
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	sess := &entity.ChatSession{
		Id:    "s-new",
		Title: entity.DefaultChatTitle,
		Messages: []entity.ChatMessage{
			{Sender: entity.MessageSenderUser, Text: text},
			{Sender: entity.MessageSenderAI, Text: "Hel"},
		},
	}
	if sink != nil {
		sink.OnUpdate(sess)
	}
	sess.Messages[1].Text = "Hello"
	sess.Title = "Greeting"
	if sink != nil {
		sink.OnUpdate(sess)
	}
	f.sessions[sess.Id] = sess
	return sess, nil
}

func (f *fakeChatService) ListSessions(ctx context.Context, userID string) (*dto.SessionListResponse, error) {
	out := &dto.SessionListResponse{Sessions: []*entity.ChatSession{}}
	for _, s := range f.sessions {
		out.Sessions = append(out.Sessions, s)
	}
	return out, nil
}

func (f *fakeChatService) GetSession(ctx context.Context, userID, sessionID string) (*entity.ChatSession, error) {
	s, ok := f.sessions[sessionID]
	if !ok {
		return nil, chatstore.ErrSessionNotFound
	}
	return s, nil
}

func (f *fakeChatService) DeleteSession(ctx context.Context, userID, sessionID string) error {
	if _, ok := f.sessions[sessionID]; !ok {
		return chatstore.ErrSessionNotFound
	}
	delete(f.sessions, sessionID)
	return nil
}

func (f *fakeChatService) NewChat(ctx context.Context, userID string) error {
	return nil
}

func (f *fakeChatService) SelectSession(ctx context.Context, userID, sessionID string) (*entity.ChatSession, error) {
	return f.GetSession(ctx, userID, sessionID)
}

func (f *fakeChatService) ActiveSession(ctx context.Context, userID string) (*entity.ChatSession, error) {
	return nil, nil
}

type fakeGenerationService struct {
	text     string
	imageErr error
}

func (f *fakeGenerationService) Build(ctx context.Context, req *dto.BuildRequest) (*dto.TextResultResponse, error) {
	return &dto.TextResultResponse{Text: f.text}, nil
}

func (f *fakeGenerationService) Debug(ctx context.Context, req *dto.DebugRequest) (*dto.TextResultResponse, error) {
	return &dto.TextResultResponse{Text: f.text}, nil
}

func (f *fakeGenerationService) GenerateImage(ctx context.Context, req *dto.ImageRequest) (*dto.ImageResultResponse, error) {
	if f.imageErr != nil {
		return nil, f.imageErr
	}
	return &dto.ImageResultResponse{Images: []string{"aW1n"}}, nil
}

type fakeConfigService struct {
	status *dto.ConfigStatusResponse
}

func (f *fakeConfigService) Status() *dto.ConfigStatusResponse {
	return f.status
}

func (f *fakeConfigService) TextStatus() llm.Status {
	return llm.Status{IsConfigured: f.status.IsConfigured}
}
