package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"codepilot-be/internal/dto"
	"codepilot-be/internal/entity"
	"codepilot-be/internal/mapper"
	"codepilot-be/internal/pkg/logger"
	"codepilot-be/internal/repository/implementation"
	"codepilot-be/internal/repository/specification"
	"codepilot-be/internal/repository/unitofwork"
	"codepilot-be/pkg/apperror"
	"codepilot-be/pkg/chatstore"
	"codepilot-be/pkg/events"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const SignupSuccessMessage = "User registered successfully!"

type IAuthService interface {
	Signup(ctx context.Context, req *dto.SignupRequest) (*dto.SignupResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error)
	Logout(ctx context.Context, userID string) error
}

type AuthOptions struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type authService struct {
	uowFactory unitofwork.RepositoryFactory
	sessions   *chatstore.Registry
	notifier   accountNotifier
	mapper     *mapper.UserMapper
	opts       AuthOptions
	logger     logger.ILogger
	now        func() time.Time
}

func NewAuthService(
	uowFactory unitofwork.RepositoryFactory,
	sessions *chatstore.Registry,
	eventPublisher events.Publisher,
	mailPublisher IPublisherService,
	opts AuthOptions,
	log logger.ILogger,
) IAuthService {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = time.Hour
	}
	return &authService{
		uowFactory: uowFactory,
		sessions:   sessions,
		notifier:   accountNotifier{events: eventPublisher, mail: mailPublisher, logger: log},
		mapper:     mapper.NewUserMapper(),
		opts:       opts,
		logger:     log,
		now:        time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *authService) Signup(ctx context.Context, req *dto.SignupRequest) (*dto.SignupResponse, error) {
	if req.ConfirmPassword != "" && req.ConfirmPassword != req.Password {
		return nil, apperror.Validation("Passwords do not match.")
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	email := normalizeEmail(req.Email)

	existing, err := uow.UserRepository().FindOne(ctx, specification.ByEmail{Email: email})
	if err != nil {
		s.logger.Error("Auth", "Signup lookup failed", map[string]interface{}{"error": err.Error()})
		return nil, apperror.ErrServer
	}
	if existing != nil {
		return nil, apperror.ErrDuplicateEmail
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperror.ErrServer
	}

	now := s.now()
	user := &entity.User{
		Id:           uuid.New(),
		Email:        email,
		FullName:     strings.TrimSpace(req.Name),
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := uow.UserRepository().Create(ctx, user); err != nil {
		// Lost a race with a concurrent signup for the same address.
		if errors.Is(err, implementation.ErrDuplicateKey) {
			return nil, apperror.ErrDuplicateEmail
		}
		s.logger.Error("Auth", "Signup failed", map[string]interface{}{"error": err.Error()})
		return nil, apperror.ErrServer
	}

	s.notifier.event(ctx, events.UserSignup, map[string]interface{}{
		"user_id": user.Id.String(),
		"email":   user.Email,
	})
	s.notifier.mailTo(ctx, dto.AccountMailWelcome, user.Email, user.FullName)

	return &dto.SignupResponse{Message: SignupSuccessMessage}, nil
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx, specification.ByEmail{Email: req.Email})
	if err != nil {
		s.logger.Error("Auth", "Login lookup failed", map[string]interface{}{"error": err.Error()})
		return nil, apperror.ErrLoginFailed
	}
	if user == nil {
		return nil, apperror.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperror.ErrInvalidCredentials
	}

	signedToken, err := s.issueToken(user)
	if err != nil {
		return nil, apperror.ErrLoginFailed
	}

	s.notifier.event(ctx, events.UserLogin, map[string]interface{}{
		"user_id": user.Id.String(),
		"time":    s.now().Format(time.RFC822),
	})

	return &dto.LoginResponse{
		Token: signedToken,
		User:  s.mapper.ToDTO(user),
	}, nil
}

func (s *authService) issueToken(user *entity.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id": user.Id.String(),
		"email":   user.Email,
		"exp":     s.now().Add(s.opts.TokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.opts.JWTSecret))
}

// Logout drops the user's in-memory sessions and active pointer; the
// durable copy stays for the next login.
func (s *authService) Logout(ctx context.Context, userID string) error {
	s.sessions.Evict(userID)
	return nil
}
