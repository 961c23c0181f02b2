package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"codepilot-be/internal/dto"
	"codepilot-be/internal/mapper"
	"codepilot-be/internal/pkg/logger"
	"codepilot-be/internal/repository/implementation"
	"codepilot-be/internal/repository/specification"
	"codepilot-be/internal/repository/unitofwork"
	"codepilot-be/pkg/apperror"
	"codepilot-be/pkg/chatstore"
	"codepilot-be/pkg/events"
	"codepilot-be/pkg/kvstore"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const PasswordUpdatedMessage = "Password updated successfully!"

var (
	ErrPasswordFieldsRequired = apperror.Validation("Please fill in all password fields.")
	ErrNewPasswordMismatch    = apperror.Validation("New passwords do not match.")
	ErrWrongCurrentPassword   = apperror.Validation("Incorrect current password.")
	ErrUserNotFound           = apperror.NotFound("user not found")
)

type IUserService interface {
	GetProfile(ctx context.Context, userId uuid.UUID) (*dto.UserDTO, error)
	UpdateProfile(ctx context.Context, userId uuid.UUID, req *dto.UpdateProfileRequest) (*dto.UserDTO, error)
	ChangePassword(ctx context.Context, userId uuid.UUID, req *dto.ChangePasswordRequest) error
	DeleteAccount(ctx context.Context, userId uuid.UUID) error
}

type userService struct {
	uowFactory unitofwork.RepositoryFactory
	kv         kvstore.Store
	sessions   *chatstore.Registry
	notifier   accountNotifier
	mapper     *mapper.UserMapper
	logger     logger.ILogger
}

func NewUserService(
	uowFactory unitofwork.RepositoryFactory,
	kv kvstore.Store,
	sessions *chatstore.Registry,
	eventPublisher events.Publisher,
	mailPublisher IPublisherService,
	log logger.ILogger,
) IUserService {
	return &userService{
		uowFactory: uowFactory,
		kv:         kv,
		sessions:   sessions,
		notifier:   accountNotifier{events: eventPublisher, mail: mailPublisher, logger: log},
		mapper:     mapper.NewUserMapper(),
		logger:     log,
	}
}

func (s *userService) GetProfile(ctx context.Context, userId uuid.UUID) (*dto.UserDTO, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	out := s.mapper.ToDTO(user)
	return &out, nil
}

// UpdateProfile changes name and email; the password hash is left alone.
func (s *userService) UpdateProfile(ctx context.Context, userId uuid.UUID, req *dto.UpdateProfileRequest) (*dto.UserDTO, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	// The uniqueness check and the update share one transaction.
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()
	repo := uow.UserRepository()

	user, err := repo.FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	email := normalizeEmail(req.Email)
	if email != user.Email {
		taken, err := repo.FindOne(ctx, specification.ByEmail{Email: email}, specification.ExcludeID{ID: userId})
		if err != nil {
			return nil, err
		}
		if taken != nil {
			return nil, apperror.ErrDuplicateEmail
		}
	}

	user.FullName = strings.TrimSpace(req.Name)
	user.Email = email
	user.UpdatedAt = time.Now()

	if err := repo.Update(ctx, user); err != nil {
		if errors.Is(err, implementation.ErrDuplicateKey) {
			return nil, apperror.ErrDuplicateEmail
		}
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	out := s.mapper.ToDTO(user)
	return &out, nil
}

func (s *userService) ChangePassword(ctx context.Context, userId uuid.UUID, req *dto.ChangePasswordRequest) error {
	if req.CurrentPassword == "" || req.NewPassword == "" || req.ConfirmNewPassword == "" {
		return ErrPasswordFieldsRequired
	}
	if req.NewPassword != req.ConfirmNewPassword {
		return ErrNewPasswordMismatch
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return ErrWrongCurrentPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := uow.UserRepository().UpdatePassword(ctx, userId, string(hash)); err != nil {
		return err
	}

	s.notifier.event(ctx, events.PasswordChanged, map[string]interface{}{"user_id": userId.String()})
	s.notifier.mailTo(ctx, dto.AccountMailPasswordChanged, user.Email, user.FullName)
	return nil
}

// DeleteAccount removes the user row and everything stored under the user's keys.
func (s *userService) DeleteAccount(ctx context.Context, userId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.UserRepository().Delete(ctx, userId); err != nil {
		return err
	}

	id := userId.String()
	s.sessions.Evict(id)
	for _, key := range []string{kvstore.SessionsKey(id), kvstore.ThemeKey(id)} {
		if err := s.kv.Delete(ctx, key); err != nil {
			s.logger.Warn("User", "Failed to delete user data", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
	}
	return nil
}
