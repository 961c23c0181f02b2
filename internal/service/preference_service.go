package service

import (
	"context"
	"encoding/json"

	"codepilot-be/internal/dto"
	"codepilot-be/internal/entity"
	"codepilot-be/pkg/apperror"
	"codepilot-be/pkg/kvstore"
)

const DefaultTheme = entity.ThemeDark

var ErrInvalidTheme = apperror.Validation("theme must be dark or light")

type IPreferenceService interface {
	Get(ctx context.Context, userID string) (*dto.PreferencesDTO, error)
	Update(ctx context.Context, userID string, req *dto.PreferencesDTO) (*dto.PreferencesDTO, error)
}

type preferenceService struct {
	kv kvstore.Store
}

func NewPreferenceService(kv kvstore.Store) IPreferenceService {
	return &preferenceService{kv: kv}
}

// Get falls back to the dark theme when nothing (or garbage) is stored.
func (s *preferenceService) Get(ctx context.Context, userID string) (*dto.PreferencesDTO, error) {
	raw, found, err := s.kv.Get(ctx, kvstore.ThemeKey(userID))
	if err != nil {
		return nil, err
	}

	theme := DefaultTheme
	if found {
		var stored entity.Theme
		if err := json.Unmarshal(raw, &stored); err == nil && stored.Valid() {
			theme = stored
		}
	}
	return &dto.PreferencesDTO{Theme: string(theme)}, nil
}

func (s *preferenceService) Update(ctx context.Context, userID string, req *dto.PreferencesDTO) (*dto.PreferencesDTO, error) {
	theme := entity.Theme(req.Theme)
	if !theme.Valid() {
		return nil, ErrInvalidTheme
	}

	raw, err := json.Marshal(theme)
	if err != nil {
		return nil, err
	}
	if err := s.kv.Set(ctx, kvstore.ThemeKey(userID), raw); err != nil {
		return nil, err
	}
	return &dto.PreferencesDTO{Theme: string(theme)}, nil
}
