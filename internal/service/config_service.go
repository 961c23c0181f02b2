package service

import (
	"codepilot-be/internal/dto"
	"codepilot-be/pkg/imagegen"
	"codepilot-be/pkg/llm"
)

type IConfigService interface {
	Status() *dto.ConfigStatusResponse
	TextStatus() llm.Status
}

// configService reports what was resolved at startup; it never re-reads the environment.
type configService struct {
	providerName string
	status       llm.Status
	images       imagegen.Provider
}

func NewConfigService(provider llm.LLMProvider, status llm.Status, images imagegen.Provider) IConfigService {
	return &configService{
		providerName: provider.Name(),
		status:       status,
		images:       images,
	}
}

func (s *configService) TextStatus() llm.Status {
	return s.status
}

func (s *configService) Status() *dto.ConfigStatusResponse {
	resp := &dto.ConfigStatusResponse{
		IsConfigured:  s.status.IsConfigured,
		Provider:      s.providerName,
		ImageProvider: s.images.Name(),
	}
	if !s.status.IsConfigured {
		msg := s.status.Error
		resp.Error = &msg
	}
	if err := s.images.Configured(); err != nil {
		msg := err.Error()
		resp.ImageError = &msg
	}
	return resp
}
