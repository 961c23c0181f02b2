package service

import (
	"context"
	"fmt"

	"codepilot-be/internal/constant"
	"codepilot-be/internal/dto"
	"codepilot-be/internal/pkg/logger"
	"codepilot-be/pkg/apperror"
	"codepilot-be/pkg/imagegen"
	"codepilot-be/pkg/llm"
)

// IGenerationService backs the one-shot panes. Provider failures come back
// as "Error: <msg>" text; only configuration errors are returned as errors.
type IGenerationService interface {
	Build(ctx context.Context, req *dto.BuildRequest) (*dto.TextResultResponse, error)
	Debug(ctx context.Context, req *dto.DebugRequest) (*dto.TextResultResponse, error)
	GenerateImage(ctx context.Context, req *dto.ImageRequest) (*dto.ImageResultResponse, error)
}

type generationService struct {
	provider llm.LLMProvider
	images   imagegen.Provider
	logger   logger.ILogger
}

func NewGenerationService(provider llm.LLMProvider, images imagegen.Provider, log logger.ILogger) IGenerationService {
	return &generationService{
		provider: provider,
		images:   images,
		logger:   log,
	}
}

func asErrorText(err error) string {
	return fmt.Sprintf("Error: %s", err.Error())
}

func (s *generationService) generateText(ctx context.Context, pane, systemPrompt, content string, options ...llm.Option) (*dto.TextResultResponse, error) {
	text, err := s.provider.Generate(ctx, systemPrompt, content, options...)
	if err != nil {
		if apperror.IsConfiguration(err) {
			return nil, err
		}
		s.logger.Warn("Generation", "Provider call failed", map[string]interface{}{
			"pane":  pane,
			"error": err.Error(),
		})
		return &dto.TextResultResponse{Text: asErrorText(err)}, nil
	}
	return &dto.TextResultResponse{Text: text}, nil
}

func (s *generationService) Build(ctx context.Context, req *dto.BuildRequest) (*dto.TextResultResponse, error) {
	return s.generateText(ctx, "build", constant.SystemPromptBuild, req.Prompt, llm.WithoutThinking())
}

func (s *generationService) Debug(ctx context.Context, req *dto.DebugRequest) (*dto.TextResultResponse, error) {
	content := fmt.Sprintf(constant.DebugContentFormat, req.Code, req.Problem)
	return s.generateText(ctx, "debug", constant.SystemPromptDebug, content)
}

func (s *generationService) GenerateImage(ctx context.Context, req *dto.ImageRequest) (*dto.ImageResultResponse, error) {
	images, err := s.images.GenerateImages(ctx, req.Prompt)
	if err != nil {
		if apperror.IsConfiguration(err) {
			return nil, err
		}
		s.logger.Warn("Generation", "Image generation failed", map[string]interface{}{
			"provider": s.images.Name(),
			"error":    err.Error(),
		})
		return &dto.ImageResultResponse{Images: []string{}, Error: asErrorText(err)}, nil
	}
	return &dto.ImageResultResponse{Images: images}, nil
}
