package imagegen

import (
	"context"

	"codepilot-be/pkg/apperror"
	"codepilot-be/pkg/llm/openai"

	goopenai "github.com/sashabaranov/go-openai"
)

type OpenAIProvider struct {
	client *goopenai.Client
	apiKey string
}

// NewOpenAIProvider generates images through the OpenAI images API, asking
// for base64 payloads so no second download is needed.
func NewOpenAIProvider(apiKey, baseURL string) *OpenAIProvider {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{
		client: goopenai.NewClientWithConfig(cfg),
		apiKey: apiKey,
	}
}

func (p *OpenAIProvider) Name() string {
	return ProviderOpenAI
}

func (p *OpenAIProvider) Configured() error {
	if p.apiKey == "" {
		return missingKey("OPENAI API key missing. Set OPENAI_API_KEY.")
	}
	return nil
}

func (p *OpenAIProvider) GenerateImages(ctx context.Context, prompt string) ([]string, error) {
	if err := p.Configured(); err != nil {
		return nil, err
	}

	resp, err := p.client.CreateImage(ctx, goopenai.ImageRequest{
		Prompt:         prompt,
		Size:           goopenai.CreateImageSize1024x1024,
		ResponseFormat: goopenai.CreateImageResponseFormatB64JSON,
		N:              1,
	})
	if err != nil {
		return nil, openai.TranslateError(err)
	}

	images := make([]string, 0, len(resp.Data))
	for _, d := range resp.Data {
		if d.B64JSON != "" {
			images = append(images, d.B64JSON)
		}
	}
	if len(images) == 0 {
		return nil, apperror.Parse("No images returned by OpenAI. Check your API access.")
	}
	return images, nil
}
