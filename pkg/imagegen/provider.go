package imagegen

import (
	"context"
	"net/http"
	"strings"

	"codepilot-be/internal/config"
	"codepilot-be/pkg/apperror"
)

const (
	ProviderGoogle      = "GOOGLE"
	ProviderHuggingFace = "HF"
	ProviderOpenAI      = "OPENAI"
)

// Provider turns a text prompt into images encoded as raw base64 strings,
// without a data-URL prefix, in the order the upstream returned them.
type Provider interface {
	Name() string
	// Configured returns the configuration error, or nil when calls may proceed.
	Configured() error
	GenerateImages(ctx context.Context, prompt string) ([]string, error)
}

// NewProvider selects the image backend from IMAGE_PROVIDER. A missing key
// yields a provider whose calls fail with a configuration error.
func NewProvider(cfg config.AIConfig, keys config.APIKeys) Provider {
	switch strings.ToUpper(cfg.ImageProvider) {
	case "HF", "HUGGINGFACE":
		return NewHuggingFaceProvider(keys.HuggingFace, "", cfg.ImageModel)
	case ProviderOpenAI:
		return NewOpenAIProvider(keys.OpenAI, cfg.OpenAIBaseURL)
	default:
		return NewGoogleProvider(keys.GoogleImagen, "")
	}
}

func newClient() *http.Client {
	return &http.Client{}
}

func missingKey(message string) error {
	return apperror.Configuration("%s", message)
}

var (
	_ Provider = (*GoogleProvider)(nil)
	_ Provider = (*HuggingFaceProvider)(nil)
	_ Provider = (*OpenAIProvider)(nil)
)
