package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"codepilot-be/pkg/apperror"
)

const (
	HuggingFaceBaseURL = "https://api-inference.huggingface.co/models"
	HuggingFaceModel   = "black-forest-labs/FLUX.1-dev"
)

type HuggingFaceProvider struct {
	token   string
	baseURL string
	model   string
	client  *http.Client
}

func NewHuggingFaceProvider(token, baseURL, model string) *HuggingFaceProvider {
	if baseURL == "" {
		baseURL = HuggingFaceBaseURL
	}
	if model == "" {
		model = HuggingFaceModel
	}
	return &HuggingFaceProvider{
		token:   token,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  newClient(),
	}
}

func (p *HuggingFaceProvider) Name() string {
	return ProviderHuggingFace
}

func (p *HuggingFaceProvider) Configured() error {
	if p.token == "" {
		return missingKey("HF token missing. Set HF_TOKEN to use Hugging Face image generation.")
	}
	return nil
}

// GenerateImages returns a single image: the inference endpoint answers
// with the raw image bytes.
func (p *HuggingFaceProvider) GenerateImages(ctx context.Context, prompt string) ([]string, error) {
	if err := p.Configured(); err != nil {
		return nil, err
	}

	body, err := json.Marshal(map[string]string{"inputs": prompt})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s", p.baseURL, p.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, apperror.WrapNetwork(err, "hugging face request failed")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperror.WrapNetwork(err, "read hugging face response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperror.Network(resp.StatusCode, "HF error %d: %s", resp.StatusCode, string(data))
	}
	if len(data) == 0 {
		return nil, apperror.Parse("Hugging Face returned an empty image")
	}

	return []string{base64.StdEncoding.EncodeToString(data)}, nil
}
