package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"codepilot-be/pkg/apperror"
)

const GoogleBaseURL = "https://generativelanguage.googleapis.com/v1beta"

type googleImageRequest struct {
	Prompt struct {
		Text string `json:"text"`
	} `json:"prompt"`
	AspectRatio string `json:"aspectRatio"`
}

type googleImageResponse struct {
	Candidates []struct {
		Image struct {
			Base64 string `json:"base64"`
		} `json:"image"`
	} `json:"candidates"`
}

type GoogleProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewGoogleProvider(apiKey, baseURL string) *GoogleProvider {
	if baseURL == "" {
		baseURL = GoogleBaseURL
	}
	return &GoogleProvider{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  newClient(),
	}
}

func (p *GoogleProvider) Name() string {
	return ProviderGoogle
}

func (p *GoogleProvider) Configured() error {
	if p.apiKey == "" {
		return missingKey("GOOGLE API key missing. Set GOOGLE_API_KEY or GEMINI_API_KEY.")
	}
	return nil
}

func (p *GoogleProvider) GenerateImages(ctx context.Context, prompt string) ([]string, error) {
	if err := p.Configured(); err != nil {
		return nil, err
	}

	var payload googleImageRequest
	payload.Prompt.Text = prompt
	payload.AspectRatio = "1:1"

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/images:generate?key=%s", p.baseURL, p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, apperror.WrapNetwork(err, "google imagen request failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperror.WrapNetwork(err, "read google imagen response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperror.Network(resp.StatusCode, "Google Imagen error %d: %s", resp.StatusCode, string(respBody))
	}

	var result googleImageResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, apperror.Parse("unexpected google imagen response: %v", err)
	}

	images := make([]string, 0, len(result.Candidates))
	for _, c := range result.Candidates {
		if c.Image.Base64 != "" {
			images = append(images, c.Image.Base64)
		}
	}
	if len(images) == 0 {
		return nil, apperror.Parse("No images returned by Google Imagen. Check your API access.")
	}
	return images, nil
}
