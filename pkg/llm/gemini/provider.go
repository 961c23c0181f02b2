package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"codepilot-be/pkg/apperror"
	"codepilot-be/pkg/llm"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.5-flash"
)

type GeminiChatParts struct {
	Text string `json:"text"`
}

type GeminiChatContent struct {
	Parts []*GeminiChatParts `json:"parts"`
	Role  string             `json:"role,omitempty"`
}

type geminiThinkingConfig struct {
	ThinkingBudget int `json:"thinkingBudget"`
}

type geminiGenerationConfig struct {
	Temperature     *float64              `json:"temperature,omitempty"`
	MaxOutputTokens int                   `json:"maxOutputTokens,omitempty"`
	ThinkingConfig  *geminiThinkingConfig `json:"thinkingConfig,omitempty"`
}

type GeminiChatRequest struct {
	SystemInstruction *GeminiChatContent      `json:"systemInstruction,omitempty"`
	Contents          []*GeminiChatContent    `json:"contents"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type GeminiChatCandidate struct {
	Content *GeminiChatContent `json:"content"`
}

type GeminiChatResponse struct {
	Candidates []*GeminiChatCandidate `json:"candidates"`
}

// Text concatenates the parts of the first candidate. ok is false when
// the response carries no candidate content at all.
func (r *GeminiChatResponse) Text() (text string, ok bool) {
	if len(r.Candidates) == 0 || r.Candidates[0] == nil || r.Candidates[0].Content == nil {
		return "", false
	}
	var sb strings.Builder
	for _, part := range r.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	return sb.String(), true
}

type GeminiProvider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

var _ llm.LLMProvider = (*GeminiProvider)(nil)

func NewGeminiProvider(apiKey, baseURL, model string) *GeminiProvider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &GeminiProvider{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		// No client timeout: streams are bounded by the provider's connection lifetime.
		client: &http.Client{},
	}
}

func (p *GeminiProvider) Name() string {
	return "gemini"
}

func toGeminiRole(role string) string {
	if role == llm.RoleUser {
		return llm.RoleUser
	}
	return llm.RoleModel
}

func (p *GeminiProvider) buildRequest(systemPrompt string, history []llm.Message, message string, opts llm.Options) GeminiChatRequest {
	contents := make([]*GeminiChatContent, 0, len(history)+1)
	for _, msg := range history {
		contents = append(contents, &GeminiChatContent{
			Parts: []*GeminiChatParts{{Text: msg.Content}},
			Role:  toGeminiRole(msg.Role),
		})
	}
	contents = append(contents, &GeminiChatContent{
		Parts: []*GeminiChatParts{{Text: message}},
		Role:  llm.RoleUser,
	})

	payload := GeminiChatRequest{Contents: contents}
	if systemPrompt != "" {
		payload.SystemInstruction = &GeminiChatContent{
			Parts: []*GeminiChatParts{{Text: systemPrompt}},
		}
	}

	genCfg := &geminiGenerationConfig{MaxOutputTokens: opts.MaxTokens}
	if opts.Temperature > 0 {
		t := opts.Temperature
		genCfg.Temperature = &t
	}
	if opts.DisableThinking {
		genCfg.ThinkingConfig = &geminiThinkingConfig{ThinkingBudget: 0}
	}
	if genCfg.Temperature != nil || genCfg.MaxOutputTokens > 0 || genCfg.ThinkingConfig != nil {
		payload.GenerationConfig = genCfg
	}
	return payload
}

func (p *GeminiProvider) post(ctx context.Context, url string, payload GeminiChatRequest) (*http.Response, error) {
	payloadJson, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payloadJson))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("x-goog-api-key", p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := p.client.Do(req)
	if err != nil {
		return nil, apperror.WrapNetwork(err, "gemini request failed")
	}

	if res.StatusCode != http.StatusOK {
		defer res.Body.Close()
		resBody, _ := io.ReadAll(res.Body)
		return nil, apperror.Network(res.StatusCode,
			"Gemini API error (%d): %s", res.StatusCode, string(resBody))
	}
	return res, nil
}

func (p *GeminiProvider) Generate(ctx context.Context, systemPrompt, content string, options ...llm.Option) (string, error) {
	opts := llm.ApplyOptions(llm.Options{Model: p.model}, options)
	payload := p.buildRequest(systemPrompt, nil, content, opts)

	url := fmt.Sprintf("%s/models/%s:generateContent", p.baseURL, opts.Model)
	res, err := p.post(ctx, url, payload)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return "", apperror.WrapNetwork(err, "read gemini response")
	}

	var geminiRes GeminiChatResponse
	if err := json.Unmarshal(resBody, &geminiRes); err != nil {
		return "", apperror.Parse("unexpected gemini response: %v", err)
	}
	text, ok := geminiRes.Text()
	if !ok {
		return "", apperror.Parse("gemini response has no candidates")
	}
	return text, nil
}

func (p *GeminiProvider) StreamChat(ctx context.Context, systemPrompt string, history []llm.Message, message string, options ...llm.Option) (llm.Stream, error) {
	opts := llm.ApplyOptions(llm.Options{Model: p.model}, options)
	payload := p.buildRequest(systemPrompt, history, message, opts)

	url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse", p.baseURL, opts.Model)
	res, err := p.post(ctx, url, payload)
	if err != nil {
		return nil, err
	}
	return &geminiStream{body: res.Body, events: llm.NewEventReader(res.Body)}, nil
}

type geminiStream struct {
	body   io.ReadCloser
	events *llm.EventReader
	done   bool
}

func (s *geminiStream) Next() (string, error) {
	for {
		if s.done {
			return "", io.EOF
		}
		data, err := s.events.Next()
		if err == io.EOF {
			s.done = true
			return "", io.EOF
		}
		if err != nil {
			return "", apperror.WrapNetwork(err, "read gemini stream")
		}

		var chunk GeminiChatResponse
		if err := json.Unmarshal(data, &chunk); err != nil {
			// A chunk we cannot decode is still model output.
			return string(data), nil
		}
		text, _ := chunk.Text()
		if text == "" {
			continue
		}
		return text, nil
	}
}

func (s *geminiStream) Close() error {
	s.done = true
	return s.body.Close()
}
