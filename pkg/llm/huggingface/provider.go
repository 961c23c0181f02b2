package huggingface

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
	DefaultBaseURL = "https://router.huggingface.co/v1"
	DefaultModel   = "meta-llama/Llama-3.1-8B-Instruct"
)

type HuggingFaceProvider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

var _ llm.LLMProvider = (*HuggingFaceProvider)(nil)

// Request Payload Structure (OpenAI Compatible)
type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []llm.Message `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
	Stream    bool          `json:"stream,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewHuggingFaceProvider(apiKey, baseURL, model string) *HuggingFaceProvider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &HuggingFaceProvider{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{},
	}
}

func (p *HuggingFaceProvider) Name() string {
	return "huggingface"
}

func (p *HuggingFaceProvider) messages(systemPrompt string, history []llm.Message, message string) []llm.Message {
	msgs := make([]llm.Message, 0, len(history)+2)
	if systemPrompt != "" {
		msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	}
	for _, m := range history {
		role := m.Role
		if role == llm.RoleModel {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.Message{Role: role, Content: m.Content})
	}
	return append(msgs, llm.Message{Role: llm.RoleUser, Content: message})
}

func (p *HuggingFaceProvider) send(ctx context.Context, reqBody chatRequest) (*http.Response, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/chat/completions", p.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", p.apiKey))
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, apperror.WrapNetwork(err, "huggingface request failed")
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, apperror.Network(resp.StatusCode, "huggingface api error (status %d): %s", resp.StatusCode, string(bodyBytes))
	}
	return resp, nil
}

func (p *HuggingFaceProvider) Generate(ctx context.Context, systemPrompt, content string, options ...llm.Option) (string, error) {
	opts := llm.ApplyOptions(llm.Options{Model: p.model, MaxTokens: 500}, options)

	resp, err := p.send(ctx, chatRequest{
		Model:     opts.Model,
		Messages:  p.messages(systemPrompt, nil, content),
		MaxTokens: opts.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", apperror.Parse("failed to decode response: %v", err)
	}
	if chatResp.Error != nil {
		return "", apperror.Network(http.StatusBadGateway, "huggingface api returned error: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return "", apperror.Parse("empty choices from huggingface api")
	}
	return chatResp.Choices[0].Message.Content, nil
}

func (p *HuggingFaceProvider) StreamChat(ctx context.Context, systemPrompt string, history []llm.Message, message string, options ...llm.Option) (llm.Stream, error) {
	opts := llm.ApplyOptions(llm.Options{Model: p.model}, options)

	resp, err := p.send(ctx, chatRequest{
		Model:     opts.Model,
		Messages:  p.messages(systemPrompt, history, message),
		MaxTokens: opts.MaxTokens,
		Stream:    true,
	})
	if err != nil {
		return nil, err
	}
	return &chatStream{body: resp.Body, events: llm.NewEventReader(resp.Body)}, nil
}

type chatStream struct {
	body   io.ReadCloser
	events *llm.EventReader
	done   bool
}

func (s *chatStream) Next() (string, error) {
	for !s.done {
		data, err := s.events.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", apperror.WrapNetwork(err, "read huggingface stream")
		}
		if string(data) == "[DONE]" {
			break
		}

		var chunk chatResponse
		if err := json.Unmarshal(data, &chunk); err != nil {
			return "", apperror.Parse("decode huggingface chunk: %v", err)
		}
		if chunk.Error != nil {
			s.done = true
			return "", apperror.Network(http.StatusBadGateway, "huggingface api returned error: %s", chunk.Error.Message)
		}
		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			return chunk.Choices[0].Delta.Content, nil
		}
	}
	s.done = true
	return "", io.EOF
}

func (s *chatStream) Close() error {
	s.done = true
	return s.body.Close()
}
