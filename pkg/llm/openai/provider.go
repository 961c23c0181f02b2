package openai

import (
	"context"
	"errors"
	"io"
	"net/http"

	"codepilot-be/pkg/apperror"
	"codepilot-be/pkg/llm"

	goopenai "github.com/sashabaranov/go-openai"
)

const DefaultModel = "gpt-4o-mini"

type OpenAIProvider struct {
	client *goopenai.Client
	model  string
}

var _ llm.LLMProvider = (*OpenAIProvider)(nil)

// NewOpenAIProvider talks to the OpenAI chat completions API, or to any
// compatible endpoint when baseURL is set.
func NewOpenAIProvider(apiKey, baseURL, model string) *OpenAIProvider {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &OpenAIProvider{
		client: goopenai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

func toChatMessages(systemPrompt string, history []llm.Message, message string) []goopenai.ChatCompletionMessage {
	msgs := make([]goopenai.ChatCompletionMessage, 0, len(history)+2)
	if systemPrompt != "" {
		msgs = append(msgs, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleSystem, Content: systemPrompt})
	}
	for _, m := range history {
		role := goopenai.ChatMessageRoleUser
		if m.Role != llm.RoleUser {
			role = goopenai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, goopenai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return append(msgs, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser, Content: message})
}

func (p *OpenAIProvider) request(systemPrompt string, history []llm.Message, message string, options []llm.Option) goopenai.ChatCompletionRequest {
	opts := llm.ApplyOptions(llm.Options{Model: p.model}, options)
	return goopenai.ChatCompletionRequest{
		Model:       opts.Model,
		Messages:    toChatMessages(systemPrompt, history, message),
		MaxTokens:   opts.MaxTokens,
		Temperature: float32(opts.Temperature),
	}
}

func (p *OpenAIProvider) Generate(ctx context.Context, systemPrompt, content string, options ...llm.Option) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, p.request(systemPrompt, nil, content, options))
	if err != nil {
		return "", TranslateError(err)
	}
	if len(resp.Choices) == 0 {
		return "", apperror.Parse("no completion choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *OpenAIProvider) StreamChat(ctx context.Context, systemPrompt string, history []llm.Message, message string, options ...llm.Option) (llm.Stream, error) {
	req := p.request(systemPrompt, history, message, options)
	req.Stream = true

	stream, err := p.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, TranslateError(err)
	}
	return &completionStream{stream: stream}, nil
}

type completionStream struct {
	stream *goopenai.ChatCompletionStream
}

func (s *completionStream) Next() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		if err != nil {
			return "", TranslateError(err)
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
			continue
		}
		return resp.Choices[0].Delta.Content, nil
	}
}

func (s *completionStream) Close() error {
	s.stream.Close()
	return nil
}

// TranslateError maps go-openai failures onto apperror.Network.
func TranslateError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return apperror.Network(apiErr.HTTPStatusCode, "openai api error (%d): %s", apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return apperror.Network(reqErr.HTTPStatusCode, "openai request error (%d): %v", reqErr.HTTPStatusCode, reqErr.Err)
	}
	return apperror.Network(http.StatusBadGateway, "openai: %v", err)
}
