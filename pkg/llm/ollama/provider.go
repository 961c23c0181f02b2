package ollama

import (
	"bufio"
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
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3"
)

type OllamaProvider struct {
	BaseURL   string
	ModelName string
	Client    *http.Client
}

// Ensure OllamaProvider implements LLMProvider
var _ llm.LLMProvider = &OllamaProvider{}

func NewOllamaProvider(baseURL, modelName string) *OllamaProvider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if modelName == "" {
		modelName = DefaultModel
	}
	return &OllamaProvider{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		ModelName: modelName,
		Client:    &http.Client{},
	}
}

// --- Request/Response structs (Internal to this package) ---

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Think    *bool           `json:"think,omitempty"`
	Options  *ollamaOptions  `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatResponse struct {
	Model   string        `json:"model"`
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
	Error   string        `json:"error,omitempty"`
}

func (o *OllamaProvider) Name() string {
	return "ollama"
}

func (o *OllamaProvider) buildRequest(systemPrompt string, history []llm.Message, message string, options llm.Options, stream bool) ollamaChatRequest {
	messages := make([]ollamaMessage, 0, len(history)+2)
	if systemPrompt != "" {
		messages = append(messages, ollamaMessage{Role: llm.RoleSystem, Content: systemPrompt})
	}
	for _, msg := range history {
		role := msg.Role
		if role == llm.RoleModel {
			role = llm.RoleAssistant
		}
		messages = append(messages, ollamaMessage{Role: role, Content: msg.Content})
	}
	messages = append(messages, ollamaMessage{Role: llm.RoleUser, Content: message})

	reqPayload := ollamaChatRequest{
		Model:    options.Model,
		Messages: messages,
		Stream:   stream,
		Options: &ollamaOptions{
			Temperature: options.Temperature,
			NumPredict:  options.MaxTokens,
		},
	}
	if options.DisableThinking {
		think := false
		reqPayload.Think = &think
	}
	return reqPayload
}

func (o *OllamaProvider) send(ctx context.Context, payload ollamaChatRequest) (*http.Response, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.BaseURL+"/api/chat", bytes.NewBuffer(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.Client.Do(req)
	if err != nil {
		return nil, apperror.WrapNetwork(err, "ollama request failed")
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, apperror.Network(resp.StatusCode, "ollama error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}
	return resp, nil
}

func (o *OllamaProvider) Generate(ctx context.Context, systemPrompt, content string, opts ...llm.Option) (string, error) {
	options := llm.ApplyOptions(llm.Options{Temperature: 0.7, Model: o.ModelName}, opts)

	resp, err := o.send(ctx, o.buildRequest(systemPrompt, nil, content, options, false))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var ollamaResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return "", apperror.Parse("unmarshal ollama response: %v", err)
	}
	if ollamaResp.Error != "" {
		return "", apperror.Network(http.StatusBadGateway, "ollama error: %s", ollamaResp.Error)
	}
	return ollamaResp.Message.Content, nil
}

func (o *OllamaProvider) StreamChat(ctx context.Context, systemPrompt string, history []llm.Message, message string, opts ...llm.Option) (llm.Stream, error) {
	options := llm.ApplyOptions(llm.Options{Temperature: 0.7, Model: o.ModelName}, opts)

	resp, err := o.send(ctx, o.buildRequest(systemPrompt, history, message, options, true))
	if err != nil {
		return nil, err
	}
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &ollamaStream{body: resp.Body, scanner: scanner}, nil
}

// ollamaStream decodes the newline-delimited JSON objects of /api/chat.
type ollamaStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	done    bool
}

func (s *ollamaStream) Next() (string, error) {
	for !s.done {
		if !s.scanner.Scan() {
			s.done = true
			if err := s.scanner.Err(); err != nil {
				return "", apperror.WrapNetwork(err, "read ollama stream")
			}
			break
		}
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var chunk ollamaChatResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			return "", apperror.Parse("decode ollama chunk: %v", err)
		}
		if chunk.Error != "" {
			s.done = true
			return "", apperror.Network(http.StatusBadGateway, "ollama error: %s", chunk.Error)
		}
		if chunk.Done {
			s.done = true
		}
		if chunk.Message.Content != "" {
			return chunk.Message.Content, nil
		}
	}
	return "", io.EOF
}

func (s *ollamaStream) Close() error {
	s.done = true
	return s.body.Close()
}
