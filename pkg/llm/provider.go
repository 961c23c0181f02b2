package llm

import (
	"context"
)

const (
	RoleUser      = "user"
	RoleModel     = "model"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message represents a chat message in a provider-agnostic format.
// Role is "user" or "model"; backends map "model" to their own name.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature     float64
	MaxTokens       int
	Model           string // Override default model
	DisableThinking bool
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

// WithoutThinking asks reasoning models to answer directly (title generation, build).
func WithoutThinking() Option {
	return func(o *Options) {
		o.DisableThinking = true
	}
}

// ApplyOptions folds options over a backend's defaults.
func ApplyOptions(defaults Options, options []Option) Options {
	for _, o := range options {
		o(&defaults)
	}
	return defaults
}

// Stream is a finite, single-pass sequence of text chunks.
// Next returns io.EOF once the response is complete. It is not restartable.
type Stream interface {
	Next() (string, error)
	Close() error
}

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	Name() string

	// Generate sends a single prompt under a system instruction.
	Generate(ctx context.Context, systemPrompt, content string, options ...Option) (string, error)

	// StreamChat continues history with message and streams the answer.
	StreamChat(ctx context.Context, systemPrompt string, history []Message, message string, options ...Option) (Stream, error)
}

// Status is the configuration state resolved at startup.
type Status struct {
	IsConfigured bool
	Error        string
}
