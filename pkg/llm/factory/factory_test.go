package factory

import (
	"context"
	"testing"

	"codepilot-be/internal/config"
	"codepilot-be/pkg/apperror"

	"github.com/stretchr/testify/assert"
)

func TestNewLLMProvider(t *testing.T) {
	tests := []struct {
		name       string
		provider   string
		keys       config.APIKeys
		wantName   string
		configured bool
	}{
		{"gemini with key", "gemini", config.APIKeys{GoogleGemini: "k"}, "gemini", true},
		{"gemini without key", "gemini", config.APIKeys{}, "gemini", false},
		{"default is gemini", "", config.APIKeys{GoogleGemini: "k"}, "gemini", true},
		{"ollama needs no key", "ollama", config.APIKeys{}, "ollama", true},
		{"huggingface without token", "huggingface", config.APIKeys{}, "huggingface", false},
		{"openai with key", "openai", config.APIKeys{OpenAI: "sk"}, "openai", true},
		{"unknown", "mystery", config.APIKeys{GoogleGemini: "k"}, "mystery", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, status := NewLLMProvider(config.AIConfig{LLMProvider: tt.provider}, tt.keys)
			assert.Equal(t, tt.wantName, p.Name())
			assert.Equal(t, tt.configured, status.IsConfigured)
			if !tt.configured {
				assert.NotEmpty(t, status.Error)
				_, err := p.Generate(context.Background(), "", "x")
				assert.True(t, apperror.IsConfiguration(err))
			}
		})
	}
}
