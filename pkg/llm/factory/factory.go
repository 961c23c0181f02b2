package factory

import (
	"fmt"

	"codepilot-be/internal/config"
	"codepilot-be/pkg/llm"
	"codepilot-be/pkg/llm/gemini"
	"codepilot-be/pkg/llm/huggingface"
	"codepilot-be/pkg/llm/ollama"
	"codepilot-be/pkg/llm/openai"
)

// NewLLMProvider resolves the configured chat backend once at startup.
// A backend missing its credentials is returned as an UnconfiguredProvider
// together with a Status describing why, so callers fail fast per request.
func NewLLMProvider(cfg config.AIConfig, keys config.APIKeys) (llm.LLMProvider, llm.Status) {
	switch cfg.LLMProvider {
	case "", "gemini":
		if keys.GoogleGemini == "" {
			return unconfigured("gemini", "API_KEY environment variable not set. Please configure it to use the application.")
		}
		return gemini.NewGeminiProvider(keys.GoogleGemini, "", cfg.LLMModel), llm.Status{IsConfigured: true}
	case "ollama":
		return ollama.NewOllamaProvider(cfg.OllamaBaseURL, cfg.LLMModel), llm.Status{IsConfigured: true}
	case "huggingface", "hf":
		if keys.HuggingFace == "" {
			return unconfigured("huggingface", "HF_TOKEN environment variable not set. Please configure it to use the application.")
		}
		return huggingface.NewHuggingFaceProvider(keys.HuggingFace, cfg.HuggingFaceBaseURL, cfg.LLMModel), llm.Status{IsConfigured: true}
	case "openai":
		if keys.OpenAI == "" {
			return unconfigured("openai", "OPENAI_API_KEY environment variable not set. Please configure it to use the application.")
		}
		return openai.NewOpenAIProvider(keys.OpenAI, cfg.OpenAIBaseURL, cfg.LLMModel), llm.Status{IsConfigured: true}
	default:
		return unconfigured(cfg.LLMProvider, fmt.Sprintf("unsupported LLM provider: %s", cfg.LLMProvider))
	}
}

func unconfigured(name, reason string) (llm.LLMProvider, llm.Status) {
	return llm.NewUnconfiguredProvider(name, reason), llm.Status{IsConfigured: false, Error: reason}
}
