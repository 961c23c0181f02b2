package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	SMTP     SMTPConfig
	Keys     APIKeys
	Ai       AIConfig
	Auth     AuthConfig
	Storage  StorageConfig
	Tracing  TracingConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type SMTPConfig struct {
	Host       string
	Port       int
	Email      string
	Password   string
	SenderName string
}

type APIKeys struct {
	GoogleGemini string
	GoogleImagen string // falls back to GoogleGemini
	HuggingFace  string
	OpenAI       string
	MailTopic    string
}

type AIConfig struct {
	LLMProvider        string // "gemini", "ollama", "huggingface", "openai"
	LLMModel           string
	OllamaBaseURL      string
	HuggingFaceBaseURL string
	OpenAIBaseURL      string
	ImageProvider      string // "GOOGLE" or "HF"
	ImageModel         string
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  string
}

type TracingConfig struct {
	Enabled     bool
	Endpoint    string // OTLP HTTP host:port
	ServiceName string
}

type StorageConfig struct {
	// KVBackend selects where sessions and preferences live: "redis", "postgres" or "memory".
	KVBackend string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	gemini := getEnv("GEMINI_API_KEY", getEnv("GOOGLE_GEMINI_API_KEY", ""))

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "5000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:5000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getEnvAsInt("SMTP_PORT", 587),
			Email:      getEnv("SMTP_EMAIL", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			SenderName: getEnv("SMTP_SENDER_NAME", "CodePilot"),
		},
		Keys: APIKeys{
			GoogleGemini: gemini,
			GoogleImagen: getEnv("GOOGLE_API_KEY", gemini),
			HuggingFace:  getEnv("HF_TOKEN", ""),
			OpenAI:       getEnv("OPENAI_API_KEY", ""),
			MailTopic:    getEnv("ACCOUNT_MAIL_TOPIC_NAME", "ACCOUNT_MAIL"),
		},
		Ai: AIConfig{
			LLMProvider:        strings.ToLower(getEnv("LLM_PROVIDER", "gemini")),
			LLMModel:           getEnv("LLM_MODEL", ""),
			OllamaBaseURL:      getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			HuggingFaceBaseURL: getEnv("HF_BASE_URL", ""),
			OpenAIBaseURL:      getEnv("OPENAI_BASE_URL", ""),
			ImageProvider:      strings.ToUpper(getEnv("IMAGE_PROVIDER", "GOOGLE")),
			ImageModel:         getEnv("IMAGE_MODEL", ""),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", "default_secret"),
			TokenTTL:  getEnv("JWT_TTL", "1h"),
		},
		Storage: StorageConfig{
			KVBackend: strings.ToLower(getEnv("KV_BACKEND", "redis")),
		},
		Tracing: TracingConfig{
			Enabled:     getEnv("OTEL_ENABLED", "false") == "true",
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "codepilot-backend"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}
