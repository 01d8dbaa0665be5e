package groq

import (
	"time"

	"go.uber.org/zap"

	"school-chatbot/internal/chatapi"
)

// DefaultBaseURL is Groq's OpenAI-compatible endpoint.
const DefaultBaseURL = "https://api.groq.com/openai/v1"

// Config for Groq client
type Config struct {
	APIKey     string
	BaseURL    string
	ModelName  string // Default: "llama-3.3-70b-versatile"
	MaxRetries int
	RetryDelay time.Duration
}

// NewClient creates a new Groq client
func NewClient(cfg Config, logger *zap.Logger) (*chatapi.Client, error) {
	if cfg.ModelName == "" {
		cfg.ModelName = "llama-3.3-70b-versatile"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	return chatapi.NewClient(chatapi.Config{
		Provider:   "groq",
		BaseURL:    cfg.BaseURL,
		APIKey:     cfg.APIKey,
		ModelName:  cfg.ModelName,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
	}, logger)
}
