package openrouter

import (
	"time"

	"go.uber.org/zap"

	"school-chatbot/internal/chatapi"
)

// DefaultBaseURL is the OpenRouter API endpoint.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

// Config holds configuration for the OpenRouter client.
type Config struct {
	APIKey     string
	BaseURL    string
	ModelName  string // Default: "meta-llama/llama-3.3-70b-instruct:free"
	MaxRetries int
	RetryDelay time.Duration
}

// NewClient creates a new OpenRouter client. OpenRouter asks callers to
// identify themselves with the referer and title headers.
func NewClient(cfg Config, logger *zap.Logger) (*chatapi.Client, error) {
	if cfg.ModelName == "" {
		cfg.ModelName = "meta-llama/llama-3.3-70b-instruct:free"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	return chatapi.NewClient(chatapi.Config{
		Provider:   "openrouter",
		BaseURL:    cfg.BaseURL,
		APIKey:     cfg.APIKey,
		ModelName:  cfg.ModelName,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Headers: map[string]string{
			"HTTP-Referer": "https://github.com/school-chatbot",
			"X-Title":      "School Chatbot",
		},
	}, logger)
}
