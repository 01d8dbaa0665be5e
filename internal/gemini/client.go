package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"school-chatbot/internal/models"
	"school-chatbot/internal/prompt"
)

const defaultModel = "gemini-2.0-flash"

var errEmptyResponse = errors.New("empty response from gemini")

// Config for Gemini client
type Config struct {
	APIKey     string
	ModelName  string
	MaxRetries int
	RetryDelay time.Duration
}

func (c *Config) applyDefaults() {
	if c.ModelName == "" {
		c.ModelName = defaultModel
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 2 * time.Second
	}
}

// Client generates advice with a Gemini model.
type Client struct {
	cfg    Config
	client *genai.Client
	model  *genai.GenerativeModel
	logger *zap.Logger
}

// NewClient creates a new Gemini client
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	cfg.applyDefaults()

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	logger.Info("Gemini client initialized",
		zap.String("model", cfg.ModelName),
		zap.Int("max_retries", cfg.MaxRetries))

	return &Client{
		cfg:    cfg,
		client: client,
		model:  advisorModel(client, cfg.ModelName),
		logger: logger,
	}, nil
}

// advisorModel keeps replies short and conservative.
func advisorModel(client *genai.Client, name string) *genai.GenerativeModel {
	model := client.GenerativeModel(name)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(prompt.SystemInstruction)},
	}
	model.GenerationConfig = genai.GenerationConfig{
		Temperature:     genai.Ptr[float32](0.3),
		TopP:            genai.Ptr[float32](0.9),
		TopK:            genai.Ptr[int32](40),
		MaxOutputTokens: genai.Ptr[int32](500),
	}
	return model
}

func (c *Client) Close() error {
	return c.client.Close()
}

// Generate produces a reply for one role-tagged prompt, retrying transient
// failures after RetryDelay.
func (c *Client) Generate(ctx context.Context, req models.GenerationRequest) (string, error) {
	input := genai.Text(fmt.Sprintf("User (%s): %s", req.Role, req.Prompt))

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(c.cfg.RetryDelay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		text, err := c.generateOnce(ctx, input)
		if err == nil {
			return text, nil
		}
		lastErr = err
		c.logger.Warn("Gemini attempt failed", zap.Int("attempt", attempt), zap.Error(err))
	}
	return "", fmt.Errorf("failed after %d attempts: %w", c.cfg.MaxRetries, lastErr)
}

func (c *Client) generateOnce(ctx context.Context, input genai.Text) (string, error) {
	resp, err := c.model.GenerateContent(ctx, input)
	if err != nil {
		return "", fmt.Errorf("gemini API error: %w", err)
	}
	text := responseText(resp)
	if text == "" {
		return "", errEmptyResponse
	}
	return text, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return strings.TrimSpace(b.String())
}

// GetModelInfo returns model information
func (c *Client) GetModelInfo() map[string]interface{} {
	return map[string]interface{}{
		"provider":    "gemini",
		"model":       c.cfg.ModelName,
		"max_retries": c.cfg.MaxRetries,
		"retry_delay": c.cfg.RetryDelay.String(),
	}
}
