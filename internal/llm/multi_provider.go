package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"school-chatbot/internal/models"
)

// DefaultRequestsPerMinute is used when a provider sets no rate limit.
const DefaultRequestsPerMinute = 30

// ErrNoProviders is returned when no configured provider could be built.
var ErrNoProviders = errors.New("no providers could be initialized")

// slot is one provider in the failover ring.
type slot struct {
	provider Provider
	name     string
	failures int // consecutive
}

// MultiProviderClient sends every request to the active provider and moves
// to the next one in the ring when the active one keeps failing.
type MultiProviderClient struct {
	mu          sync.RWMutex
	slots       []*slot
	active      int
	maxFailures int
	logger      *zap.Logger
}

// MultiProviderConfig lists providers in failover order.
type MultiProviderConfig struct {
	Providers   []ProviderConfig
	MaxFailures int
}

// NewMultiProviderClient builds every configured provider, skipping ones
// that fail to initialize.
func NewMultiProviderClient(cfg MultiProviderConfig, logger *zap.Logger) (*MultiProviderClient, error) {
	providers := make([]Provider, 0, len(cfg.Providers))
	for i, pc := range cfg.Providers {
		p, err := NewProvider(pc, logger)
		if err != nil {
			logger.Error("Skipping LLM provider",
				zap.Int("index", i),
				zap.String("type", string(pc.Type)),
				zap.Error(err))
			continue
		}

		rpm := pc.RequestsPerMinute
		if rpm <= 0 {
			rpm = DefaultRequestsPerMinute
		}
		providers = append(providers, NewRateLimitedProvider(p, rpm))
		logger.Info("LLM provider ready",
			zap.Int("index", i),
			zap.String("type", string(pc.Type)),
			zap.String("model", pc.ModelName),
			zap.Int("requests_per_minute", rpm))
	}
	return NewMultiProviderClientFrom(providers, cfg.MaxFailures, logger)
}

// NewMultiProviderClientFrom wraps already-built providers in failover order.
func NewMultiProviderClientFrom(providers []Provider, maxFailures int, logger *zap.Logger) (*MultiProviderClient, error) {
	if len(providers) == 0 {
		return nil, ErrNoProviders
	}
	if maxFailures <= 0 {
		maxFailures = 3
	}
	slots := make([]*slot, len(providers))
	for i, p := range providers {
		name, _ := p.GetModelInfo()["provider"].(string)
		slots[i] = &slot{provider: p, name: name}
	}
	return &MultiProviderClient{slots: slots, maxFailures: maxFailures, logger: logger}, nil
}

func (c *MultiProviderClient) current() (int, *slot) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active, c.slots[c.active]
}

// fail counts a failure of slot i and rotates away from it when it reached
// maxFailures or hit a rate limit. A concurrent rotation wins.
func (c *MultiProviderClient) fail(i int, rateLimited bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.slots[i]
	s.failures++
	if s.failures < c.maxFailures && !rateLimited {
		return
	}
	s.failures = 0
	if c.active != i {
		return
	}
	c.active = (i + 1) % len(c.slots)
	c.logger.Warn("Switching LLM provider",
		zap.String("from", s.name),
		zap.String("to", c.slots[c.active].name),
		zap.Bool("rate_limited", rateLimited))
}

func (c *MultiProviderClient) succeed(i int) {
	c.mu.Lock()
	c.slots[i].failures = 0
	c.mu.Unlock()
}

// Generate tries the active provider, making at most one attempt per
// provider. A done context stops immediately; a missed deadline is charged to
// the provider that was running.
func (c *MultiProviderClient) Generate(ctx context.Context, req models.GenerationRequest) (string, error) {
	var lastErr error
	for range c.slots {
		i, s := c.current()

		text, err := s.provider.Generate(ctx, req)
		if err == nil {
			c.succeed(i)
			return text, nil
		}
		lastErr = err
		c.logger.Error("LLM provider failed", zap.String("provider", s.name), zap.Error(err))

		if ctx.Err() != nil {
			// a provider that hangs until the deadline still counts against it
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				c.fail(i, false)
			}
			return "", ctx.Err()
		}
		c.fail(i, isRateLimitError(err))
	}
	return "", fmt.Errorf("all providers failed: %w", lastErr)
}

// WarmupTarget returns a Generator for the warmer. It pings the active
// provider directly, skipping its rate limiter, and leaves failure counts and
// the active slot untouched.
func (c *MultiProviderClient) WarmupTarget() Generator {
	return warmupTarget{c: c}
}

type warmupTarget struct {
	c *MultiProviderClient
}

func (w warmupTarget) Generate(ctx context.Context, req models.GenerationRequest) (string, error) {
	_, s := w.c.current()
	p := s.provider
	if rl, ok := p.(*RateLimitedProvider); ok {
		p = rl.provider
	}
	return p.Generate(ctx, req)
}

func isRateLimitError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"429", "quota", "rate limit"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// Close closes every provider and joins their errors.
func (c *MultiProviderClient) Close() error {
	errs := make([]error, 0, len(c.slots))
	for _, s := range c.slots {
		if err := s.provider.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

// GetModelInfo describes the active provider.
func (c *MultiProviderClient) GetModelInfo() map[string]interface{} {
	i, s := c.current()
	info := s.provider.GetModelInfo()

	c.mu.RLock()
	defer c.mu.RUnlock()
	info["provider_index"] = i
	info["total_providers"] = len(c.slots)
	info["failure_count"] = s.failures
	return info
}

// GetProvidersInfo describes every provider in failover order.
func (c *MultiProviderClient) GetProvidersInfo() []map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]map[string]interface{}, 0, len(c.slots))
	for i, s := range c.slots {
		info := s.provider.GetModelInfo()
		info["is_current"] = i == c.active
		info["failure_count"] = s.failures
		out = append(out, info)
	}
	return out
}
