package llm

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"school-chatbot/internal/models"
	"school-chatbot/internal/prompt"
)

// Generator is the part of a Provider the warmer needs.
type Generator interface {
	Generate(ctx context.Context, req models.GenerationRequest) (string, error)
}

// Warmer periodically sends a minimal prompt so the generative backend keeps
// its model loaded. Failures are logged and retried on the next tick; they
// never reach request handling.
type Warmer struct {
	generator Generator
	interval  time.Duration
	timeout   time.Duration
	logger    *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWarmer creates a stopped warmer. timeout bounds each ping and defaults
// to the interval.
func NewWarmer(generator Generator, interval, timeout time.Duration, logger *zap.Logger) *Warmer {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if timeout <= 0 || timeout > interval {
		timeout = interval
	}
	return &Warmer{
		generator: generator,
		interval:  interval,
		timeout:   timeout,
		logger:    logger,
	}
}

// Start launches the background loop. It pings once immediately, then every
// interval until Stop is called or ctx is done. Calling Start on a running
// warmer does nothing.
func (w *Warmer) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		return
	}
	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})

	go w.run(ctx, w.done)
}

// Stop cancels the loop and waits for it to exit. It is safe to call more
// than once.
func (w *Warmer) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (w *Warmer) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	w.logger.Info("LLM warmer started.", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.ping(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("LLM warmer stopped.")
			return
		case <-ticker.C:
			w.ping(ctx)
		}
	}
}

func (w *Warmer) ping(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	start := time.Now()
	_, err := w.generator.Generate(pingCtx, models.GenerationRequest{
		Role:   models.RoleStudent,
		Prompt: prompt.Warmup,
	})
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Warn("LLM warmup failed", zap.Error(err))
		}
		return
	}
	w.logger.Debug("LLM warmup ok", zap.Duration("took", time.Since(start)))
}
