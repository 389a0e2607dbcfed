package llm

import (
	"context"

	"github.com/reprocare/reprocare/pkg/logging"
)

// FallbackClient wraps a primary completion client with the offline stub.
// If the primary fails, it automatically retries with the stub, so a
// completion never fails outright. With a nil primary every call goes
// straight to the stub (demo mode).
type FallbackClient struct {
	primary Client
	stub    Client
	logger  *logging.Logger
}

// NewFallbackClient creates a fallback-enabled completion client.
func NewFallbackClient(primary Client, logger *logging.Logger) *FallbackClient {
	if logger == nil {
		logger = logging.Default()
	}
	return &FallbackClient{
		primary: primary,
		stub:    NewStubClient(),
		logger:  logger,
	}
}

// Complete sends the prompts to the primary client and degrades to the
// deterministic stub on any error.
func (c *FallbackClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if c.primary == nil {
		return c.stub.Complete(ctx, systemPrompt, userPrompt)
	}

	text, err := c.primary.Complete(ctx, systemPrompt, userPrompt)
	if err == nil {
		return text, nil
	}

	c.logger.Warn("primary completion failed, serving stub response",
		"error", err.Error(),
	)
	return c.stub.Complete(ctx, systemPrompt, userPrompt)
}
