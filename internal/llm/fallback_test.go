package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/reprocare/reprocare/pkg/logging"
)

type scriptedClient struct {
	text  string
	err   error
	calls int
}

func (c *scriptedClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	c.calls++
	return c.text, c.err
}

func TestFallbackUsesPrimary(t *testing.T) {
	primary := &scriptedClient{text: `{"ok": true}`}
	client := NewFallbackClient(primary, logging.New("error", "text"))

	text, err := client.Complete(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if text != `{"ok": true}` {
		t.Fatalf("expected primary response, got %q", text)
	}
	if primary.calls != 1 {
		t.Fatalf("expected one primary call, got %d", primary.calls)
	}
}

func TestFallbackDegradesToStubOnError(t *testing.T) {
	primary := &scriptedClient{err: errors.New("rate limited")}
	client := NewFallbackClient(primary, logging.New("error", "text"))

	text, err := client.Complete(context.Background(), "intake conversion", "Q: Why?")
	if err != nil {
		t.Fatalf("fallback must absorb the primary error, got %v", err)
	}
	if !strings.Contains(text, "birth control consult") {
		t.Fatalf("expected stubbed intake response, got %q", text)
	}
}

func TestFallbackWithoutPrimaryServesStub(t *testing.T) {
	client := NewFallbackClient(nil, logging.New("error", "text"))

	text, err := client.Complete(context.Background(), "intake conversion", "Q: Why?")
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if !strings.Contains(text, "intake_structured") {
		t.Fatalf("expected stubbed intake response, got %q", text)
	}
}
