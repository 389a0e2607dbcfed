// Package llm wraps the text-generation service the visit lifecycle
// depends on. Callers hand over a system and a user prompt and get back
// free text that is expected, but not guaranteed, to be JSON.
package llm

import "context"

// Client produces a completion for a system + user prompt pair.
type Client interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
