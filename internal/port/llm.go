package port

import "context"

// LLM is a chat model used to draft episode scripts and show notes.
type LLM interface {
	// Generate answers a single user prompt.
	Generate(ctx context.Context, prompt string) (string, error)

	// GenerateWithSystem answers userPrompt under the given system prompt.
	GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	ModelName() string
}
