package out

import "context"

// Chat message roles.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// ChatMessage is one turn of a classifier prompt.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatModel is the outbound port for the text-understanding collaborator.
//
// Invoke sends the prompt and returns the model's structured JSON answer
// as a generic mapping. A malformed or non-JSON answer yields an empty
// mapping, never an error: callers must treat an empty mapping as
// "classification unavailable".
type ChatModel interface {
	Invoke(ctx context.Context, messages []ChatMessage) (map[string]any, error)
}
