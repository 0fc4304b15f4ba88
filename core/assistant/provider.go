package assistant

import "context"

// Provider is a text-completion backend.
type Provider interface {
	// Generate sends the prompt and returns the completion. When req.Schema is
	// set the provider asks for JSON output matching it.
	Generate(ctx context.Context, req Request) (*Response, error)

	ModelID() string
}

type Request struct {
	System    string
	Messages  []Message
	Schema    *Schema
	MaxTokens int
}

type Message struct {
	Role    Role
	Content string
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema is the JSON schema a structured response must follow.
type Schema struct {
	Name        string // kebab-case, e.g. "article-quiz"
	Description string
	Definition  map[string]any
}

type Response struct {
	Text  string
	Model string
	Usage Usage
}

type Usage struct {
	InputTokens  int
	OutputTokens int
}
