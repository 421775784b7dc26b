// Package model defines the capability surface of chat model backends and
// the registry that resolves them by name.
package model

import (
	"context"

	"github.com/shopspring/decimal"
)

// Role identifies the author of a prompt turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in the prompt history sent to a backend.
type Turn struct {
	Role     Role
	Content  string
	ImageURL string
}

// Prompt is the full input for one completion: an optional system prompt and
// the ordered turns, last of which is the current user message.
type Prompt struct {
	System string
	Turns  []Turn
}

// Backend is a chat model capable of streaming completions. Implementations
// return two channels: fragments arrive in order on the first and the
// channel closes on natural end of stream; a terminal failure arrives on the
// second. At most one of close-of-fragments and error fires.
type Backend interface {
	Name() string
	SupportsImages() bool
	Stream(ctx context.Context, prompt Prompt) (<-chan string, <-chan error, error)
}

// Pricing is implemented by backends that know their per-million-token
// prices, used for usage accounting.
type Pricing interface {
	PromptPrice() decimal.Decimal
	CompletionPrice() decimal.Decimal
}
