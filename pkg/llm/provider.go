package llm

import (
	"context"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
}

// EventType enumerates the provider event kinds. The set is closed; providers
// map anything they do not recognize to a no-op before it reaches this layer.
type EventType string

const (
	EventTextDelta      EventType = "text-delta"
	EventReasoningDelta EventType = "reasoning-delta"
	EventToolCall       EventType = "tool-call"
	EventToolResult     EventType = "tool-result"
	EventUsage          EventType = "usage"
	EventError          EventType = "error"
	EventDone           EventType = "done"
)

// Usage is the aggregate token accounting reported once per generation.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Event is one element of a generation stream. Exactly one field besides
// Type is meaningful, depending on Type.
type Event struct {
	Type EventType

	// Text carries text-delta and reasoning-delta payloads.
	Text string

	ToolCallId string
	ToolName   string
	ToolInput  string
	ToolOutput string

	Usage *Usage
	Err   error
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model

	// MaxSteps bounds model/tool round-trips in one generation. The current
	// providers carry no tool executor and always run a single step, so the
	// bound has no effect until one does; callers set it so tool-enabled
	// providers inherit the ceiling without an interface change.
	MaxSteps int

	SmoothWords bool // Re-chunk deltas at word granularity
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithMaxSteps(n int) Option {
	return func(o *Options) {
		o.MaxSteps = n
	}
}

func WithWordSmoothing() Option {
	return func(o *Options) {
		o.SmoothWords = true
	}
}

// BuildOptions folds option funcs over provider defaults.
func BuildOptions(opts ...Option) *Options {
	options := &Options{
		Temperature: 0.7,
		MaxSteps:    5,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// StreamProvider defines the contract for any streaming LLM backend.
type StreamProvider interface {
	// StreamChat starts a generation and returns a channel of events. The
	// channel carries zero or more delta events, at most one usage event,
	// then exactly one terminal done event (preceded by an error event on
	// failure), after which it is closed. Cancelling ctx stops upstream
	// consumption.
	StreamChat(ctx context.Context, history []Message, options ...Option) (<-chan Event, error)

	// Generate sends a single prompt to the model and waits for the full
	// completion (used for title generation).
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)

	// ModelId reports the configured model identifier, used to key usage
	// enrichment lookups.
	ModelId() string
}
