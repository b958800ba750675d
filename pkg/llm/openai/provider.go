package openai

import (
	"context"
	"errors"
	"fmt"
	"io"

	"ai-chat-be/pkg/llm"

	goopenai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider speaks the OpenAI chat-completions protocol. A custom base
// URL makes it cover OpenAI-compatible vendors (DeepSeek, OpenRouter, vLLM).
type OpenAIProvider struct {
	client    *goopenai.Client
	modelName string
}

var _ llm.StreamProvider = &OpenAIProvider{}

func NewOpenAIProvider(apiKey, modelName, baseURL string) *OpenAIProvider {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{
		client:    goopenai.NewClientWithConfig(cfg),
		modelName: modelName,
	}
}

func (p *OpenAIProvider) ModelId() string {
	return p.modelName
}

func (p *OpenAIProvider) buildMessages(history []llm.Message) []goopenai.ChatCompletionMessage {
	messages := make([]goopenai.ChatCompletionMessage, len(history))
	for i, msg := range history {
		role := msg.Role
		if role == "model" {
			role = goopenai.ChatMessageRoleAssistant
		}
		messages[i] = goopenai.ChatCompletionMessage{
			Role:    role,
			Content: msg.Content,
		}
	}
	return messages
}

// StreamChat maps the upstream delta stream onto provider events. The final
// chunk (empty choices, usage set) becomes the usage event; io.EOF becomes
// done.
func (p *OpenAIProvider) StreamChat(ctx context.Context, history []llm.Message, opts ...llm.Option) (<-chan llm.Event, error) {
	options := llm.BuildOptions(opts...)

	model := p.modelName
	if options.Model != "" {
		model = options.Model
	}

	req := goopenai.ChatCompletionRequest{
		Model:       model,
		Messages:    p.buildMessages(history),
		Temperature: float32(options.Temperature),
		Stream:      true,
		StreamOptions: &goopenai.StreamOptions{
			IncludeUsage: true,
		},
	}
	if options.MaxTokens > 0 {
		req.MaxTokens = options.MaxTokens
	}

	stream, err := p.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create completion stream: %w", err)
	}

	events := make(chan llm.Event)
	go func() {
		defer close(events)
		defer stream.Close()

		var usageSent bool
		for {
			chunk, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				events <- llm.Event{Type: llm.EventDone}
				return
			}
			if err != nil {
				events <- llm.Event{Type: llm.EventError, Err: fmt.Errorf("recv stream: %w", err)}
				events <- llm.Event{Type: llm.EventDone}
				return
			}

			if chunk.Usage != nil && !usageSent {
				usageSent = true
				events <- llm.Event{Type: llm.EventUsage, Usage: &llm.Usage{
					InputTokens:  chunk.Usage.PromptTokens,
					OutputTokens: chunk.Usage.CompletionTokens,
					TotalTokens:  chunk.Usage.TotalTokens,
				}}
			}

			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta

			if delta.ReasoningContent != "" {
				events <- llm.Event{Type: llm.EventReasoningDelta, Text: delta.ReasoningContent}
			}
			if delta.Content != "" {
				events <- llm.Event{Type: llm.EventTextDelta, Text: delta.Content}
			}
			for _, call := range delta.ToolCalls {
				events <- llm.Event{
					Type:       llm.EventToolCall,
					ToolCallId: call.ID,
					ToolName:   call.Function.Name,
					ToolInput:  call.Function.Arguments,
				}
			}
		}
	}()

	if options.SmoothWords {
		return llm.SmoothEvents(events), nil
	}
	return events, nil
}

func (p *OpenAIProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	options := llm.BuildOptions(opts...)

	model := p.modelName
	if options.Model != "" {
		model = options.Model
	}

	req := goopenai.ChatCompletionRequest{
		Model: model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: float32(options.Temperature),
	}
	if options.MaxTokens > 0 {
		req.MaxTokens = options.MaxTokens
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("create completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
