package stream

import (
	"context"
	"errors"
	"testing"
	"time"

	"ai-chat-be/pkg/llm"
	"ai-chat-be/pkg/pricing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func collect(ch <-chan UIEvent) []UIEvent {
	var out []UIEvent
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}

func feedEvents(events ...llm.Event) <-chan llm.Event {
	ch := make(chan llm.Event, len(events))
	for _, ev := range events {
		ch <- ev
	}
	close(ch)
	return ch
}

func TestTranscoderHappyPath(t *testing.T) {
	var finish Finish
	tr := &Transcoder{
		Catalog: pricing.NewCatalog(pricing.DefaultRates(), time.Hour),
		ModelId: "deepseek-chat",
		OnFinish: func(f Finish) {
			finish = f
		},
	}

	chatId := uuid.New()
	got := collect(tr.Run(context.Background(), chatId, feedEvents(
		llm.Event{Type: llm.EventReasoningDelta, Text: "hmm"},
		llm.Event{Type: llm.EventTextDelta, Text: "Hello "},
		llm.Event{Type: llm.EventTextDelta, Text: "world"},
		llm.Event{Type: llm.EventUsage, Usage: &llm.Usage{InputTokens: 1000, OutputTokens: 2000, TotalTokens: 3000}},
		llm.Event{Type: llm.EventDone},
	)))

	assert.Len(t, got, 5)
	assert.Equal(t, EventReasoningDelta, got[0].Type)
	assert.Equal(t, "Hello ", got[1].Delta)
	assert.Equal(t, "world", got[2].Delta)
	assert.Equal(t, EventUsage, got[3].Type)
	assert.Equal(t, EventDone, got[4].Type)

	// Usage is enriched once from the catalog.
	usage := got[3].Usage
	assert.Equal(t, "deepseek-chat", usage.ModelId)
	assert.Equal(t, 1000, usage.InputTokens)
	assert.Equal(t, "0.00027", usage.InputCostUSD)
	assert.Equal(t, "0.0022", usage.OutputCostUSD)
	assert.Equal(t, "0.00247", usage.TotalCostUSD)

	// OnFinish carries the accumulated assistant message.
	assert.False(t, finish.Failed)
	assert.Equal(t, usage, finish.Usage)
	assert.Len(t, finish.Messages, 1)
	assert.Equal(t, chatId, finish.Messages[0].ChatId)
	parts := finish.Messages[0].Parts
	assert.Len(t, parts, 2)
	assert.Equal(t, "hmm", parts[0].Text)
	assert.Equal(t, "Hello world", parts[1].Text)
}

func TestTranscoderUnknownModelForwardsRawUsage(t *testing.T) {
	tr := &Transcoder{
		Catalog: pricing.NewCatalog(pricing.DefaultRates(), time.Hour),
		ModelId: "mystery-model",
	}

	got := collect(tr.Run(context.Background(), uuid.New(), feedEvents(
		llm.Event{Type: llm.EventUsage, Usage: &llm.Usage{InputTokens: 10, OutputTokens: 20, TotalTokens: 30}},
		llm.Event{Type: llm.EventDone},
	)))

	usage := got[0].Usage
	assert.Equal(t, 10, usage.InputTokens)
	assert.Empty(t, usage.InputCostUSD)
	assert.Empty(t, usage.TotalCostUSD)
}

func TestTranscoderProviderErrorStaysGeneric(t *testing.T) {
	var finish Finish
	tr := &Transcoder{
		ModelId: "test-model",
		OnFinish: func(f Finish) {
			finish = f
		},
	}

	got := collect(tr.Run(context.Background(), uuid.New(), feedEvents(
		llm.Event{Type: llm.EventTextDelta, Text: "partial"},
		llm.Event{Type: llm.EventError, Err: errors.New("api key leaked in message")},
		llm.Event{Type: llm.EventDone},
	)))

	assert.Len(t, got, 3)
	assert.Equal(t, EventError, got[1].Type)
	assert.Equal(t, GenericErrorMessage, got[1].Error)
	assert.Equal(t, EventDone, got[2].Type)

	// A failed generation persists nothing, not even the partial text.
	assert.True(t, finish.Failed)
	assert.Nil(t, finish.Messages)
}

func TestTranscoderSynthesizesDoneOnTruncatedStream(t *testing.T) {
	var finish Finish
	tr := &Transcoder{
		ModelId: "test-model",
		OnFinish: func(f Finish) {
			finish = f
		},
	}

	got := collect(tr.Run(context.Background(), uuid.New(), feedEvents(
		llm.Event{Type: llm.EventTextDelta, Text: "cut off"},
	)))

	assert.Equal(t, EventError, got[len(got)-2].Type)
	assert.Equal(t, EventDone, got[len(got)-1].Type)
	assert.True(t, finish.Failed)
}

func TestTranscoderNothingAfterDone(t *testing.T) {
	tr := &Transcoder{ModelId: "test-model"}

	got := collect(tr.Run(context.Background(), uuid.New(), feedEvents(
		llm.Event{Type: llm.EventDone},
		llm.Event{Type: llm.EventTextDelta, Text: "late"},
		llm.Event{Type: llm.EventUsage, Usage: &llm.Usage{TotalTokens: 1}},
	)))

	assert.Len(t, got, 1)
	assert.Equal(t, EventDone, got[0].Type)
}

func TestTranscoderFinishRunsBeforeChannelClose(t *testing.T) {
	finished := false
	tr := &Transcoder{
		ModelId: "test-model",
		OnFinish: func(Finish) {
			time.Sleep(10 * time.Millisecond)
			finished = true
		},
	}

	ch := tr.Run(context.Background(), uuid.New(), feedEvents(
		llm.Event{Type: llm.EventTextDelta, Text: "hi"},
		llm.Event{Type: llm.EventDone},
	))
	collect(ch)

	// Draining to completion implies persistence has already happened.
	assert.True(t, finished)
}

func TestTranscoderDisconnectedConsumerStillFinishes(t *testing.T) {
	disconnected := make(chan struct{})
	close(disconnected)

	done := make(chan Finish, 1)
	tr := &Transcoder{
		ModelId:      "test-model",
		Buffer:       1,
		Disconnected: disconnected,
		OnFinish: func(f Finish) {
			done <- f
		},
	}

	// Nobody reads the UI channel and the buffer holds a single event; the
	// disconnect signal lets the pump discard instead of blocking.
	tr.Run(context.Background(), uuid.New(), feedEvents(
		llm.Event{Type: llm.EventTextDelta, Text: "Hello "},
		llm.Event{Type: llm.EventTextDelta, Text: "world"},
		llm.Event{Type: llm.EventDone},
	))

	select {
	case finish := <-done:
		assert.False(t, finish.Failed)
		assert.Len(t, finish.Messages, 1)
		assert.Equal(t, "Hello world", finish.Messages[0].Parts[0].Text)
	case <-time.After(time.Second):
		t.Fatal("finish path did not run after consumer disconnect")
	}
}

func TestTranscoderTimeoutStillDeliversTerminalEvents(t *testing.T) {
	// A generation hitting the wall-clock ceiling has a cancelled context but
	// a reader that is still connected: the terminal error and done frames
	// must reach it every time, not race against the cancellation.
	for i := 0; i < 200; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		tr := &Transcoder{ModelId: "test-model"}
		got := collect(tr.Run(ctx, uuid.New(), feedEvents(
			llm.Event{Type: llm.EventTextDelta, Text: "partial"},
		)))

		if assert.GreaterOrEqual(t, len(got), 3) {
			assert.Equal(t, EventError, got[len(got)-2].Type)
			assert.Equal(t, EventDone, got[len(got)-1].Type)
		}
	}
}
