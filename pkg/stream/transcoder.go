package stream

import (
	"context"
	"time"

	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/pkg/llm"
	"ai-chat-be/pkg/pricing"

	"github.com/google/uuid"
)

// GenericErrorMessage is what clients see when a generation fails; the
// underlying cause never leaves the server.
const GenericErrorMessage = "Oops, an error occurred!"

// Finish is handed to OnFinish after the terminal event has been queued.
// Messages is nil when the generation failed, so a broken stream never
// persists a partial assistant message.
type Finish struct {
	Messages []*entity.Message
	Usage    *entity.UsageSnapshot
	Failed   bool
}

// Transcoder bridges a provider token stream into the client-facing UI event
// stream while accumulating the final assistant message. One Transcoder
// serves one generation.
type Transcoder struct {
	Catalog *pricing.Catalog
	Logger  logger.ILogger
	ModelId string

	// Buffer is the UI event channel capacity; it decouples provider pace
	// from transport pace.
	Buffer int

	// Disconnected is closed when the consumer stops reading (client hung
	// up). Queued events are discarded from then on; accumulation and the
	// finish path keep running so the completed message still persists.
	// Left nil, every event is delivered.
	Disconnected <-chan struct{}

	// OnFinish runs in the transcoder goroutine after `done` is queued.
	// Persistence lives here.
	OnFinish func(Finish)

	Now func() time.Time
}

// Run starts pumping provider events into the returned channel. The channel
// is closed after the terminal `done` event and after OnFinish has returned,
// so a reader that drains the channel to completion observes durable
// persistence.
//
// If the client stops reading, the caller signals it by closing Disconnected;
// queued events are then discarded while the provider channel is drained to
// completion, keeping the accumulated state consistent for the finish path.
// Cancelling ctx never drops events: a timed-out generation with a live
// reader still sees its terminal error and done frames.
func (t *Transcoder) Run(ctx context.Context, chatId uuid.UUID, events <-chan llm.Event) <-chan UIEvent {
	buffer := t.Buffer
	if buffer <= 0 {
		buffer = 64
	}
	now := t.Now
	if now == nil {
		now = time.Now
	}

	ui := make(chan UIEvent, buffer)

	go func() {
		defer close(ui)

		builder := NewMessageBuilder()
		var usage *entity.UsageSnapshot
		failed := false
		doneSent := false

		// emit queues an event unless the consumer is gone. Events after
		// a disconnect are discarded, never reordered.
		emit := func(ev UIEvent) {
			if doneSent {
				return
			}
			select {
			case ui <- ev:
			case <-t.Disconnected:
			}
		}

		for ev := range events {
			switch ev.Type {
			case llm.EventTextDelta:
				builder.AddText(ev.Text)
				emit(UIEvent{Type: EventTextDelta, Delta: ev.Text})

			case llm.EventReasoningDelta:
				builder.AddReasoning(ev.Text)
				emit(UIEvent{Type: EventReasoningDelta, Delta: ev.Text})

			case llm.EventToolCall:
				builder.AddToolCall(ev.ToolCallId, ev.ToolName, ev.ToolInput)
				emit(UIEvent{Type: EventToolCall, ToolCallId: ev.ToolCallId, ToolName: ev.ToolName, ToolInput: ev.ToolInput})

			case llm.EventToolResult:
				builder.AddToolResult(ev.ToolCallId, ev.ToolName, ev.ToolOutput)
				emit(UIEvent{Type: EventToolResult, ToolCallId: ev.ToolCallId, ToolName: ev.ToolName, ToolOutput: ev.ToolOutput})

			case llm.EventUsage:
				if ev.Usage != nil && usage == nil {
					usage = t.enrich(ctx, ev.Usage)
					emit(UIEvent{Type: EventUsage, Usage: usage})
				}

			case llm.EventError:
				failed = true
				t.logError("Generation failed", ev.Err)
				emit(UIEvent{Type: EventError, Error: GenericErrorMessage})

			case llm.EventDone:
				emit(UIEvent{Type: EventDone})
				doneSent = true

			default:
				// Unknown provider event kinds are logged and skipped, never
				// fatal.
				t.logWarn("Unknown provider event", string(ev.Type))
			}
		}

		if !doneSent {
			// Provider channel closed without a done frame (crash, context
			// cancelled). Terminate the client stream cleanly.
			failed = true
			emit(UIEvent{Type: EventError, Error: GenericErrorMessage})
			emit(UIEvent{Type: EventDone})
		}

		if t.OnFinish != nil {
			finish := Finish{Usage: usage, Failed: failed}
			if !failed {
				finish.Messages = builder.Messages(chatId, now())
			}
			t.OnFinish(finish)
		}
	}()

	return ui
}

// enrich attaches catalog cost data to raw token counts. Lookup failure and
// unknown models degrade to the raw counts; enrichment never fails the
// stream.
func (t *Transcoder) enrich(ctx context.Context, raw *llm.Usage) *entity.UsageSnapshot {
	snap := &entity.UsageSnapshot{
		ModelId:      t.ModelId,
		InputTokens:  raw.InputTokens,
		OutputTokens: raw.OutputTokens,
		TotalTokens:  raw.TotalTokens,
	}

	if t.Catalog == nil {
		return snap
	}
	rate, ok := t.Catalog.Lookup(ctx, t.ModelId)
	if !ok {
		t.logWarn("No pricing for model, forwarding raw usage", t.ModelId)
		return snap
	}

	cost := rate.Cost(raw.InputTokens, raw.OutputTokens)
	snap.InputCostUSD = cost.InputUSD.String()
	snap.OutputCostUSD = cost.OutputUSD.String()
	snap.TotalCostUSD = cost.TotalUSD.String()
	return snap
}

func (t *Transcoder) logError(message string, err error) {
	if t.Logger == nil {
		return
	}
	details := map[string]interface{}{"model": t.ModelId}
	if err != nil {
		details["error"] = err.Error()
	}
	t.Logger.Error("STREAM", message, details)
}

func (t *Transcoder) logWarn(message, detail string) {
	if t.Logger == nil {
		return
	}
	t.Logger.Warn("STREAM", message, map[string]interface{}{"detail": detail})
}
