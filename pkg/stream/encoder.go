package stream

import (
	"encoding/json"
	"fmt"
	"io"
)

// Flusher matches bufio.Writer; the encoder flushes after every frame so the
// client sees tokens as they arrive.
type Flusher interface {
	Flush() error
}

// SSEEncoder serializes UI events as server-sent-event frames:
// one `data: <json>` line per event, terminated by a blank line. Events are
// written in the exact order they are produced; the `done` event is the
// stream terminator, no extra sentinel is appended.
type SSEEncoder struct {
	w io.Writer
}

func NewSSEEncoder(w io.Writer) *SSEEncoder {
	return &SSEEncoder{w: w}
}

func (e *SSEEncoder) Encode(ev UIEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(e.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	if f, ok := e.w.(Flusher); ok {
		return f.Flush()
	}
	return nil
}

// EncodeAll drains the event channel onto the wire. A write error means the
// client is gone: onDisconnect (optional) is invoked once so the producer can
// stop queueing, then the channel is still drained so the finish path runs to
// completion. Returns the first write error, nil on clean drain.
func (e *SSEEncoder) EncodeAll(events <-chan UIEvent, onDisconnect func()) error {
	for ev := range events {
		if err := e.Encode(ev); err != nil {
			if onDisconnect != nil {
				onDisconnect()
			}
			for range events {
			}
			return err
		}
	}
	return nil
}
