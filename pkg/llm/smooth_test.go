package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWordSmootherFeed(t *testing.T) {
	tests := []struct {
		name      string
		feeds     []string
		want      []string
		wantFlush string
	}{
		{
			name:      "no whitespace buffers everything",
			feeds:     []string{"Hel", "lo"},
			want:      []string{"", ""},
			wantFlush: "Hello",
		},
		{
			name:      "emits up to last whitespace",
			feeds:     []string{"Hel", "lo wor", "ld"},
			want:      []string{"", "Hello ", ""},
			wantFlush: "world",
		},
		{
			name:      "newline counts as boundary",
			feeds:     []string{"one\ntwo"},
			want:      []string{"one\n"},
			wantFlush: "two",
		},
		{
			name:      "empty feed",
			feeds:     []string{""},
			want:      []string{""},
			wantFlush: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewWordSmoother()
			for i, feed := range tt.feeds {
				assert.Equal(t, tt.want[i], s.Feed(feed))
			}
			assert.Equal(t, tt.wantFlush, s.Flush())
			assert.Equal(t, "", s.Flush(), "flush must drain the buffer")
		})
	}
}

func TestSmoothEvents(t *testing.T) {
	in := make(chan Event, 8)
	in <- Event{Type: EventTextDelta, Text: "Hel"}
	in <- Event{Type: EventTextDelta, Text: "lo wor"}
	in <- Event{Type: EventTextDelta, Text: "ld"}
	in <- Event{Type: EventUsage, Usage: &Usage{InputTokens: 1, OutputTokens: 2, TotalTokens: 3}}
	in <- Event{Type: EventDone}
	close(in)

	var got []Event
	for ev := range SmoothEvents(in) {
		got = append(got, ev)
	}

	// Buffered text must flush before the usage event so order is preserved.
	assert.Len(t, got, 4)
	assert.Equal(t, EventTextDelta, got[0].Type)
	assert.Equal(t, "Hello ", got[0].Text)
	assert.Equal(t, EventTextDelta, got[1].Type)
	assert.Equal(t, "world", got[1].Text)
	assert.Equal(t, EventUsage, got[2].Type)
	assert.Equal(t, EventDone, got[3].Type)
}

func TestSmoothEventsPassesReasoningThrough(t *testing.T) {
	in := make(chan Event, 4)
	in <- Event{Type: EventReasoningDelta, Text: "thin"}
	in <- Event{Type: EventReasoningDelta, Text: "king"}
	in <- Event{Type: EventDone}
	close(in)

	var got []Event
	for ev := range SmoothEvents(in) {
		got = append(got, ev)
	}

	assert.Len(t, got, 3)
	assert.Equal(t, "thin", got[0].Text)
	assert.Equal(t, "king", got[1].Text)
}
