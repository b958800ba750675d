package llm

import "strings"

// WordSmoother re-chunks raw provider deltas at word granularity so clients
// never render partial words. Feed returns the prefix that ends on the last
// whitespace boundary seen so far; Flush drains the remainder.
type WordSmoother struct {
	buf strings.Builder
}

func NewWordSmoother() *WordSmoother {
	return &WordSmoother{}
}

func (s *WordSmoother) Feed(text string) string {
	s.buf.WriteString(text)
	pending := s.buf.String()

	cut := strings.LastIndexAny(pending, " \t\n")
	if cut < 0 {
		return ""
	}

	out := pending[:cut+1]
	rest := pending[cut+1:]
	s.buf.Reset()
	s.buf.WriteString(rest)
	return out
}

func (s *WordSmoother) Flush() string {
	out := s.buf.String()
	s.buf.Reset()
	return out
}

// SmoothEvents wraps a provider event channel, re-chunking text-delta events
// at word boundaries. Reasoning deltas and every other event type pass
// through untouched, in order. Buffered text is flushed before any
// non-text event so ordering is preserved.
func SmoothEvents(in <-chan Event) <-chan Event {
	out := make(chan Event)
	go func() {
		defer close(out)
		smoother := NewWordSmoother()

		flush := func() {
			if rest := smoother.Flush(); rest != "" {
				out <- Event{Type: EventTextDelta, Text: rest}
			}
		}

		for ev := range in {
			if ev.Type == EventTextDelta {
				if chunk := smoother.Feed(ev.Text); chunk != "" {
					out <- Event{Type: EventTextDelta, Text: chunk}
				}
				continue
			}
			flush()
			out <- ev
		}
		flush()
	}()
	return out
}
