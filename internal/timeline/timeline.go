package timeline

import (
	"sync"
)

// Timeline is the client's view of the conversation. Turns are replaced
// wholesale after every mutating backend call, never merged, so the view
// always reflects server-authoritative state. Thread-safe.
type Timeline struct {
	mu      sync.Mutex
	entries []Entry
}

// New creates an empty timeline.
func New() *Timeline {
	return &Timeline{}
}

// Replace swaps in a fresh ordered turn list from the backend. Feedback is
// decoded once per turn here; translation toggles reset with the replace.
func (t *Timeline) Replace(turns []Turn) {
	entries := make([]Entry, len(turns))
	for i, turn := range turns {
		entries[i] = Entry{
			Turn:    turn,
			Decoded: DecodeFeedback(turn.Feedback),
		}
	}

	t.mu.Lock()
	t.entries = entries
	t.mu.Unlock()
}

// Entries returns a copy of the current view, in conversation order.
func (t *Timeline) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Get returns the entry with the given turn ID.
func (t *Timeline) Get(id string) (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Len returns the number of turns in the view.
func (t *Timeline) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// ToggleTranslation flips the local translation flag of the matching turn.
// Pure view state: no network call, reset by the next Replace. Returns false
// if no turn matches.
func (t *Timeline) ToggleTranslation(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.entries {
		if t.entries[i].ID == id {
			t.entries[i].ShowTranslation = !t.entries[i].ShowTranslation
			return true
		}
	}
	return false
}

// Summary holds end-of-session statistics computed locally from the timeline.
type Summary struct {
	TotalTurns                int
	AveragePronunciationScore float64
}

// Summarize computes session statistics. The average is taken over user
// turns carrying a pronunciation score; it is zero when there are none.
func Summarize(turns []Turn) Summary {
	s := Summary{TotalTurns: len(turns)}

	var sum float64
	var scored int
	for _, turn := range turns {
		if turn.Sender != SenderUser || turn.PronunciationScore == nil {
			continue
		}
		sum += *turn.PronunciationScore
		scored++
	}
	if scored > 0 {
		s.AveragePronunciationScore = sum / float64(scored)
	}
	return s
}

// SummarizeEntries is Summarize over the timeline's current view.
func (t *Timeline) SummarizeEntries() Summary {
	t.mu.Lock()
	turns := make([]Turn, len(t.entries))
	for i, e := range t.entries {
		turns[i] = e.Turn
	}
	t.mu.Unlock()
	return Summarize(turns)
}
