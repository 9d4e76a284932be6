package transcript

import (
	"strings"
	"sync"

	"github.com/binh123-ol/english-learning/internal/classify"
)

// Assembler merges recognition events into transcript state for one recording
// session. Finalized text and word details only ever grow; interim text is
// replaced wholesale on every event because it is a revisable guess.
// Thread-safe for concurrent access.
type Assembler struct {
	mu           sync.Mutex
	finalized    string
	interim      string
	details      []WordDetail
	lastSequence int
}

// NewAssembler creates an empty assembler.
func NewAssembler() *Assembler {
	return &Assembler{lastSequence: -1}
}

// Ingest applies one recognition event, in slot-index order.
//
// Final slots append to the finalized transcript and classify each word once.
// Non-final slots replace the interim text with the concatenation of all
// non-final slot texts of this event. Out-of-order events are dropped.
func (a *Assembler) Ingest(event RecognitionEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if event.Sequence < a.lastSequence {
		return
	}
	a.lastSequence = event.Sequence

	var interimParts []string
	for _, slot := range event.Results {
		text := strings.TrimSpace(slot.Text)
		if slot.IsFinal {
			if text == "" {
				continue
			}
			if a.finalized == "" {
				a.finalized = text
			} else {
				a.finalized += " " + text
			}
			for _, word := range strings.Fields(text) {
				a.details = append(a.details, WordDetail{
					Word: word,
					Tier: classify.Classify(slot.Confidence),
				})
			}
		} else if text != "" {
			interimParts = append(interimParts, text)
		}
	}

	// Replaced even when empty: once everything in the batch finalizes, the
	// stale interim guess must disappear.
	a.interim = strings.Join(interimParts, " ")
}

// FinalText returns the finalized transcript so far, space-joined.
func (a *Assembler) FinalText() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.finalized
}

// InterimText returns the current provisional transcript.
func (a *Assembler) InterimText() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.interim
}

// Live returns the display transcript: finalized text followed by the current
// interim guess.
func (a *Assembler) Live() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.finalized == "" {
		return a.interim
	}
	if a.interim == "" {
		return a.finalized
	}
	return a.finalized + " " + a.interim
}

// Details returns a copy of the word details in speech order.
func (a *Assembler) Details() []WordDetail {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]WordDetail, len(a.details))
	copy(out, a.details)
	return out
}

// Empty reports whether nothing has been finalized yet.
func (a *Assembler) Empty() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.finalized == ""
}

// Reset clears all state for a new recording session.
func (a *Assembler) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.finalized = ""
	a.interim = ""
	a.details = nil
	a.lastSequence = -1
}
