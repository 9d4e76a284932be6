package timeline

import (
	"encoding/json"
	"strings"

	"github.com/binh123-ol/english-learning/internal/transcript"
)

// The backend overloads a turn's feedback string with three payload shapes,
// distinguished by prefix. Decoding happens once here; downstream code only
// ever sees the tagged variant.
const translationMarker = "TRANSLATION:"

// FeedbackKind tags the decoded payload shape.
type FeedbackKind int

const (
	// FeedbackNone - no feedback attached, or an unparseable structured payload.
	FeedbackNone FeedbackKind = iota
	// FeedbackTranslation - the turn carries a translated rendering of its content.
	FeedbackTranslation
	// FeedbackDetails - the turn carries per-word pronunciation details.
	FeedbackDetails
	// FeedbackAdvisory - free-form advisory text.
	FeedbackAdvisory
)

// DecodedFeedback is the tagged variant decoded from a turn's raw feedback
// string. Exactly one of the payload fields is meaningful, per Kind.
type DecodedFeedback struct {
	Kind        FeedbackKind
	Translation string
	Details     []transcript.WordDetail
	Advisory    Advisory
}

// DecodeFeedback interprets a raw feedback string. First match wins:
// a translation marker, a JSON array of word details, otherwise advisory
// text. Malformed JSON is swallowed and treated as no structured detail.
func DecodeFeedback(raw string) DecodedFeedback {
	if raw == "" {
		return DecodedFeedback{Kind: FeedbackNone}
	}

	if rest, ok := strings.CutPrefix(raw, translationMarker); ok {
		return DecodedFeedback{Kind: FeedbackTranslation, Translation: rest}
	}

	if strings.HasPrefix(raw, "[") {
		var details []transcript.WordDetail
		if err := json.Unmarshal([]byte(raw), &details); err != nil {
			return DecodedFeedback{Kind: FeedbackNone}
		}
		return DecodedFeedback{Kind: FeedbackDetails, Details: details}
	}

	return DecodedFeedback{Kind: FeedbackAdvisory, Advisory: Advisory(raw)}
}

// Advisory is free-form advisory text from the AI feedback service.
type Advisory string

// Block is one renderable unit of advisory text.
type Block struct {
	Text   string
	Bullet bool
}

// Blocks splits the advisory into one paragraph per line; lines starting
// with "-" render as hanging-indent bullets.
func (a Advisory) Blocks() []Block {
	if a == "" {
		return nil
	}
	lines := strings.Split(string(a), "\n")
	blocks := make([]Block, 0, len(lines))
	for _, line := range lines {
		blocks = append(blocks, Block{
			Text:   line,
			Bullet: strings.HasPrefix(line, "-"),
		})
	}
	return blocks
}
