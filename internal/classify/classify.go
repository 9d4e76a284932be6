// Package classify maps recognizer confidence scores to pronunciation tiers.
package classify

import "fmt"

// Tier is the pronunciation-quality tier derived from a confidence score.
type Tier string

const (
	// TierCorrect - confident recognition, the word was pronounced clearly.
	TierCorrect Tier = "correct"
	// TierFair - recognized with hesitation, worth practicing.
	TierFair Tier = "fair"
	// TierIncorrect - low confidence, likely mispronounced.
	TierIncorrect Tier = "incorrect"
)

// String returns the wire representation of the tier.
func (t Tier) String() string {
	return string(t)
}

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	switch t {
	case TierCorrect, TierFair, TierIncorrect:
		return true
	default:
		return false
	}
}

// ParseTier converts a wire string into a Tier.
func ParseTier(s string) (Tier, error) {
	t := Tier(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown tier: %q", s)
	}
	return t, nil
}

// Thresholds for tier boundaries. A score equal to a boundary lands in the
// upper tier.
const (
	fairThreshold    = 0.60
	correctThreshold = 0.85
)

// Classify maps a confidence score in [0,1] to a tier.
//
//	confidence <  0.60          → incorrect
//	0.60 <= confidence < 0.85   → fair
//	confidence >= 0.85          → correct
func Classify(confidence float64) Tier {
	switch {
	case confidence < fairThreshold:
		return TierIncorrect
	case confidence < correctThreshold:
		return TierFair
	default:
		return TierCorrect
	}
}
