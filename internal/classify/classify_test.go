package classify

import "testing"

func TestClassify_Tiers(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		want       Tier
	}{
		{"zero", 0.0, TierIncorrect},
		{"low", 0.3, TierIncorrect},
		{"just below fair", 0.5999, TierIncorrect},
		{"fair boundary", 0.60, TierFair},
		{"mid fair", 0.72, TierFair},
		{"just below correct", 0.8499, TierFair},
		{"correct boundary", 0.85, TierCorrect},
		{"high", 0.94, TierCorrect},
		{"perfect", 1.0, TierCorrect},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.confidence); got != tt.want {
				t.Errorf("Classify(%v) = %v, want %v", tt.confidence, got, tt.want)
			}
		})
	}
}

func TestClassify_BoundariesUseUpperTier(t *testing.T) {
	// Exactly 0.60 and 0.85 must not fall into the lower tier.
	if got := Classify(0.60); got != TierFair {
		t.Errorf("Classify(0.60) = %v, want fair", got)
	}
	if got := Classify(0.85); got != TierCorrect {
		t.Errorf("Classify(0.85) = %v, want correct", got)
	}
}

func TestParseTier(t *testing.T) {
	for _, valid := range []string{"correct", "fair", "incorrect"} {
		tier, err := ParseTier(valid)
		if err != nil {
			t.Errorf("ParseTier(%q): unexpected error: %v", valid, err)
		}
		if tier.String() != valid {
			t.Errorf("ParseTier(%q) = %v", valid, tier)
		}
	}

	if _, err := ParseTier("excellent"); err == nil {
		t.Error("expected error for unknown tier")
	}
}
