package pipeline

import (
	"strings"
	"testing"
)

func TestEstimateComplexity(t *testing.T) {
	tests := []struct {
		name    string
		reason  string
		message string
		want    int
	}{
		{"simple preference return", "Doesn't fit", "too small", 1},
		{"hard keyword", "Quality issue", "the zipper broke", 3},
		{"long message", "General", strings.Repeat("my order has a problem ", 15), 2},
		{"mixed signals", "Return", "I want a refund, the package is lost", 2},
		{"everything at once", "Warranty", "refund please, item lost and warranty claim " + strings.Repeat("details ", 40), 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := estimateComplexity(tt.reason, tt.message); got != tt.want {
				t.Errorf("estimateComplexity(%q, %q) = %d, want %d", tt.reason, tt.message, got, tt.want)
			}
		})
	}
}

func TestIntake_TokenBudgetTracksComplexity(t *testing.T) {
	p := New(nil, nil, nil, nil)

	simple := State{Input: Input{Reason: "Doesn't fit"}}
	p.intake(&simple)
	if simple.DraftMaxTokens != draftTokensSimple {
		t.Errorf("simple budget = %d, want %d", simple.DraftMaxTokens, draftTokensSimple)
	}

	complexCase := State{Input: Input{Reason: "Warranty", Message: "zipper defect"}}
	p.intake(&complexCase)
	if complexCase.DraftMaxTokens != draftTokensComplex {
		t.Errorf("complex budget = %d, want %d", complexCase.DraftMaxTokens, draftTokensComplex)
	}
	if complexCase.Profile != "draft" {
		t.Errorf("profile = %s, want draft", complexCase.Profile)
	}
}
