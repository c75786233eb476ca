package pipeline

import "strings"

// Complexity heuristic:
//
//	1 = simple preference return / basic refund
//	3 = shipping missing / gift logic / fees
//	5 = warranty/defect, late return, mixed conditions
//
// Higher complexity buys a larger draft token budget.
var hardKeywords = []string{
	"warranty", "defect", "manufacturing", "pilling", "zipper", "seam",
	"late", "outside window", "holiday", "investigation", "delivered but missing",
	"wrong item", "damaged", "carrier", "chargeback",
}

const (
	longMessageChars   = 240
	draftTokensSimple  = 180
	draftTokensComplex = 220
)

func estimateComplexity(reason, message string) int {
	text := strings.ToLower(reason + " " + message)

	score := 1
	if len(text) > longMessageChars {
		score++
	}
	for _, k := range hardKeywords {
		if strings.Contains(text, k) {
			score += 2
			break
		}
	}
	// Mixed signals: return language combined with loss/warranty language.
	if (strings.Contains(text, "return") || strings.Contains(text, "refund")) &&
		(strings.Contains(text, "lost") || strings.Contains(text, "missing") || strings.Contains(text, "warranty")) {
		score++
	}

	if score < 1 {
		score = 1
	}
	if score > 5 {
		score = 5
	}
	return score
}

// intake scores the request and picks the generation profile and token
// budget for drafting.
func (p *Pipeline) intake(s *State) {
	s.Complexity = estimateComplexity(s.Reason, s.Message)
	s.Profile = "draft"
	if s.Complexity <= 2 {
		s.DraftMaxTokens = draftTokensSimple
	} else {
		s.DraftMaxTokens = draftTokensComplex
	}
}
