package pipeline

import (
	"strings"

	"returns-copilot/internal/core"
)

// Validation error codes. These are advisory: they gate a single
// redraft, never the response itself.
const (
	errNoPolicyDocs             = "no_policy_docs"
	errMissingPhotoRequest      = "missing_photo_request"
	errMissingReturnInstruction = "missing_return_instruction"
	errMissingReviewLanguage    = "missing_manual_review_language"
	errMissingInvestigation     = "missing_investigation_language"
)

// validateReply checks the drafted reply against the decision's required
// properties. Pure, no LLM.
func validateReply(decision core.Decision, reply string, chunks []core.PolicyChunk) []string {
	text := strings.ToLower(reply)

	var errs []string
	if len(chunks) == 0 {
		errs = append(errs, errNoPolicyDocs)
	}
	if decision.RequiresPhotos && !strings.Contains(text, "photo") && !strings.Contains(text, "picture") {
		errs = append(errs, errMissingPhotoRequest)
	}
	if decision.RequiresReturn && !strings.Contains(text, "return") {
		errs = append(errs, errMissingReturnInstruction)
	}
	if decision.ResolutionType == core.ResolutionManualReview &&
		!strings.Contains(text, "review") && !strings.Contains(text, "specialist") {
		errs = append(errs, errMissingReviewLanguage)
	}
	if decision.ResolutionType == core.ResolutionCarrierInvestigation &&
		!strings.Contains(text, "investigation") && !strings.Contains(text, "carrier") {
		errs = append(errs, errMissingInvestigation)
	}
	return errs
}
