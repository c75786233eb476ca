package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"returns-copilot/internal/ai"
)

const draftSystemPrompt = `You write customer support replies for an ecommerce brand.

Hard rules:
- Do not invent policies or steps not present in the provided policy excerpts.
- Keep the reply short and actionable (max ~8 lines).
- If photos are required, clearly request: photo of defect + order_id + SKU.
- If a fee applies, explain it as "deducted from the refund" (not paid upfront), unless policy explicitly says otherwise.
- Do not mention internal policy IDs; those are for internal audit only.`

// policyExcerpts renders at most the top two chunks for the prompt,
// keeping it small.
func policyExcerpts(s *State) string {
	chunks := s.PolicyChunks
	if len(chunks) > 2 {
		chunks = chunks[:2]
	}
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		parts = append(parts, fmt.Sprintf("SOURCE: %s\n%s", c.Source, c.Content))
	}
	return strings.Join(parts, "\n\n")
}

// draft asks the model for the customer reply. A failed generation
// leaves Reply as-is and records the error code; the caller still
// responds without a draft.
func (p *Pipeline) draft(ctx context.Context, s *State) {
	decisionJSON, err := json.Marshal(s.Decision)
	if err != nil {
		s.Errors = append(s.Errors, "decision_marshal_failed")
		return
	}

	prompt := fmt.Sprintf(`Order ID: %s
Reason: %s
Customer message: %s

Decision JSON:
%s

Policy excerpts:
%s

Write the customer reply.`, s.OrderID, s.Reason, s.Message, decisionJSON, policyExcerpts(s))

	profile := ai.ProfileDraft
	profile.MaxTokens = s.DraftMaxTokens

	reply, err := p.llm.Generate(ctx, draftSystemPrompt, prompt, profile)
	if err != nil {
		s.Errors = append(s.Errors, "draft_generation_failed")
		return
	}
	s.Reply = strings.TrimSpace(reply)
}
