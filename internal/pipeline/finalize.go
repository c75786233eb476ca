package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"

	"returns-copilot/internal/ai"
	"returns-copilot/internal/core"
)

// NextActionType enumerates the structured follow-ups a finalized case
// can instruct.
type NextActionType string

const (
	ActionIssueReplacement    NextActionType = "issue_replacement"
	ActionIssueRefund         NextActionType = "issue_refund"
	ActionRequestMoreInfo     NextActionType = "request_more_info"
	ActionManualAgentFollowup NextActionType = "manual_agent_followup"
)

// NextAction is one structured operational follow-up for a closed case.
type NextAction struct {
	Type         NextActionType     `json:"type" jsonschema:"enum=issue_replacement,enum=issue_refund,enum=request_more_info,enum=manual_agent_followup" jsonschema_description:"The kind of follow-up to execute"`
	Summary      string             `json:"summary" jsonschema_description:"One-line operator summary of the action"`
	SKU          *string            `json:"sku" jsonschema_description:"Affected SKU, or null"`
	Qty          *int               `json:"qty" jsonschema_description:"Affected quantity, or null"`
	RefundAmount *float64           `json:"refund_amount" jsonschema_description:"Refund amount, or null"`
	RefundMethod *core.RefundMethod `json:"refund_method" jsonschema_description:"original_payment or store_credit, or null"`
}

// finalizePayload is the JSON envelope the model must produce.
// NextActions stays raw so a bare object can be coerced into a
// one-element list.
type finalizePayload struct {
	CustomerReply string          `json:"customer_reply"`
	NextActions   json.RawMessage `json:"next_actions"`
}

// finalizeSchema is reflected into a JSON schema and inlined in the
// system prompt.
type finalizeSchema struct {
	CustomerReply string       `json:"customer_reply" jsonschema_description:"The closing message sent to the customer"`
	NextActions   []NextAction `json:"next_actions" jsonschema_description:"Structured follow-ups for the operations team"`
}

// FinalizeInput carries the completed case snapshot into the finalize
// stage.
type FinalizeInput struct {
	Order         *core.Order
	Decision      core.Decision
	Reason        string
	Message       string
	HumanDecision core.HumanDecision
	HumanNotes    string
	PhotoURLs     []string
}

// FinalizeResult is the load-bearing output persisted as the case's
// closing record.
type FinalizeResult struct {
	CustomerReply string       `json:"customer_reply"`
	NextActions   []NextAction `json:"next_actions"`
	PolicyChunks  []core.PolicyChunk
}

// ErrFinalizeUnparseable is returned when the model produced non-empty
// output that stayed unparseable after the repair retry.
var ErrFinalizeUnparseable = errors.New("finalize output was not valid JSON after repair retry")

const finalizeSystemPrompt = `You are a support-ops assistant generating the FINAL outcome after a human decision.

You MUST output valid JSON only (no markdown, no extra text).

You are given:
- enriched order facts (includes items with sku, qty, product fields)
- the prior AI decision JSON
- the human decision (approved/denied/more_info_requested)
- human notes
- photo URLs (may exist)
- policy excerpts

Next-action policy when human_decision == "approved":
- Preferred: issue_replacement of the exact SKU(s) affected.
- If replacement is not possible due to out-of-stock, issue_refund instead.
Assume replacement IS possible unless human_notes contains "out of stock".

When human_decision == "denied":
- Do not promise a refund or replacement.
- Explain concisely; mention the standard return option only if the AI decision already indicates the return window.

When human_decision == "more_info_requested":
- Ask specifically for what is missing (photos, angles, order_id, sku, care details).

Output JSON schema:
%s`

func finalizeSchemaJSON() string {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schema, err := json.MarshalIndent(reflector.Reflect(finalizeSchema{}), "", "  ")
	if err != nil {
		// Reflection of a static struct cannot fail at runtime.
		panic("finalize schema reflection: " + err.Error())
	}
	return string(schema)
}

var finalizeSystem = fmt.Sprintf(finalizeSystemPrompt, finalizeSchemaJSON())

// Finalize produces the closing customer message and next actions after
// a human decision. Generation errors degrade through one repair retry
// and then a deterministic fallback; the only hard failure is non-empty
// model output that remains unparseable.
func (p *Pipeline) Finalize(ctx context.Context, in FinalizeInput) (FinalizeResult, error) {
	query := fmt.Sprintf("Reason: %s\nCustomer message: %s\nTask: Determine eligibility and required steps according to policy.",
		in.Reason, in.Message)
	chunks := p.retriever.Retrieve(ctx, query)

	raw, err := p.llm.Generate(ctx, finalizeSystem, p.finalizePrompt(in, chunks, false), ai.ProfileFinalize)
	if err != nil {
		raw = ""
	}
	raw = strings.TrimSpace(raw)

	payload, ok := parseFinalizeOutput(raw)
	if !ok {
		// One stricter retry: minimal prompt, JSON-only instruction,
		// cold profile.
		system := finalizeSystem + "\n\nSTRICT JSON ONLY. Return only valid JSON without any markdown or prose."
		raw, err = p.llm.Generate(ctx, system, p.finalizePrompt(in, chunks, true), ai.ProfileRepair)
		if err != nil {
			raw = ""
		}
		raw = strings.TrimSpace(raw)
		payload, ok = parseFinalizeOutput(raw)
	}

	var result FinalizeResult
	switch {
	case ok:
		actions, err := coerceNextActions(payload.NextActions)
		if err != nil {
			return FinalizeResult{}, err
		}
		result = FinalizeResult{CustomerReply: strings.TrimSpace(payload.CustomerReply), NextActions: actions}
	case raw == "":
		// Nothing usable came back at all: deterministic fallback.
		result = fallbackPayload(in)
	default:
		return FinalizeResult{}, fmt.Errorf("%w: %.120s", ErrFinalizeUnparseable, raw)
	}

	if result.CustomerReply == "" {
		return FinalizeResult{}, errors.New("finalize output missing customer_reply")
	}
	result.PolicyChunks = chunks
	return result, nil
}

func (p *Pipeline) finalizePrompt(in FinalizeInput, chunks []core.PolicyChunk, minimal bool) string {
	orderJSON, _ := json.Marshal(in.Order)
	decisionJSON, _ := json.Marshal(in.Decision)
	photosJSON, _ := json.Marshal(in.PhotoURLs)

	prompt := fmt.Sprintf(`order:
%s

ai_decision:
%s

human_decision:
%s

human_notes:
%s

photo_urls:
%s`, orderJSON, decisionJSON, in.HumanDecision, in.HumanNotes, photosJSON)

	if minimal {
		return prompt
	}

	if len(chunks) > 2 {
		chunks = chunks[:2]
	}
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		parts = append(parts, fmt.Sprintf("SOURCE: %s\n%s", c.Source, c.Content))
	}
	return prompt + "\n\npolicy_excerpts:\n" + strings.Join(parts, "\n\n")
}

// parseFinalizeOutput tries a straight unmarshal and then the substring
// between the first '{' and the last '}'.
func parseFinalizeOutput(raw string) (finalizePayload, bool) {
	var payload finalizePayload
	if raw == "" {
		return payload, false
	}
	if err := json.Unmarshal([]byte(raw), &payload); err == nil {
		return payload, true
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		payload = finalizePayload{}
		if err := json.Unmarshal([]byte(raw[start:end+1]), &payload); err == nil {
			return payload, true
		}
	}
	return finalizePayload{}, false
}

// coerceNextActions accepts a list or a bare action object (coerced to a
// one-element list). Anything else is a hard failure: finalize output is
// load-bearing.
func coerceNextActions(raw json.RawMessage) ([]NextAction, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, errors.New("finalize output next_actions is not a list")
	}

	var actions []NextAction
	if err := json.Unmarshal(raw, &actions); err == nil {
		return actions, nil
	}

	var single NextAction
	if err := json.Unmarshal(raw, &single); err == nil {
		return []NextAction{single}, nil
	}
	return nil, errors.New("finalize output next_actions is not a list")
}

// fallbackPayload builds the deterministic closing payload from the
// human decision alone. Given the same case snapshot it is identical
// across calls.
func fallbackPayload(in FinalizeInput) FinalizeResult {
	var firstSKU *string
	var firstQty *int
	if in.Order != nil && len(in.Order.Items) > 0 {
		sku := in.Order.Items[0].SKU
		qty := in.Order.Items[0].Qty
		firstSKU = &sku
		firstQty = &qty
	}

	switch in.HumanDecision {
	case core.HumanApproved:
		outOfStock := strings.Contains(strings.ToLower(in.HumanNotes), "out of stock")
		if outOfStock {
			var amount *float64
			if in.Decision.RefundEstimate != nil {
				f, _ := in.Decision.RefundEstimate.Float64()
				amount = &f
			}
			method := core.RefundOriginalPayment
			if in.Decision.RefundMethod != nil {
				method = *in.Decision.RefundMethod
			}
			return FinalizeResult{
				CustomerReply: "Good news — your claim has been approved. The replacement item is currently out of stock, so we will issue a refund instead. You will see it on your original payment method within 5-10 business days.",
				NextActions: []NextAction{{
					Type:         ActionIssueRefund,
					Summary:      "Issue refund for approved claim (replacement out of stock)",
					SKU:          firstSKU,
					Qty:          firstQty,
					RefundAmount: amount,
					RefundMethod: &method,
				}},
			}
		}
		return FinalizeResult{
			CustomerReply: "Good news — your claim has been approved. We will ship a replacement for the affected item; you will receive tracking details as soon as it is on its way.",
			NextActions: []NextAction{{
				Type:    ActionIssueReplacement,
				Summary: "Ship replacement for approved claim",
				SKU:     firstSKU,
				Qty:     firstQty,
			}},
		}

	case core.HumanDenied:
		reply := "After review, we are unable to approve this claim under our policy."
		if in.Decision.ResolutionType == core.ResolutionReturnForRefund {
			reply += " You may still use the standard return option indicated earlier, within the stated return window."
		}
		reply += " If you have additional details, reply here and an agent will follow up."
		return FinalizeResult{
			CustomerReply: reply,
			NextActions: []NextAction{{
				Type:    ActionManualAgentFollowup,
				Summary: "Agent follow-up on denied claim",
			}},
		}

	default:
		// Anything other than approved/denied means more info.
		return FinalizeResult{
			CustomerReply: "To move forward we need a bit more information: please send a clear photo of the issue along with your order ID and the item SKU.",
			NextActions: []NextAction{{
				Type:    ActionRequestMoreInfo,
				Summary: "Request photos, order ID, and SKU from customer",
				SKU:     firstSKU,
			}},
		}
	}
}
