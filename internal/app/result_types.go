package app

import (
	"returns-copilot/internal/core"
	"returns-copilot/internal/pipeline"
)

// ChatStartResult is returned by StartChat.
type ChatStartResult struct {
	SessionID string
}

// ChatMessageResult is returned by HandleChatMessage. CaseID and Status
// are set only when the pipeline opened a review case.
type ChatMessageResult struct {
	SessionID        string
	AssistantMessage string
	CaseID           *string
	Status           *core.CaseStatus
}

// ResolveResult is returned by Resolve: the structured decision, the
// drafted reply, and the audit material a case would otherwise carry.
type ResolveResult struct {
	Decision      core.Decision
	CustomerReply string
	OrderFacts    *core.Order
	Citations     []core.PolicyCitation
	Escalate      bool
	Trace         map[string]any
}

// CaseListResult is returned by ListCases.
type CaseListResult struct {
	Cases []core.Case
}

// FinalizeCaseResult is returned by FinalizeCase.
type FinalizeCaseResult struct {
	CaseID        string
	Status        core.CaseStatus
	CustomerReply string
	NextActions   []pipeline.NextAction
}
