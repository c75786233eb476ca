package app

import (
	"context"

	"returns-copilot/internal/core"
)

// ApplicationService is the single interface the web adapter calls. It
// decouples presentation from the pipeline and the persistence services;
// implementations contain no HTTP or display logic.
type ApplicationService interface {
	// StartChat opens a new customer chat session.
	StartChat(ctx context.Context) (*ChatStartResult, error)

	// HandleChatMessage stores the user turn, runs the returns pipeline,
	// opens a review case when the pipeline escalates or needs photos,
	// and stores the assistant reply.
	HandleChatMessage(ctx context.Context, req ChatMessageRequest) (*ChatMessageResult, error)

	// GetChatMessages returns the full transcript of a session.
	GetChatMessages(ctx context.Context, sessionID string) ([]core.ChatMessage, error)

	// Resolve runs the pipeline once without a chat session or a case,
	// returning the decision, the reply, and the audit material.
	Resolve(ctx context.Context, req ResolveRequest) (*ResolveResult, error)

	// ListCases returns cases, optionally filtered by status.
	ListCases(ctx context.Context, status *core.CaseStatus) (*CaseListResult, error)

	// GetCase returns one case with its stored AI outputs.
	GetCase(ctx context.Context, caseID string) (*core.Case, error)

	// AddCasePhoto appends an uploaded photo URL to a case.
	AddCasePhoto(ctx context.Context, caseID, url string) (*core.Case, error)

	// RecordHumanDecision stores the reviewer verdict and notes.
	RecordHumanDecision(ctx context.Context, req HumanDecisionRequest) (*core.Case, error)

	// FinalizeCase runs the finalize stage for a case that already has a
	// human decision, persists the closing reply, and closes the case.
	FinalizeCase(ctx context.Context, caseID string) (*FinalizeCaseResult, error)
}
