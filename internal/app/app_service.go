package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"unicode/utf8"

	"returns-copilot/internal/core"
	"returns-copilot/internal/pipeline"
)

const fallbackAssistantMessage = "Thanks — our team will review this."

// ErrHumanDecisionRequired is returned by FinalizeCase when the case has
// no recorded reviewer verdict yet.
var ErrHumanDecisionRequired = errors.New("human decision is required before finalizing")

type appService struct {
	catalog core.CatalogService
	cases   core.CaseService
	chat    core.ChatService
	pipe    *pipeline.Pipeline
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(
	catalog core.CatalogService,
	cases core.CaseService,
	chat core.ChatService,
	pipe *pipeline.Pipeline,
) ApplicationService {
	return &appService{catalog: catalog, cases: cases, chat: chat, pipe: pipe}
}

func (s *appService) StartChat(ctx context.Context) (*ChatStartResult, error) {
	id, err := s.chat.CreateSession(ctx)
	if err != nil {
		return nil, err
	}
	return &ChatStartResult{SessionID: id}, nil
}

// inferReason buckets the message into a stated reason when the customer
// did not supply one.
func inferReason(message string) string {
	text := strings.ToLower(message)
	switch {
	case containsAny(text, "doesn't fit", "too small", "too big", "wrong size", "changed my mind"):
		return "Doesn't fit"
	case containsAny(text, "lost", "missing", "not arrived", "label created", "in transit"):
		return "Shipping issue"
	case containsAny(text, "defect", "broke", "broken", "fading", "pilling", "zipper", "seam", "quality"):
		return "Quality issue"
	default:
		return "General inquiry"
	}
}

func containsAny(text string, keywords ...string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

func (s *appService) HandleChatMessage(ctx context.Context, req ChatMessageRequest) (*ChatMessageResult, error) {
	if err := s.chat.AddMessage(ctx, req.SessionID, "user", req.Message, nil); err != nil {
		return nil, err
	}

	reply := func(msg string, caseID *string) (*ChatMessageResult, error) {
		if err := s.chat.AddMessage(ctx, req.SessionID, "assistant", msg, caseID); err != nil {
			return nil, err
		}
		return &ChatMessageResult{SessionID: req.SessionID, AssistantMessage: msg, CaseID: caseID}, nil
	}

	if req.OrderID == "" {
		return reply("Please provide your order ID so I can check eligibility and next steps.", nil)
	}

	// Friendly early exit for unknown orders; the pipeline would also
	// handle it, but with an escalation instead of a correction prompt.
	if _, err := s.catalog.GetOrder(ctx, req.OrderID); err != nil {
		if errors.Is(err, core.ErrOrderNotFound) {
			return reply("I couldn't find that order ID. Please double-check it and try again.", nil)
		}
		return nil, fmt.Errorf("order lookup failed: %w", err)
	}

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = inferReason(req.Message)
	}

	state := s.pipe.Run(ctx, pipeline.Input{
		OrderID:          req.OrderID,
		Reason:           reason,
		Message:          req.Message,
		WantsStoreCredit: req.WantsStoreCredit,
		PhotosProvided:   req.PhotosProvided,
	})

	assistantMessage := strings.TrimSpace(state.Reply)
	if assistantMessage == "" {
		assistantMessage = fallbackAssistantMessage
	}

	var caseID *string
	var status *core.CaseStatus
	if state.Escalate || state.Decision.RequiresPhotos {
		st := core.CaseReadyForHumanReview
		if state.Decision.RequiresPhotos {
			st = core.CaseNeedsCustomerPhotos
		}

		id, err := s.cases.CreateCase(ctx, &core.Case{
			OrderID:          req.OrderID,
			Reason:           reason,
			CustomerMessage:  req.Message,
			WantsStoreCredit: req.WantsStoreCredit,
			PhotosRequired:   state.Decision.RequiresPhotos,
			Status:           st,
			AIDecision:       state.Decision,
			AIAudit:          state.Audit(),
			PolicyCitations:  citations(state.PolicyChunks),
			OrderFacts:       state.Order,
			PhotoURLs:        []string{},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open case: %w", err)
		}
		caseID = &id
		status = &st
	}

	res, err := reply(assistantMessage, caseID)
	if err != nil {
		return nil, err
	}
	res.Status = status
	return res, nil
}

// citations converts retrieved chunks to the stored citation form: at
// most 3, excerpts capped at 600 bytes without splitting a rune.
func citations(chunks []core.PolicyChunk) []core.PolicyCitation {
	if len(chunks) > 3 {
		chunks = chunks[:3]
	}
	out := make([]core.PolicyCitation, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, core.PolicyCitation{Source: c.Source, Excerpt: truncateExcerpt(c.Content, 600)})
	}
	return out
}

// truncateExcerpt caps s at max bytes, backing up to the nearest rune
// boundary so the cut never leaves a partial UTF-8 sequence.
func truncateExcerpt(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func (s *appService) Resolve(ctx context.Context, req ResolveRequest) (*ResolveResult, error) {
	// Unknown orders surface core.ErrOrderNotFound instead of an
	// escalated pipeline run; there is no case to catch them here.
	if _, err := s.catalog.GetOrder(ctx, req.OrderID); err != nil {
		return nil, err
	}

	state := s.pipe.Run(ctx, pipeline.Input{
		OrderID:          req.OrderID,
		Reason:           req.Reason,
		Message:          req.Message,
		WantsStoreCredit: req.WantsStoreCredit,
		PhotosProvided:   req.PhotosProvided,
	})

	reply := strings.TrimSpace(state.Reply)
	if reply == "" {
		reply = fallbackAssistantMessage
	}

	return &ResolveResult{
		Decision:      state.Decision,
		CustomerReply: reply,
		OrderFacts:    state.Order,
		Citations:     citations(state.PolicyChunks),
		Escalate:      state.Escalate,
		Trace:         state.Audit(),
	}, nil
}

func (s *appService) GetChatMessages(ctx context.Context, sessionID string) ([]core.ChatMessage, error) {
	return s.chat.GetMessages(ctx, sessionID)
}

func (s *appService) ListCases(ctx context.Context, status *core.CaseStatus) (*CaseListResult, error) {
	cases, err := s.cases.ListCases(ctx, status)
	if err != nil {
		return nil, err
	}
	return &CaseListResult{Cases: cases}, nil
}

func (s *appService) GetCase(ctx context.Context, caseID string) (*core.Case, error) {
	return s.cases.GetCase(ctx, caseID)
}

func (s *appService) AddCasePhoto(ctx context.Context, caseID, url string) (*core.Case, error) {
	return s.cases.AddPhotoURL(ctx, caseID, url)
}

func (s *appService) RecordHumanDecision(ctx context.Context, req HumanDecisionRequest) (*core.Case, error) {
	decision := core.HumanDecision(req.Decision)
	switch decision {
	case core.HumanApproved, core.HumanDenied:
	default:
		// Anything else is treated as a request for more information.
		decision = core.HumanMoreInfoRequested
	}
	return s.cases.SetHumanDecision(ctx, req.CaseID, decision, req.Notes)
}

func (s *appService) FinalizeCase(ctx context.Context, caseID string) (*FinalizeCaseResult, error) {
	c, err := s.cases.GetCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if c.HumanDecision == nil {
		return nil, ErrHumanDecisionRequired
	}

	notes := ""
	if c.HumanNotes != nil {
		notes = *c.HumanNotes
	}

	result, err := s.pipe.Finalize(ctx, pipeline.FinalizeInput{
		Order:         c.OrderFacts,
		Decision:      c.AIDecision,
		Reason:        c.Reason,
		Message:       c.CustomerMessage,
		HumanDecision: *c.HumanDecision,
		HumanNotes:    notes,
		PhotoURLs:     c.PhotoURLs,
	})
	if err != nil {
		return nil, err
	}

	if err := s.cases.SetFinalReply(ctx, caseID, result.CustomerReply); err != nil {
		return nil, err
	}

	return &FinalizeCaseResult{
		CaseID:        caseID,
		Status:        core.CaseClosed,
		CustomerReply: result.CustomerReply,
		NextActions:   result.NextActions,
	}, nil
}
