// Package pipeline implements the returns resolution pipeline: a
// logically single-threaded state machine that takes one customer
// request from intake through decision, draft, and validation, plus the
// post-human-review finalize stage.
//
// Transitions:
//
//	INTAKE → FETCH_ORDER → RETRIEVE → DECIDE → DRAFT → VALIDATE → {DRAFT | DONE}
//
// The VALIDATE → DRAFT edge is taken at most once, governed by the
// retry counter in State.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"returns-copilot/internal/ai"
	"returns-copilot/internal/core"
)

// PolicyRetriever is the retrieval boundary of the pipeline.
type PolicyRetriever interface {
	Retrieve(ctx context.Context, query string) []core.PolicyChunk
}

// Pipeline wires the pipeline's collaborators. It holds no per-request
// state; concurrent invocations share only the (read-mostly) retriever
// and LLM endpoints.
type Pipeline struct {
	catalog   core.CatalogService
	retriever PolicyRetriever
	llm       ai.Generator
	now       func() time.Time
}

// New constructs a Pipeline. now defaults to time.Now when nil.
func New(catalog core.CatalogService, retriever PolicyRetriever, llm ai.Generator, now func() time.Time) *Pipeline {
	if now == nil {
		now = time.Now
	}
	return &Pipeline{catalog: catalog, retriever: retriever, llm: llm, now: now}
}

// Run executes the full pipeline for one request. It always returns a
// terminal State carrying whatever reply exists plus accumulated error
// codes; nothing in this path is fatal.
func (p *Pipeline) Run(ctx context.Context, in Input) State {
	s := State{Input: in, Errors: []string{}}

	p.intake(&s)
	p.fetchOrder(ctx, &s)
	p.retrieve(ctx, &s)
	p.decide(&s)
	p.draft(ctx, &s)

	// VALIDATE with a single bounded retry. The retry's own failures
	// are recorded but never loop again.
	if errs := validateReply(s.Decision, s.Reply, s.PolicyChunks); len(errs) > 0 && s.Retries < 1 {
		s.Retries++
		s.Errors = append(s.Errors, errs...)
		s.DraftMaxTokens = draftTokensComplex
		p.draft(ctx, &s)
		if errs := validateReply(s.Decision, s.Reply, s.PolicyChunks); len(errs) > 0 {
			s.Errors = append(s.Errors, errs...)
		}
	} else {
		s.Errors = append(s.Errors, errs...)
	}

	return s
}

// fetchOrder loads and enriches the order. A missing or unknown order id
// escalates with an empty order instead of failing the request.
func (p *Pipeline) fetchOrder(ctx context.Context, s *State) {
	s.Order = &core.Order{}

	if s.OrderID == "" {
		s.Errors = append(s.Errors, "missing_order_id")
		s.Escalate = true
		return
	}

	order, err := p.catalog.GetOrder(ctx, s.OrderID)
	if err != nil {
		if errors.Is(err, core.ErrOrderNotFound) {
			s.Errors = append(s.Errors, "order_not_found")
		} else {
			s.Errors = append(s.Errors, "order_lookup_failed")
		}
		s.Escalate = true
		return
	}

	enriched, err := p.catalog.EnrichOrder(ctx, order)
	if err != nil {
		// Keep the un-enriched order; the classifier treats unknown
		// products conservatively.
		s.Errors = append(s.Errors, "order_enrichment_failed")
		s.Order = order
		return
	}
	s.Order = enriched
}

func (p *Pipeline) retrieve(ctx context.Context, s *State) {
	query := fmt.Sprintf("Reason: %s\nCustomer message: %s\nTask: Determine eligibility and required steps according to policy.",
		s.Reason, s.Message)
	s.PolicyChunks = p.retriever.Retrieve(ctx, query)
}

func (p *Pipeline) decide(s *State) {
	s.Intent = core.Classify(s.Reason, s.Message)
	decision, escalate := core.Decide(s.Order, core.DecideInput{
		Reason:           s.Reason,
		Message:          s.Message,
		WantsStoreCredit: s.WantsStoreCredit,
		PhotosProvided:   s.PhotosProvided,
	}, p.now())
	s.Decision = decision
	// A failed order lookup already forced escalation; the decision must
	// not clear it.
	s.Escalate = s.Escalate || escalate
}
