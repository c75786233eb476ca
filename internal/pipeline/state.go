package pipeline

import (
	"returns-copilot/internal/core"
)

// Input is one inbound customer request.
type Input struct {
	OrderID          string
	Reason           string
	Message          string
	WantsStoreCredit bool
	PhotosProvided   bool
}

// State is the single mutable record threaded through the pipeline. It
// is owned by one invocation for its duration and discarded after the
// response is built; persistence of the outcome is the case layer's job.
// Each stage is a transform on this value, no ambient globals.
type State struct {
	Input

	Order        *core.Order
	Intent       core.Intent
	PolicyChunks []core.PolicyChunk
	Decision     core.Decision
	Escalate     bool

	Reply  string
	Errors []string

	// Control fields for the draft/validate loop.
	Retries        int
	Complexity     int
	Profile        string
	DraftMaxTokens int
}

// ChunkSources lists the retrieved policy files, for the audit record.
func (s *State) ChunkSources() []string {
	sources := make([]string, 0, len(s.PolicyChunks))
	for _, c := range s.PolicyChunks {
		sources = append(sources, c.Source)
	}
	return sources
}

// Audit summarizes how the pipeline ran, persisted verbatim on the case.
func (s *State) Audit() map[string]any {
	return map[string]any{
		"complexity":     s.Complexity,
		"llm_profile":    s.Profile,
		"retries":        s.Retries,
		"errors":         s.Errors,
		"policy_sources": s.ChunkSources(),
		"intent":         s.Intent,
	}
}
