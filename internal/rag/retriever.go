package rag

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"returns-copilot/internal/core"
)

// Config tunes retrieval. The rerank bonuses are tuning values carried
// from observed score distributions; treat them as configuration, not
// derived quantities.
type Config struct {
	// K is how many candidates to pull from the vector index before
	// filtering and reranking.
	K int

	// ScoreThreshold drops candidates whose distance exceeds it.
	ScoreThreshold float64

	// MaxResults caps the chunks handed to the LLM.
	MaxResults int

	// EnableRouting narrows candidates to one policy file on a strong
	// topical signal.
	EnableRouting bool

	// PoliciesDir is the markdown corpus used when the vector backend is
	// unreachable.
	PoliciesDir string
}

// DefaultConfig returns the tuned retrieval settings.
func DefaultConfig() Config {
	dir := os.Getenv("POLICIES_DIR")
	if dir == "" {
		dir = "policies"
	}
	return Config{
		K:              8,
		ScoreThreshold: 0.76,
		MaxResults:     2,
		EnableRouting:  true,
		PoliciesDir:    dir,
	}
}

// Retriever returns the best-matching policy passages for a query. It
// never fails for a well-formed query and never returns an empty set
// while any candidate exists.
type Retriever struct {
	store Store
	cfg   Config
}

// NewRetriever constructs a Retriever over the given vector store.
func NewRetriever(store Store, cfg Config) *Retriever {
	if cfg.K <= 0 {
		cfg = DefaultConfig()
	}
	return &Retriever{store: store, cfg: cfg}
}

// routes maps topical keywords to the policy file that covers them,
// checked in order: warranty, shipping, returns, refunds.
var routes = []struct {
	keywords []string
	pattern  *regexp.Regexp
}{
	{
		keywords: []string{"warranty", "defect", "manufacturing", "photo", "pilling", "zipper", "seam"},
		pattern:  regexp.MustCompile(`(?i)warranty\.md$`),
	},
	{
		keywords: []string{"lost", "in transit", "label created", "delivered but missing", "carrier"},
		pattern:  regexp.MustCompile(`(?i)shipping_sla\.md$`),
	},
	{
		keywords: []string{"return", "exchange", "doesn't fit", "changed mind", "buyer remorse"},
		pattern:  regexp.MustCompile(`(?i)returns\.md$`),
	},
	{
		keywords: []string{"refund", "store credit", "gift", "restocking", "shipping fee", "inspection"},
		pattern:  regexp.MustCompile(`(?i)refunds\.md$`),
	},
}

// routePattern picks the source pattern for a query, or nil when no
// topical signal is strong enough to restrict candidates.
func routePattern(query string) *regexp.Regexp {
	q := strings.ToLower(query)
	for _, r := range routes {
		for _, k := range r.keywords {
			if strings.Contains(q, k) {
				return r.pattern
			}
		}
	}
	return nil
}

// rerankScore adjusts a chunk's distance with lexical hints so that
// evidence-bearing chunks beat near-ties. Lower stays better.
func rerankScore(query string, chunk core.PolicyChunk) float64 {
	text := strings.ToLower(chunk.Content)
	q := strings.ToLower(query)

	bonus := 0.0
	if strings.Contains(q, "photo") || strings.Contains(q, "evidence") || strings.Contains(q, "proof") {
		if strings.Contains(text, "photo") {
			bonus -= 0.08
		}
		if strings.Contains(text, "evidence") || strings.Contains(text, "verification") {
			bonus -= 0.04
		}
		if strings.Contains(text, "exclusion") || strings.Contains(text, "invalid") {
			bonus += 0.03
		}
	}
	if strings.Contains(text, "require") || strings.Contains(text, "must") {
		bonus -= 0.01
	}
	return chunk.Distance + bonus
}

// Retrieve runs the full pipeline: candidates, routing, threshold,
// rerank, truncate. A vector-backend failure degrades to the filesystem
// corpus rather than surfacing an error.
func (r *Retriever) Retrieve(ctx context.Context, query string) []core.PolicyChunk {
	results, err := r.store.SimilaritySearchWithScore(ctx, query, r.cfg.K)
	if err != nil {
		return r.fallbackRetrieve(query)
	}

	// Routing narrows candidates to one policy file, but never empties
	// the set: a pattern that matches nothing is skipped.
	if r.cfg.EnableRouting {
		if pattern := routePattern(query); pattern != nil {
			routed := make([]core.PolicyChunk, 0, len(results))
			for _, c := range results {
				if pattern.MatchString(c.Source) {
					routed = append(routed, c)
				}
			}
			if len(routed) > 0 {
				results = routed
			}
		}
	}

	filtered := make([]core.PolicyChunk, 0, len(results))
	for _, c := range results {
		if c.Distance <= r.cfg.ScoreThreshold {
			filtered = append(filtered, c)
		}
	}
	// Never return empty while candidates exist: keep the best 1-2
	// even above the threshold.
	if len(filtered) == 0 {
		n := len(results)
		if n > 2 {
			n = 2
		}
		filtered = results[:n]
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return rerankScore(query, filtered[i]) < rerankScore(query, filtered[j])
	})

	if len(filtered) > r.cfg.MaxResults {
		filtered = filtered[:r.cfg.MaxResults]
	}
	return filtered
}

var nonWord = regexp.MustCompile(`\W+`)

// fallbackRetrieve scores the on-disk markdown corpus by query-term hit
// count, mapped through 1/(1+hits) to keep lower-is-better ordering.
func (r *Retriever) fallbackRetrieve(query string) []core.PolicyChunk {
	entries, err := os.ReadDir(r.cfg.PoliciesDir)
	if err != nil {
		return nil
	}

	var terms []string
	for _, t := range nonWord.Split(strings.ToLower(query), -1) {
		if len(t) > 3 {
			terms = append(terms, t)
		}
	}

	var docs []core.PolicyChunk
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(r.cfg.PoliciesDir, entry.Name()))
		if err != nil {
			continue
		}
		text := strings.ToLower(string(data))
		hits := 0
		for _, t := range terms {
			hits += strings.Count(text, t)
		}
		docs = append(docs, core.PolicyChunk{
			Content:  string(data),
			Source:   entry.Name(),
			Distance: 1.0 / float64(1+hits),
		})
	}

	sort.SliceStable(docs, func(i, j int) bool { return docs[i].Distance < docs[j].Distance })
	if len(docs) > r.cfg.MaxResults {
		docs = docs[:r.cfg.MaxResults]
	}
	return docs
}
