package rag_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"returns-copilot/internal/core"
	"returns-copilot/internal/rag"
)

type fakeStore struct {
	chunks []core.PolicyChunk
	err    error
	calls  int
}

func (f *fakeStore) SimilaritySearchWithScore(_ context.Context, _ string, k int) ([]core.PolicyChunk, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.chunks) > k {
		return f.chunks[:k], nil
	}
	return f.chunks, nil
}

func testConfig(policiesDir string) rag.Config {
	return rag.Config{
		K:              8,
		ScoreThreshold: 0.76,
		MaxResults:     2,
		EnableRouting:  true,
		PoliciesDir:    policiesDir,
	}
}

func TestRetrieve_RoutingNarrowsToOneFile(t *testing.T) {
	store := &fakeStore{chunks: []core.PolicyChunk{
		{Content: "shipping terms", Source: "shipping_sla.md", Distance: 0.30},
		{Content: "warranty claims must include photos", Source: "warranty.md", Distance: 0.40},
		{Content: "warranty exclusions", Source: "warranty.md", Distance: 0.50},
	}}
	r := rag.NewRetriever(store, testConfig(""))

	got := r.Retrieve(context.Background(), "is a zipper defect covered by warranty?")
	for _, c := range got {
		if c.Source != "warranty.md" {
			t.Errorf("routing let through source %s", c.Source)
		}
	}
	if len(got) == 0 {
		t.Fatal("routing emptied the result set")
	}
}

func TestRetrieve_RoutingSkippedWhenNoCandidateMatches(t *testing.T) {
	// Warranty query, but the index only has returns chunks: routing
	// must fall through rather than return nothing.
	store := &fakeStore{chunks: []core.PolicyChunk{
		{Content: "returns accepted within 30 days", Source: "returns.md", Distance: 0.30},
	}}
	r := rag.NewRetriever(store, testConfig(""))

	got := r.Retrieve(context.Background(), "warranty defect")
	if len(got) != 1 || got[0].Source != "returns.md" {
		t.Fatalf("got %+v, want the unfiltered candidate", got)
	}
}

func TestRetrieve_ThresholdFallbackNeverEmpty(t *testing.T) {
	store := &fakeStore{chunks: []core.PolicyChunk{
		{Content: "a", Source: "returns.md", Distance: 0.90},
		{Content: "b", Source: "returns.md", Distance: 0.95},
		{Content: "c", Source: "returns.md", Distance: 0.99},
	}}
	r := rag.NewRetriever(store, testConfig(""))

	got := r.Retrieve(context.Background(), "return window")
	if len(got) != 2 {
		t.Fatalf("got %d chunks, want best 2 despite all above threshold", len(got))
	}
	if got[0].Content != "a" {
		t.Errorf("best unfiltered candidate not first: %+v", got)
	}
}

func TestRetrieve_RerankPrefersEvidenceChunks(t *testing.T) {
	store := &fakeStore{chunks: []core.PolicyChunk{
		{Content: "warranty exclusions make claims invalid", Source: "warranty.md", Distance: 0.40},
		{Content: "photo evidence is required for verification", Source: "warranty.md", Distance: 0.44},
	}}
	r := rag.NewRetriever(store, testConfig(""))

	got := r.Retrieve(context.Background(), "do you need photo evidence for a warranty claim?")
	if len(got) != 2 {
		t.Fatalf("got %d chunks, want 2", len(got))
	}
	// 0.44 - 0.08 - 0.04 - 0.01 beats 0.40 + 0.03.
	if got[0].Distance != 0.44 {
		t.Errorf("evidence chunk not reranked first: %+v", got)
	}
}

func TestRetrieve_Idempotent(t *testing.T) {
	store := &fakeStore{chunks: []core.PolicyChunk{
		{Content: "x", Source: "returns.md", Distance: 0.2},
		{Content: "y", Source: "returns.md", Distance: 0.3},
		{Content: "z", Source: "refunds.md", Distance: 0.4},
	}}
	r := rag.NewRetriever(store, testConfig(""))

	first := r.Retrieve(context.Background(), "can I return this jacket?")
	second := r.Retrieve(context.Background(), "can I return this jacket?")
	if !reflect.DeepEqual(first, second) {
		t.Errorf("same query on unchanged index differed:\n%+v\n%+v", first, second)
	}
}

func TestRetrieve_FilesystemFallback(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"warranty.md": "# Warranty\nDefect claims require photo evidence of the defect.",
		"returns.md":  "# Returns\nItems may be returned within thirty days.",
		"refunds.md":  "# Refunds\nRefunds go to the original payment method.",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	store := &fakeStore{err: errors.New("connection refused")}
	r := rag.NewRetriever(store, testConfig(dir))

	got := r.Retrieve(context.Background(), "photo evidence for a defect claim")
	if len(got) == 0 || len(got) > 2 {
		t.Fatalf("fallback returned %d chunks, want 1-2", len(got))
	}
	if got[0].Source != "warranty.md" {
		t.Errorf("best fallback source = %s, want warranty.md", got[0].Source)
	}
}

func TestSplitMarkdown(t *testing.T) {
	text := "# Returns\nWithin 30 days.\n\n## Exceptions\nFinal sale items.\n"
	chunks := rag.SplitMarkdown(text)
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2: %q", len(chunks), chunks)
	}
	if chunks[1] != "## Exceptions\nFinal sale items." {
		t.Errorf("unexpected second chunk: %q", chunks[1])
	}
}
