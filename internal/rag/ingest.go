package rag

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// SplitMarkdown breaks a policy document into chunks at heading
// boundaries, keeping each heading with its body so a retrieved chunk
// stays self-describing.
func SplitMarkdown(text string) []string {
	lines := strings.Split(text, "\n")

	var chunks []string
	var current []string
	flush := func() {
		chunk := strings.TrimSpace(strings.Join(current, "\n"))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		current = current[:0]
	}

	for _, line := range lines {
		if strings.HasPrefix(line, "#") && len(current) > 0 {
			flush()
		}
		current = append(current, line)
	}
	flush()
	return chunks
}

// Ingestor loads the markdown policy corpus into the vector store.
type Ingestor struct {
	store    *PGVectorStore
	embedder Embedder
}

// NewIngestor constructs an Ingestor.
func NewIngestor(store *PGVectorStore, embedder Embedder) *Ingestor {
	return &Ingestor{store: store, embedder: embedder}
}

// IngestDir chunks, embeds, and upserts every markdown file under dir.
func (in *Ingestor) IngestDir(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read policies dir %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", entry.Name(), err)
		}

		chunks := SplitMarkdown(string(data))
		if len(chunks) == 0 {
			continue
		}

		embeddings, err := in.embedder.Embed(ctx, chunks)
		if err != nil {
			return fmt.Errorf("failed to embed %s: %w", entry.Name(), err)
		}
		if err := in.store.Upsert(ctx, entry.Name(), chunks, embeddings); err != nil {
			return err
		}
		log.Printf("ingested %s: %d chunks", entry.Name(), len(chunks))
	}
	return nil
}
