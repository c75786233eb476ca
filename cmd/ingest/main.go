package main

import (
	"context"
	"log"
	"os"

	"returns-copilot/internal/db"
	"returns-copilot/internal/rag"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		log.Fatal("OPENAI_API_KEY is required for ingestion")
	}
	dir := os.Getenv("POLICIES_DIR")
	if dir == "" {
		dir = "policies"
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	embedder := rag.NewOpenAIEmbedder(apiKey, os.Getenv("LLM_BASE_URL"), os.Getenv("EMBED_MODEL"))
	store := rag.NewPGVectorStore(pool, embedder)
	ingestor := rag.NewIngestor(store, embedder)

	if err := ingestor.IngestDir(ctx, dir); err != nil {
		log.Fatalf("ingest: %v", err)
	}
	log.Println("ingest: policy corpus loaded")
}
