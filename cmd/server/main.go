package main

import (
	"context"
	"log"
	"net/http"
	"os"

	webAdapter "returns-copilot/internal/adapters/web"
	"returns-copilot/internal/ai"
	"returns-copilot/internal/app"
	"returns-copilot/internal/core"
	"returns-copilot/internal/db"
	"returns-copilot/internal/pipeline"
	"returns-copilot/internal/rag"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	catalog := core.NewCatalogService(pool)
	cases := core.NewCaseService(pool)
	chat := core.NewChatService(pool)

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		log.Println("Warning: OPENAI_API_KEY is not set")
	}
	embedder := rag.NewOpenAIEmbedder(apiKey, os.Getenv("LLM_BASE_URL"), os.Getenv("EMBED_MODEL"))
	store := rag.NewPGVectorStore(pool, embedder)
	retriever := rag.NewRetriever(store, rag.DefaultConfig())
	llm := ai.NewClientFromEnv()

	pipe := pipeline.New(catalog, retriever, llm, nil)
	svc := app.NewAppService(catalog, cases, chat, pipe)

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	handler := webAdapter.NewHandler(svc, allowedOrigins)

	log.Printf("server starting on :%s", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("server: %v", err)
	}
}
