package ai

import (
	"context"
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Profile selects generation settings for one model call.
type Profile struct {
	Name        string
	Temperature float64
	MaxTokens   int
}

// Generation profiles. Draft replies stay short; finalize output is a
// structured JSON payload; repair retries run cold with a tight budget.
var (
	ProfileDraft    = Profile{Name: "draft", Temperature: 0.2, MaxTokens: 180}
	ProfileFinalize = Profile{Name: "finalize", Temperature: 0.2, MaxTokens: 260}
	ProfileRepair   = Profile{Name: "repair", Temperature: 0.0, MaxTokens: 260}
)

// Generator is the language-model boundary. Output may be empty and must
// never be assumed deterministic.
type Generator interface {
	Generate(ctx context.Context, system, user string, profile Profile) (string, error)
}

// Client calls an OpenAI-compatible chat completions endpoint
// (OpenRouter works via LLM_BASE_URL).
type Client struct {
	client *openai.Client
	model  string
}

// NewClient constructs a Client from explicit settings. Empty baseURL
// means the default OpenAI endpoint.
func NewClient(apiKey, baseURL, model string) *Client {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if model == "" {
		model = string(openai.ChatModelGPT4oMini)
	}
	client := openai.NewClient(opts...)
	return &Client{client: &client, model: model}
}

// NewClientFromEnv reads OPENAI_API_KEY, LLM_BASE_URL, and LLM_MODEL.
func NewClientFromEnv() *Client {
	return NewClient(os.Getenv("OPENAI_API_KEY"), os.Getenv("LLM_BASE_URL"), os.Getenv("LLM_MODEL"))
}

func (c *Client) Generate(ctx context.Context, system, user string, profile Profile) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(profile.Temperature),
		MaxTokens:   openai.Int(int64(profile.MaxTokens)),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion (%s) failed: %w", profile.Name, err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
