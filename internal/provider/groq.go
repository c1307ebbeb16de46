package provider

import (
	"context"
	"fmt"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/plateful/recipe-cli/internal/model"
	"github.com/plateful/recipe-cli/internal/resilience"
)

const (
	groqBaseURL      = "https://api.groq.com/openai/v1"
	defaultGroqModel = "llama-3.3-70b-versatile"
)

// GroqExtractor extracts recipes through Groq's OpenAI-compatible chat
// API. Cheapest and fastest of the cascade, so it runs first; it cannot
// browse, so it works from the model's knowledge of the URL and fails
// cleanly when that is not enough.
type GroqExtractor struct {
	opts    []option.RequestOption
	model   string
	limiter *rate.Limiter
}

// NewGroqExtractor creates the adapter. An empty model selects the
// default Groq production model.
func NewGroqExtractor(apiKey, model string, rps float64, extra ...option.RequestOption) *GroqExtractor {
	if model == "" {
		model = defaultGroqModel
	}
	if rps <= 0 {
		rps = 2
	}
	opts := append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(groqBaseURL),
	}, extra...)
	return &GroqExtractor{
		opts:    opts,
		model:   model,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Name identifies the provider for breakers, caching and logs.
func (g *GroqExtractor) Name() string { return "groq" }

// Extract runs the extraction prompt and decodes the completion.
func (g *GroqExtractor) Extract(ctx context.Context, url string) (model.RecipeDraft, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return model.RecipeDraft{}, eris.Wrap(err, "groq extract: rate limiter")
	}

	client := openai.NewClient(g.opts...)
	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(fmt.Sprintf(extractionPrompt, url)),
		},
	})
	if err != nil {
		return model.RecipeDraft{}, eris.Wrap(resilience.ErrProviderUnavailable, err.Error())
	}
	if len(resp.Choices) == 0 {
		return model.RecipeDraft{}, eris.Wrap(resilience.ErrParseFailure, "groq: empty choices")
	}

	return decodeDraft(resp.Choices[0].Message.Content, url, g.Name())
}
