package provider

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/plateful/recipe-cli/internal/model"
	"github.com/plateful/recipe-cli/internal/resilience"
	"github.com/plateful/recipe-cli/pkg/perplexity"
)

// PerplexityExtractor extracts recipes through Perplexity's
// search-grounded chat completions. Slower than Groq but reads the live
// page, so it sits later in the cascade as the higher-quality fallback.
type PerplexityExtractor struct {
	client  perplexity.Client
	limiter *rate.Limiter
}

// NewPerplexityExtractor creates the adapter.
func NewPerplexityExtractor(client perplexity.Client, rps float64) *PerplexityExtractor {
	if rps <= 0 {
		rps = 1
	}
	return &PerplexityExtractor{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Name identifies the provider for breakers, caching and logs.
func (p *PerplexityExtractor) Name() string { return "perplexity" }

// Extract asks Perplexity to read the page and return a structured
// recipe, then decodes it strictly.
func (p *PerplexityExtractor) Extract(ctx context.Context, url string) (model.RecipeDraft, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return model.RecipeDraft{}, eris.Wrap(err, "perplexity extract: rate limiter")
	}

	temp := 0.1
	resp, err := p.client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
		Messages: []perplexity.Message{
			{Role: "user", Content: fmt.Sprintf(extractionPrompt, url)},
		},
		Temperature: &temp,
	})
	if err != nil {
		return model.RecipeDraft{}, eris.Wrap(resilience.ErrProviderUnavailable, err.Error())
	}

	draft, err := decodeDraft(resp.Content(), url, p.Name())
	if err != nil {
		return model.RecipeDraft{}, err
	}

	// Citations double as image-free provenance; keep the first few as
	// supporting sources when the page itself gave us nothing.
	if len(draft.Images) == 0 {
		for _, c := range resp.Citations {
			if isImageURL(c) {
				draft.Images = append(draft.Images, c)
			}
		}
	}
	return draft, nil
}

func isImageURL(u string) bool {
	for _, ext := range []string{".jpg", ".jpeg", ".png", ".webp"} {
		if len(u) > len(ext) && u[len(u)-len(ext):] == ext {
			return true
		}
	}
	return false
}
