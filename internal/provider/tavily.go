package provider

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/plateful/recipe-cli/internal/model"
	"github.com/plateful/recipe-cli/internal/resilience"
	"github.com/plateful/recipe-cli/pkg/tavily"
)

// TavilySearch adapts the Tavily client to the pipeline's search
// contract. A client-side rate limiter keeps bursts under the API's
// request budget.
type TavilySearch struct {
	client  tavily.Client
	limiter *rate.Limiter
	retry   resilience.RetryPolicy
}

// NewTavilySearch creates the adapter. rps caps outbound requests per
// second; zero or negative means 1.
func NewTavilySearch(client tavily.Client, rps float64) *TavilySearch {
	if rps <= 0 {
		rps = 1
	}
	return &TavilySearch{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		retry: resilience.RetryPolicy{
			MaxAttempts: 2,
			BaseDelay:   500 * time.Millisecond,
			MaxDelay:    2 * time.Second,
			OnRetry:     resilience.RetryLogger("tavily", "search"),
		},
	}
}

// Name identifies the provider for breakers, caching and logs.
func (t *TavilySearch) Name() string { return "tavily" }

// Search runs one query and maps the results to SearchHits. An empty
// result list is a valid response, not an error.
func (t *TavilySearch) Search(ctx context.Context, query string, maxResults int, deep bool) ([]model.SearchHit, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "tavily search: rate limiter")
	}

	depth := tavily.DepthBasic
	if deep {
		depth = tavily.DepthAdvanced
	}

	resp, err := resilience.RetryVal(ctx, t.retry, func(ctx context.Context) (*tavily.SearchResponse, error) {
		return t.client.Search(ctx, tavily.SearchRequest{
			Query:       query,
			SearchDepth: depth,
			MaxResults:  maxResults,
		})
	})
	if err != nil {
		return nil, eris.Wrap(resilience.ErrProviderUnavailable, err.Error())
	}

	hits := make([]model.SearchHit, 0, len(resp.Results))
	for _, r := range resp.Results {
		hit := model.SearchHit{
			Title:    r.Title,
			URL:      r.URL,
			Snippet:  r.Content,
			RawScore: r.Score,
		}
		if r.PublishedDate != "" {
			if ts, parseErr := time.Parse("2006-01-02", r.PublishedDate); parseErr == nil {
				hit.PublishedAt = &ts
			}
		}
		hits = append(hits, hit)
	}

	zap.L().Debug("tavily search complete",
		zap.String("query", query),
		zap.Int("results", len(hits)),
	)
	return hits, nil
}
