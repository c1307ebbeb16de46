// Package extract runs the multi-provider extraction cascade: providers
// are tried in priority order per URL, each behind its circuit breaker
// and a hard timeout, and the first structurally sufficient draft wins.
package extract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/plateful/recipe-cli/internal/cache"
	"github.com/plateful/recipe-cli/internal/model"
	"github.com/plateful/recipe-cli/internal/resilience"
)

// Provider is the uniform extraction contract. A returned draft must
// have non-nil (possibly empty) ingredient and instruction slices.
type Provider interface {
	Name() string
	Extract(ctx context.Context, url string) (model.RecipeDraft, error)
}

// ProviderCached tags results served from the cache.
const ProviderCached = "cached"

// Config controls cascade behavior.
type Config struct {
	// Timeout bounds each individual provider call. Default 20s.
	Timeout time.Duration
	// CacheTTL for successful drafts. Default 1h.
	CacheTTL time.Duration
}

// DefaultConfig returns cascade defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:  20 * time.Second,
		CacheTTL: time.Hour,
	}
}

// Attempt records one provider try for the response's error log.
type Attempt struct {
	Provider string
	Err      error
}

// Result is the cascade outcome for one URL. Attempts holds every
// failed try so nothing is silently discarded.
type Result struct {
	Draft    model.RecipeDraft
	Provider string
	Attempts []Attempt
}

// Cascade tries extraction providers in order for each URL.
type Cascade struct {
	providers []Provider
	breakers  *resilience.Breakers
	cache     *cache.Cache
	cfg       Config
}

// New creates a cascade. Providers are tried in the order given, so
// callers list the fastest and cheapest first. cache may be nil.
func New(providers []Provider, breakers *resilience.Breakers, c *cache.Cache, cfg Config) *Cascade {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	return &Cascade{providers: providers, breakers: breakers, cache: c, cfg: cfg}
}

// Extract resolves one URL to a draft. It never returns an error for
// provider failures: when every provider fails it synthesizes a
// placeholder draft so downstream stages always get a well-formed value,
// and the failures are reported through Result.Attempts.
func (c *Cascade) Extract(ctx context.Context, url string) Result {
	key := cache.Fingerprint("extract", url)
	if c.cache != nil {
		if draft, ok := cache.GetAs[model.RecipeDraft](c.cache, key); ok {
			zap.L().Debug("extract: cache hit", zap.String("url", url))
			return Result{Draft: draft, Provider: ProviderCached}
		}
	}

	var attempts []Attempt
	for _, p := range c.providers {
		draft, err := c.tryProvider(ctx, p, url)
		if err != nil {
			zap.L().Debug("extract: provider failed, trying next",
				zap.String("provider", p.Name()),
				zap.String("url", url),
				zap.Error(err),
			)
			attempts = append(attempts, Attempt{Provider: p.Name(), Err: err})
			continue
		}

		if c.cache != nil {
			c.cache.SetTTL(key, draft, c.cfg.CacheTTL)
		}
		return Result{Draft: draft, Provider: p.Name(), Attempts: attempts}
	}

	zap.L().Warn("extract: all providers failed, synthesizing placeholder",
		zap.String("url", url),
		zap.Int("attempts", len(attempts)),
	)
	return Result{
		Draft:    PlaceholderDraft(url),
		Provider: "placeholder",
		Attempts: attempts,
	}
}

// tryProvider runs one provider behind its breaker and the hard timeout.
// A draft with no ingredients and no instructions counts as a failure.
func (c *Cascade) tryProvider(ctx context.Context, p Provider, url string) (model.RecipeDraft, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	breaker := c.breakers.Get(p.Name())
	draft, err := resilience.ExecuteVal(callCtx, breaker, func(ctx context.Context) (model.RecipeDraft, error) {
		d, extractErr := p.Extract(ctx, url)
		if extractErr != nil {
			return model.RecipeDraft{}, extractErr
		}
		if len(d.Ingredients) == 0 && len(d.Instructions) == 0 {
			return model.RecipeDraft{}, eris.Wrap(resilience.ErrParseFailure,
				"draft has neither ingredients nor instructions")
		}
		return d, nil
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return model.RecipeDraft{}, eris.Wrap(resilience.ErrExtractionTimeout,
				fmt.Sprintf("%s exceeded %s for %s", p.Name(), c.cfg.Timeout, url))
		}
		return model.RecipeDraft{}, err
	}

	if draft.Ingredients == nil {
		draft.Ingredients = []model.Ingredient{}
	}
	if draft.Instructions == nil {
		draft.Instructions = []model.Instruction{}
	}
	draft.SourceURL = url
	draft.Provider = p.Name()
	return draft, nil
}
