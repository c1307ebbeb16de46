package main

import (
	"time"

	"go.uber.org/zap"

	"github.com/plateful/recipe-cli/internal/cache"
	"github.com/plateful/recipe-cli/internal/discovery"
	"github.com/plateful/recipe-cli/internal/extract"
	"github.com/plateful/recipe-cli/internal/pipeline"
	"github.com/plateful/recipe-cli/internal/provider"
	"github.com/plateful/recipe-cli/internal/quality"
	"github.com/plateful/recipe-cli/internal/resilience"
	"github.com/plateful/recipe-cli/internal/validate"
	"github.com/plateful/recipe-cli/pkg/perplexity"
	"github.com/plateful/recipe-cli/pkg/tavily"
)

// pipelineEnv bundles the wired pipeline with the resources commands
// need to inspect or shut down.
type pipelineEnv struct {
	Pipeline *pipeline.Pipeline
	Breakers *resilience.Breakers
	store    *cache.Cache
}

// initPipeline wires the full stack from config: clients, adapters,
// breakers, caches, discovery, cascade, orchestrator.
func initPipeline() (*pipelineEnv, error) {
	if err := cfg.Validate("search"); err != nil {
		return nil, err
	}

	store := cache.New(time.Duration(cfg.Cache.DefaultTTLMins) * time.Minute)
	store.StartSweeper(time.Duration(cfg.Cache.SweepIntervalMins) * time.Minute)

	breakers := resilience.NewBreakers(resilience.BreakerConfig{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		Cooldown:         time.Duration(cfg.Breaker.CooldownSecs) * time.Second,
		SuccessThreshold: cfg.Breaker.SuccessThreshold,
		OnStateChange: func(provider string, from, to resilience.State) {
			zap.L().Warn("circuit breaker state change",
				zap.String("provider", provider),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	tavilyClient := tavily.NewClient(cfg.Tavily.Key, tavily.WithBaseURL(cfg.Tavily.BaseURL))
	search := provider.NewTavilySearch(tavilyClient, cfg.Tavily.RPS)

	disc := discovery.New(
		search,
		discovery.NewHTTPChecker(2),
		breakers,
		store,
		quality.DefaultFilterConfig(),
		discovery.Config{
			Overfetch:       cfg.Discovery.Overfetch,
			DomainCap:       cfg.Discovery.DomainCap,
			SuccessFraction: cfg.Discovery.SuccessFraction,
			MaxRetries:      cfg.Discovery.MaxRetries,
			SampleFraction:  cfg.Discovery.SampleFraction,
			CacheTTL:        cfg.Discovery.CacheTTL(),
		},
	)

	// Cheapest extractor first.
	var extractors []extract.Provider
	if cfg.Groq.Key != "" {
		extractors = append(extractors, provider.NewGroqExtractor(cfg.Groq.Key, cfg.Groq.Model, cfg.Groq.RPS))
	}
	if cfg.Perplexity.Key != "" {
		pplx := perplexity.NewClient(cfg.Perplexity.Key,
			perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
			perplexity.WithModel(cfg.Perplexity.Model),
		)
		extractors = append(extractors, provider.NewPerplexityExtractor(pplx, cfg.Perplexity.RPS))
	}

	cascade := extract.New(extractors, breakers, store, extract.Config{
		Timeout:  time.Duration(cfg.Extract.TimeoutSecs) * time.Second,
		CacheTTL: time.Duration(cfg.Extract.CacheTTLMins) * time.Minute,
	})

	pipe := pipeline.New(disc, cascade, pipeline.Config{
		BatchSize:        cfg.Pipeline.BatchSize,
		MaxAttempts:      cfg.Pipeline.MaxAttempts,
		MinYieldFraction: cfg.Pipeline.MinYieldFraction,
		Profile:          profileByName(cfg.Pipeline.Profile),
		Retry:            resilience.DefaultRetryPolicy(),
	})

	return &pipelineEnv{Pipeline: pipe, Breakers: breakers, store: store}, nil
}

// Close releases background resources.
func (e *pipelineEnv) Close() {
	e.store.Stop()
}

func profileByName(name string) validate.Profile {
	switch name {
	case "acceptable":
		return validate.AcceptableProfile
	case "strict":
		return validate.StrictProfile
	default:
		return validate.DefaultProfile
	}
}
