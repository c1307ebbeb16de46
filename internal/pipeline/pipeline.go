// Package pipeline orchestrates a full recipe search run: discover URLs,
// extract drafts in bounded batches, normalize, validate, and assemble a
// response that is never empty.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/plateful/recipe-cli/internal/discovery"
	"github.com/plateful/recipe-cli/internal/extract"
	"github.com/plateful/recipe-cli/internal/model"
	"github.com/plateful/recipe-cli/internal/normalize"
	"github.com/plateful/recipe-cli/internal/resilience"
	"github.com/plateful/recipe-cli/internal/validate"
)

// URLDiscoverer yields candidate URLs for a query.
type URLDiscoverer interface {
	Discover(ctx context.Context, query string, want int) ([]string, error)
}

// Extractor resolves one URL to a draft. It never fails outright; total
// provider failure surfaces as a placeholder draft in the result.
type Extractor interface {
	Extract(ctx context.Context, url string) extract.Result
}

// Config controls orchestration.
type Config struct {
	// BatchSize bounds concurrent extractions. Batches run strictly in
	// sequence. Default 3.
	BatchSize int
	// MaxAttempts is the total number of discovery+extraction passes,
	// including the first. Default 2.
	MaxAttempts int
	// MinYieldFraction of the requested count that must validate before
	// the run settles without another pass. Default 0.5.
	MinYieldFraction float64
	// Profile is the final acceptance gate. Zero value means the default
	// profile.
	Profile validate.Profile
	// Retry supplies the backoff schedule between passes.
	Retry resilience.RetryPolicy
	// Normalize options applied to every accepted draft.
	Normalize normalize.Options
}

// DefaultConfig returns orchestration defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:        3,
		MaxAttempts:      2,
		MinYieldFraction: 0.5,
		Profile:          validate.DefaultProfile,
		Retry:            resilience.DefaultRetryPolicy(),
	}
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = 3
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 2
	}
	if c.MinYieldFraction <= 0 {
		c.MinYieldFraction = 0.5
	}
	if c.Profile.MinScore == 0 {
		c.Profile = validate.DefaultProfile
	}
	return c
}

// Pipeline is the two-stage orchestrator.
type Pipeline struct {
	discoverer URLDiscoverer
	extractor  Extractor
	cfg        Config
}

// New creates a Pipeline.
func New(d URLDiscoverer, e Extractor, cfg Config) *Pipeline {
	return &Pipeline{discoverer: d, extractor: e, cfg: cfg.withDefaults()}
}

// urlOutcome is the per-URL result of the extract stage.
type urlOutcome struct {
	recipe model.NormalizedRecipe
	result model.ValidationResult
	errs   []string
	ok     bool
}

// Search runs the full pipeline for one request. It always returns a
// response: when every pass fails the response is assembled from the
// curated fallback set, with provenance marked in Source. The only error
// it returns is context cancellation.
func (p *Pipeline) Search(ctx context.Context, req model.SearchRequest, onProgress model.ProgressFunc) (*model.SearchResponse, error) {
	start := time.Now()
	runID := uuid.NewString()
	want := req.MaxResults
	if want <= 0 {
		want = 3
	}

	log := zap.L().With(zap.String("run_id", runID), zap.String("query", req.Query))
	emit := func(pr model.Progress) {
		pr.RunID = runID
		if onProgress != nil {
			onProgress(pr)
		}
	}

	minYield := int(float64(want)*p.cfg.MinYieldFraction + 0.5)
	if minYield < 1 {
		minYield = 1
	}

	var (
		accepted []model.NormalizedRecipe
		runErrs  []string
		seen     = make(map[string]bool)
	)

	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		query := effectiveQuery(req, attempt)
		emit(model.Progress{Stage: model.StageDiscovering, Attempt: attempt, TotalRecipes: want, Errors: runErrs})

		urls, err := p.discoverer.Discover(ctx, query, want-len(accepted))
		if ctx.Err() != nil {
			emit(model.Progress{Stage: model.StageErrored, Attempt: attempt, Errors: runErrs})
			return nil, ctx.Err()
		}
		if err != nil {
			runErrs = append(runErrs, fmt.Sprintf("discovery: %v", err))
			log.Warn("pipeline: discovery failed", zap.Int("attempt", attempt), zap.Error(err))
			if !p.backoff(ctx, attempt) {
				break
			}
			continue
		}

		urls = unseen(urls, seen)
		emit(model.Progress{Stage: model.StageExtracting, Attempt: attempt, URLsFound: len(urls), TotalRecipes: want, Errors: runErrs})

		outcomes := p.extractBatches(ctx, urls, attempt, want, len(accepted), emit)
		if ctx.Err() != nil {
			emit(model.Progress{Stage: model.StageErrored, Attempt: attempt, Errors: runErrs})
			return nil, ctx.Err()
		}

		emit(model.Progress{Stage: model.StageValidating, Attempt: attempt, URLsFound: len(urls), RecipesProcessed: len(outcomes), TotalRecipes: want, Errors: runErrs})
		for _, o := range outcomes {
			runErrs = append(runErrs, o.errs...)
			if o.ok {
				accepted = append(accepted, o.recipe)
			}
		}

		log.Info("pipeline: pass complete",
			zap.Int("attempt", attempt),
			zap.Int("urls", len(urls)),
			zap.Int("accepted", len(accepted)),
		)

		if len(accepted) >= minYield {
			break
		}
		if !p.backoff(ctx, attempt) {
			break
		}
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	resp := p.assemble(req.Query, want, accepted, runErrs)
	resp.SearchTimeMS = time.Since(start).Milliseconds()

	emit(model.Progress{
		Stage:            model.StageComplete,
		URLsFound:        len(seen),
		RecipesProcessed: len(resp.Recipes),
		TotalRecipes:     want,
		Errors:           resp.Errors,
	})
	log.Info("pipeline: run complete",
		zap.String("source", resp.Source),
		zap.Int("recipes", len(resp.Recipes)),
		zap.Int64("elapsed_ms", resp.SearchTimeMS),
	)
	return resp, nil
}

// extractBatches fans URLs out in fixed-size batches. Each batch finishes
// before the next starts so a slow batch cannot starve the run of its
// concurrency budget.
func (p *Pipeline) extractBatches(ctx context.Context, urls []string, attempt, want, already int, emit model.ProgressFunc) []urlOutcome {
	outcomes := make([]urlOutcome, len(urls))
	processed := already

	for base := 0; base < len(urls); base += p.cfg.BatchSize {
		end := base + p.cfg.BatchSize
		if end > len(urls) {
			end = len(urls)
		}

		var g errgroup.Group
		for i := base; i < end; i++ {
			i := i
			g.Go(func() error {
				outcomes[i] = p.processURL(ctx, urls[i])
				return nil
			})
		}
		_ = g.Wait()

		if ctx.Err() != nil {
			return outcomes[:end]
		}
		for i := base; i < end; i++ {
			processed++
			emit(model.Progress{
				Stage:            model.StageExtracting,
				Attempt:          attempt,
				URLsFound:        len(urls),
				RecipesProcessed: processed,
				TotalRecipes:     want,
			})
		}
	}
	return outcomes
}

// processURL runs extract, normalize, and both validation gates for one
// URL. The acceptable profile weeds out garbage cheaply; survivors face
// the configured final profile.
func (p *Pipeline) processURL(ctx context.Context, url string) urlOutcome {
	var out urlOutcome

	res := p.extractor.Extract(ctx, url)
	for _, a := range res.Attempts {
		out.errs = append(out.errs, fmt.Sprintf("extract %s via %s: %v", url, a.Provider, a.Err))
	}

	recipe := normalize.Normalize(res.Draft, p.cfg.Normalize)

	if pre := validate.Validate(recipe, validate.AcceptableProfile); !pre.IsValid {
		out.errs = append(out.errs, rejectionMessage(url, pre))
		return out
	}

	final := validate.Validate(recipe, p.cfg.Profile)
	if !final.IsValid {
		out.errs = append(out.errs, rejectionMessage(url, final))
		return out
	}

	out.recipe = recipe
	out.result = final
	out.ok = true
	return out
}

// assemble builds the final response, topping up with curated fallbacks
// when the live yield came up short.
func (p *Pipeline) assemble(query string, want int, accepted []model.NormalizedRecipe, errs []string) *model.SearchResponse {
	if errs == nil {
		errs = []string{}
	}
	if len(accepted) > want {
		accepted = accepted[:want]
	}

	resp := &model.SearchResponse{
		Recipes: accepted,
		Errors:  errs,
	}

	switch {
	case len(accepted) == 0:
		resp.Recipes = FallbackRecipes(query, want)
		resp.Source = model.SourceFallback
	case len(accepted) < want:
		resp.Recipes = append(resp.Recipes, FallbackRecipes(query, want-len(accepted))...)
		resp.Source = model.SourcePartialFallback
	default:
		resp.Source = model.SourceLive
	}

	if resp.Recipes == nil {
		resp.Recipes = []model.NormalizedRecipe{}
	}
	resp.TotalFound = len(resp.Recipes)
	return resp
}

// backoff sleeps between passes per the retry schedule. It returns false
// when no further pass should run.
func (p *Pipeline) backoff(ctx context.Context, attempt int) bool {
	if attempt >= p.cfg.MaxAttempts {
		return false
	}
	timer := time.NewTimer(p.cfg.Retry.Delay(attempt - 1))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// effectiveQuery folds the request's context into the search query, and
// broadens it on retry passes.
func effectiveQuery(req model.SearchRequest, attempt int) string {
	parts := []string{req.Query}
	if req.CulturalContext != "" {
		parts = append(parts, req.CulturalContext)
	}
	parts = append(parts, req.DietaryRestrictions...)
	q := strings.Join(parts, " ")
	if attempt > 1 {
		q = discovery.Broaden(q, attempt-1)
	}
	return q
}

// unseen filters out URLs already processed in an earlier pass and marks
// the remainder as seen.
func unseen(urls []string, seen map[string]bool) []string {
	out := urls[:0:0]
	for _, u := range urls {
		if seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

func rejectionMessage(url string, v model.ValidationResult) string {
	reasons := make([]string, 0, len(v.Issues))
	for _, is := range v.Issues {
		if is.Severity == model.SeverityCritical || is.Severity == model.SeverityMajor {
			reasons = append(reasons, is.Message)
		}
	}
	if len(reasons) == 0 {
		reasons = append(reasons, fmt.Sprintf("score %d below threshold", v.Score))
	}
	return fmt.Sprintf("validate %s: rejected (score %d): %s", url, v.Score, strings.Join(reasons, "; "))
}
