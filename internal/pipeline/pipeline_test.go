package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plateful/recipe-cli/internal/extract"
	"github.com/plateful/recipe-cli/internal/model"
	"github.com/plateful/recipe-cli/internal/resilience"
	"github.com/plateful/recipe-cli/internal/validate"
)

type fakeDiscoverer struct {
	calls []string
	fn    func(call int, query string, want int) ([]string, error)
}

func (f *fakeDiscoverer) Discover(_ context.Context, query string, want int) ([]string, error) {
	f.calls = append(f.calls, query)
	return f.fn(len(f.calls), query, want)
}

type fakeExtractor struct {
	calls []string
	fn    func(url string) extract.Result
}

func (f *fakeExtractor) Extract(_ context.Context, url string) extract.Result {
	f.calls = append(f.calls, url)
	return f.fn(url)
}

// strongDraft passes the default validation profile comfortably.
func strongDraft(title, url string) model.RecipeDraft {
	return model.RecipeDraft{
		Title:       title,
		Description: "A slow-simmered classic.",
		Ingredients: []model.Ingredient{
			{Name: "red lentils", Amount: 1, Unit: "cup", Synonyms: "masoor dal"},
			{Name: "berbere spice blend", Amount: 2, Unit: "tablespoon"},
		},
		Instructions: []model.Instruction{
			{Step: 1, Text: "Toast the berbere in oil at 350°F for 2 minutes.", TimeMinutes: 2},
			{Step: 2, Text: "Add the lentils and simmer for 30 minutes until thick.", TimeMinutes: 30},
		},
		Metadata: model.RecipeMetadata{
			Servings:             4,
			TotalTimeMinutes:     45,
			Difficulty:           "easy",
			CulturalAuthenticity: "traditional",
		},
		Images:          []string{"https://img.example.com/dish.jpg"},
		CulturalContext: "A centerpiece of Ethiopian fasting tables for generations.",
		SourceURL:       url,
	}
}

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.Retry = resilience.RetryPolicy{
		MaxAttempts: 2,
		BaseDelay:   time.Millisecond,
		MaxDelay:    time.Millisecond,
	}
	return cfg
}

func TestSearch_LiveWithOneRejection(t *testing.T) {
	urls := []string{
		"https://a.example.com/recipe/1",
		"https://b.example.com/recipe/2",
		"https://c.example.com/recipe/3",
		"https://d.example.com/recipe/4",
		"https://e.example.com/recipe/5",
	}
	disc := &fakeDiscoverer{fn: func(_ int, _ string, _ int) ([]string, error) {
		return urls, nil
	}}
	ext := &fakeExtractor{fn: func(url string) extract.Result {
		if strings.HasPrefix(url, "https://e.") {
			// Primary provider failed, placeholder synthesized.
			return extract.Result{
				Draft:    extract.PlaceholderDraft(url),
				Provider: "placeholder",
				Attempts: []extract.Attempt{{Provider: "groq", Err: resilience.ErrParseFailure}},
			}
		}
		d := strongDraft("Recipe for "+url, url)
		return extract.Result{Draft: d, Provider: "perplexity"}
	}}

	p := New(disc, ext, fastConfig())
	resp, err := p.Search(context.Background(), model.SearchRequest{Query: "ethiopian dinner", MaxResults: 4}, nil)

	require.NoError(t, err)
	assert.Equal(t, model.SourceLive, resp.Source)
	assert.Len(t, resp.Recipes, 4)
	assert.Equal(t, 4, resp.TotalFound)
	assert.Len(t, disc.calls, 1, "a full yield needs no retry")

	// The rejected URL's provider failure and validation rejection are reported.
	joined := strings.Join(resp.Errors, "\n")
	assert.Contains(t, joined, "https://e.example.com/recipe/5")
	assert.Contains(t, joined, "groq")
}

func TestSearch_TotalFailureServesFallback(t *testing.T) {
	disc := &fakeDiscoverer{fn: func(_ int, _ string, _ int) ([]string, error) {
		return nil, resilience.ErrNoURLsFound
	}}
	ext := &fakeExtractor{fn: func(url string) extract.Result {
		t.Error("extractor should not run when discovery fails")
		return extract.Result{}
	}}

	p := New(disc, ext, fastConfig())
	resp, err := p.Search(context.Background(), model.SearchRequest{Query: "ethiopian dinner", MaxResults: 3}, nil)

	require.NoError(t, err)
	assert.Equal(t, model.SourceFallback, resp.Source)
	assert.Len(t, resp.Recipes, 3)
	assert.Len(t, disc.calls, 2, "discovery retried once before falling back")
	assert.NotEmpty(t, resp.Errors)

	for _, r := range resp.Recipes {
		assert.Equal(t, "fallback", r.Provider)
		assert.False(t, r.Placeholder)
		v := validate.Validate(r, validate.AcceptableProfile)
		assert.True(t, v.IsValid, "fallback recipe %q must be schema-valid", r.Title)
	}
}

func TestSearch_ThinYieldRetriesThenPartialFallback(t *testing.T) {
	disc := &fakeDiscoverer{fn: func(call int, _ string, _ int) ([]string, error) {
		if call == 1 {
			return []string{"https://a.example.com/recipe/1"}, nil
		}
		// Retry repeats the first URL and finds one more.
		return []string{"https://a.example.com/recipe/1", "https://b.example.com/recipe/2"}, nil
	}}
	ext := &fakeExtractor{fn: func(url string) extract.Result {
		return extract.Result{Draft: strongDraft("Recipe at "+url, url), Provider: "groq"}
	}}

	p := New(disc, ext, fastConfig())
	resp, err := p.Search(context.Background(), model.SearchRequest{Query: "vegan ethiopian stew", MaxResults: 4}, nil)

	require.NoError(t, err)
	assert.Equal(t, model.SourcePartialFallback, resp.Source)
	assert.Len(t, resp.Recipes, 4)

	require.Len(t, disc.calls, 2)
	assert.NotEqual(t, disc.calls[0], disc.calls[1], "retry should broaden the query")
	assert.Len(t, ext.calls, 2, "already-processed URLs are not re-extracted")

	live := 0
	for _, r := range resp.Recipes {
		if r.Provider != "fallback" {
			live++
		}
	}
	assert.Equal(t, 2, live)
}

func TestSearch_FoldsContextIntoQuery(t *testing.T) {
	disc := &fakeDiscoverer{fn: func(_ int, query string, _ int) ([]string, error) {
		assert.Contains(t, query, "doro wat")
		assert.Contains(t, query, "ethiopian")
		assert.Contains(t, query, "gluten-free")
		return []string{"https://a.example.com/recipe/1"}, nil
	}}
	ext := &fakeExtractor{fn: func(url string) extract.Result {
		return extract.Result{Draft: strongDraft("Doro Wat", url), Provider: "groq"}
	}}

	p := New(disc, ext, fastConfig())
	_, err := p.Search(context.Background(), model.SearchRequest{
		Query:               "doro wat",
		CulturalContext:     "ethiopian",
		DietaryRestrictions: []string{"gluten-free"},
		MaxResults:          1,
	}, nil)
	require.NoError(t, err)
}

func TestSearch_ProgressStages(t *testing.T) {
	disc := &fakeDiscoverer{fn: func(_ int, _ string, _ int) ([]string, error) {
		return []string{"https://a.example.com/recipe/1"}, nil
	}}
	ext := &fakeExtractor{fn: func(url string) extract.Result {
		return extract.Result{Draft: strongDraft("Doro Wat", url), Provider: "groq"}
	}}

	var stages []model.Stage
	var runIDs []string
	p := New(disc, ext, fastConfig())
	_, err := p.Search(context.Background(), model.SearchRequest{Query: "doro wat", MaxResults: 1}, func(pr model.Progress) {
		stages = append(stages, pr.Stage)
		runIDs = append(runIDs, pr.RunID)
	})
	require.NoError(t, err)

	assert.Equal(t, []model.Stage{
		model.StageDiscovering,
		model.StageExtracting,
		model.StageExtracting, // per-item update
		model.StageValidating,
		model.StageComplete,
	}, stages)

	for _, id := range runIDs {
		assert.Equal(t, runIDs[0], id, "all events carry the same run id")
		assert.NotEmpty(t, id)
	}
}

func TestSearch_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	disc := &fakeDiscoverer{fn: func(_ int, _ string, _ int) ([]string, error) {
		cancel()
		return []string{"https://a.example.com/recipe/1"}, nil
	}}
	ext := &fakeExtractor{fn: func(url string) extract.Result {
		return extract.Result{Draft: strongDraft("Doro Wat", url), Provider: "groq"}
	}}

	p := New(disc, ext, fastConfig())
	_, err := p.Search(ctx, model.SearchRequest{Query: "doro wat", MaxResults: 1}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFallbackRecipes_BoundedAndValid(t *testing.T) {
	assert.Nil(t, FallbackRecipes("anything", 0))

	got := FallbackRecipes("lentil stew", 10)
	assert.NotEmpty(t, got)
	assert.LessOrEqual(t, len(got), 10)

	for _, r := range got {
		assert.Equal(t, "fallback", r.Provider)
		assert.NotEmpty(t, r.Ingredients)
		assert.NotEmpty(t, r.Instructions)
		assert.Greater(t, r.Metadata.Servings, 0)
	}
}

func TestFallbackRecipes_QueryBias(t *testing.T) {
	got := FallbackRecipes("quick shiro for dinner", 1)
	require.Len(t, got, 1)
	assert.Contains(t, strings.ToLower(got[0].Title), "shiro")
}

func TestSearch_ResponseNeverExceedsRequested(t *testing.T) {
	disc := &fakeDiscoverer{fn: func(_ int, _ string, want int) ([]string, error) {
		urls := make([]string, want+3)
		for i := range urls {
			urls[i] = fmt.Sprintf("https://site%d.example.com/recipe", i)
		}
		return urls, nil
	}}
	ext := &fakeExtractor{fn: func(url string) extract.Result {
		return extract.Result{Draft: strongDraft("Recipe at "+url, url), Provider: "groq"}
	}}

	p := New(disc, ext, fastConfig())
	resp, err := p.Search(context.Background(), model.SearchRequest{Query: "ethiopian", MaxResults: 2}, nil)
	require.NoError(t, err)
	assert.Len(t, resp.Recipes, 2)
	assert.Equal(t, model.SourceLive, resp.Source)
}
