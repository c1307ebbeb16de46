package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plateful/recipe-cli/internal/cache"
	"github.com/plateful/recipe-cli/internal/model"
	"github.com/plateful/recipe-cli/internal/resilience"
)

type fakeProvider struct {
	name  string
	calls int
	fn    func(ctx context.Context, url string) (model.RecipeDraft, error)
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Extract(ctx context.Context, url string) (model.RecipeDraft, error) {
	f.calls++
	return f.fn(ctx, url)
}

func okDraft(title string) model.RecipeDraft {
	return model.RecipeDraft{
		Title:       title,
		Ingredients: []model.Ingredient{{Name: "lentils", Amount: 1, Unit: "cup"}},
		Instructions: []model.Instruction{
			{Step: 1, Text: "Simmer for 30 minutes."},
		},
		Metadata: model.RecipeMetadata{Servings: 4, TotalTimeMinutes: 45},
	}
}

func newCascade(c *cache.Cache, providers ...Provider) *Cascade {
	return New(providers, resilience.NewBreakers(resilience.DefaultBreakerConfig()), c, DefaultConfig())
}

func TestExtract_FirstProviderWins(t *testing.T) {
	first := &fakeProvider{name: "groq", fn: func(_ context.Context, _ string) (model.RecipeDraft, error) {
		return okDraft("Misir Wat"), nil
	}}
	second := &fakeProvider{name: "perplexity", fn: func(_ context.Context, _ string) (model.RecipeDraft, error) {
		t.Error("second provider should not be called")
		return model.RecipeDraft{}, nil
	}}

	res := newCascade(nil, first, second).Extract(context.Background(), "https://example.com/misir-wat")

	assert.Equal(t, "groq", res.Provider)
	assert.Equal(t, "Misir Wat", res.Draft.Title)
	assert.Empty(t, res.Attempts)
	assert.Equal(t, 0, second.calls)
}

func TestExtract_FallsBackOnFailure(t *testing.T) {
	first := &fakeProvider{name: "groq", fn: func(_ context.Context, _ string) (model.RecipeDraft, error) {
		return model.RecipeDraft{}, errors.New("model overloaded")
	}}
	second := &fakeProvider{name: "perplexity", fn: func(_ context.Context, _ string) (model.RecipeDraft, error) {
		return okDraft("Doro Wat"), nil
	}}

	res := newCascade(nil, first, second).Extract(context.Background(), "https://example.com/doro-wat")

	assert.Equal(t, "perplexity", res.Provider)
	require.Len(t, res.Attempts, 1)
	assert.Equal(t, "groq", res.Attempts[0].Provider)
}

func TestExtract_EmptyDraftIsAFailure(t *testing.T) {
	empty := &fakeProvider{name: "groq", fn: func(_ context.Context, _ string) (model.RecipeDraft, error) {
		return model.RecipeDraft{Title: "Hollow", Ingredients: []model.Ingredient{}, Instructions: []model.Instruction{}}, nil
	}}
	backup := &fakeProvider{name: "perplexity", fn: func(_ context.Context, _ string) (model.RecipeDraft, error) {
		return okDraft("Real"), nil
	}}

	res := newCascade(nil, empty, backup).Extract(context.Background(), "https://example.com/x")

	assert.Equal(t, "perplexity", res.Provider)
	require.Len(t, res.Attempts, 1)
	assert.ErrorIs(t, res.Attempts[0].Err, resilience.ErrParseFailure)
}

func TestExtract_TimeoutFeedsBreakerAndFallsBack(t *testing.T) {
	slow := &fakeProvider{name: "groq", fn: func(ctx context.Context, _ string) (model.RecipeDraft, error) {
		<-ctx.Done()
		return model.RecipeDraft{}, ctx.Err()
	}}
	fast := &fakeProvider{name: "perplexity", fn: func(_ context.Context, _ string) (model.RecipeDraft, error) {
		return okDraft("Rescued"), nil
	}}

	breakers := resilience.NewBreakers(resilience.DefaultBreakerConfig())
	cfg := Config{Timeout: 20 * time.Millisecond}
	c := New([]Provider{slow, fast}, breakers, nil, cfg)

	res := c.Extract(context.Background(), "https://example.com/slow")

	assert.Equal(t, "perplexity", res.Provider)
	require.Len(t, res.Attempts, 1)
	assert.ErrorIs(t, res.Attempts[0].Err, resilience.ErrExtractionTimeout)

	snap := breakers.Get("groq").Snapshot()
	assert.Equal(t, 1, snap.ConsecutiveFailures, "timeout should count against the provider's breaker")
}

func TestExtract_AllFailYieldsPlaceholder(t *testing.T) {
	fail := func(name string) *fakeProvider {
		return &fakeProvider{name: name, fn: func(_ context.Context, _ string) (model.RecipeDraft, error) {
			return model.RecipeDraft{}, errors.New("down")
		}}
	}

	res := newCascade(nil, fail("groq"), fail("perplexity")).Extract(context.Background(), "https://example.com/recipes/doro-wat-stew")

	assert.True(t, res.Draft.Placeholder)
	assert.Equal(t, "placeholder", res.Provider)
	assert.Equal(t, "Doro Wat Stew", res.Draft.Title)
	assert.NotNil(t, res.Draft.Ingredients)
	assert.NotNil(t, res.Draft.Instructions)
	assert.Len(t, res.Attempts, 2)
}

func TestExtract_OpenBreakerSkipsProviderCall(t *testing.T) {
	down := &fakeProvider{name: "groq", fn: func(_ context.Context, _ string) (model.RecipeDraft, error) {
		return model.RecipeDraft{}, errors.New("down")
	}}
	backup := &fakeProvider{name: "perplexity", fn: func(_ context.Context, _ string) (model.RecipeDraft, error) {
		return okDraft("Backup"), nil
	}}

	breakers := resilience.NewBreakers(resilience.BreakerConfig{FailureThreshold: 2, Cooldown: time.Minute})
	c := New([]Provider{down, backup}, breakers, nil, DefaultConfig())

	for i := 0; i < 3; i++ {
		c.Extract(context.Background(), "https://example.com/x")
	}

	// Breaker opened after 2 failures; the third pass must not call groq.
	assert.Equal(t, 2, down.calls)
	assert.Equal(t, 3, backup.calls)
}

func TestExtract_CacheHitSkipsProviders(t *testing.T) {
	p := &fakeProvider{name: "groq", fn: func(_ context.Context, _ string) (model.RecipeDraft, error) {
		return okDraft("Cached Wat"), nil
	}}

	store := cache.New(time.Minute)
	c := newCascade(store, p)

	first := c.Extract(context.Background(), "https://example.com/wat")
	assert.Equal(t, "groq", first.Provider)

	second := c.Extract(context.Background(), "https://example.com/wat")
	assert.Equal(t, ProviderCached, second.Provider)
	assert.Equal(t, "Cached Wat", second.Draft.Title)
	assert.Equal(t, 1, p.calls)
}

func TestPlaceholderDraft_SlugTitles(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://example.com/recipes/doro-wat-stew", "Doro Wat Stew"},
		{"https://example.com/misir_wat.html", "Misir Wat"},
		{"https://example.com/", "Untitled Recipe"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, PlaceholderDraft(tc.url).Title, "url %s", tc.url)
	}
}
