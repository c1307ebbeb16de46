// Package quality scores and filters raw search hits before any URL is
// fetched. Everything here is pure: no network I/O, fully testable with
// literal inputs.
package quality

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/plateful/recipe-cli/internal/model"
)

// FilterConfig controls rejection rules and score weights. The cutoffs
// are heuristics without a documented rationale in any upstream source,
// so they stay configurable rather than hard-coded.
type FilterConfig struct {
	ExcludeVideoSites       bool
	ExcludeCollectionPages  bool
	MinTitleLength          int
	MinContentLength        int
	RequireRecipeIndicators bool

	KeywordWeight   float64
	AuthorityBonus  float64
	RecipePathBonus float64
	CollectionPenalty float64
	RecencyBonus    float64
	RecencyWindow   time.Duration
	MaxScore        float64
}

// DefaultFilterConfig returns the filter defaults.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		ExcludeVideoSites:       true,
		ExcludeCollectionPages:  true,
		MinTitleLength:          10,
		MinContentLength:        40,
		RequireRecipeIndicators: true,
		KeywordWeight:           2.0,
		AuthorityBonus:          5.0,
		RecipePathBonus:         3.0,
		CollectionPenalty:       4.0,
		RecencyBonus:            1.5,
		RecencyWindow:           2 * 365 * 24 * time.Hour,
		MaxScore:                25.0,
	}
}

// Relaxed returns a loosened copy used when a discovery retry widens the
// search after a thin first pass.
func (c FilterConfig) Relaxed() FilterConfig {
	c.RequireRecipeIndicators = false
	c.MinTitleLength = c.MinTitleLength / 2
	c.MinContentLength = c.MinContentLength / 2
	return c
}

// blockedPlatforms are video/social domains that never host extractable
// recipe pages.
var blockedPlatforms = []string{
	"youtube.com", "youtu.be", "tiktok.com", "instagram.com",
	"facebook.com", "pinterest.com", "x.com", "twitter.com",
	"reddit.com", "vimeo.com",
}

// authorityDomains is a fixed allow-list of known recipe publishers.
var authorityDomains = []string{
	"allrecipes.com", "seriouseats.com", "bonappetit.com",
	"epicurious.com", "foodnetwork.com", "bbcgoodfood.com",
	"simplyrecipes.com", "food52.com", "thekitchn.com",
	"budgetbytes.com", "smittenkitchen.com",
}

// collectionPathPattern matches category/listicle URL paths.
var collectionPathPattern = regexp.MustCompile(`/(category|categories|tag|tags|collections?|roundups?|gallery|galleries)/|/best-|/top-`)

// recipeKeywords are indicators that a page describes a single recipe.
var recipeKeywords = []string{
	"ingredients", "instructions", "recipe", "prep time",
	"cook time", "servings", "how to make",
}

// collectionKeywords in a title suggest a listicle rather than a recipe.
var collectionKeywords = []string{"best", "top", "ultimate guide", "roundup", "ideas"}

// Filter scores hits against cfg and returns the survivors sorted by
// score descending. The input slice is never modified.
func Filter(hits []model.SearchHit, cfg FilterConfig) []model.ScoredURL {
	scored := make([]model.ScoredURL, 0, len(hits))
	for _, hit := range hits {
		domain := Domain(hit.URL)
		if domain == "" {
			continue
		}
		if rejected(hit, domain, cfg) {
			continue
		}
		scored = append(scored, model.ScoredURL{
			SearchHit:    hit,
			QualityScore: score(hit, domain, cfg),
			Domain:       domain,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].QualityScore > scored[j].QualityScore
	})
	return scored
}

func rejected(hit model.SearchHit, domain string, cfg FilterConfig) bool {
	if cfg.ExcludeVideoSites {
		for _, blocked := range blockedPlatforms {
			if domain == blocked || strings.HasSuffix(domain, "."+blocked) {
				return true
			}
		}
	}

	if cfg.ExcludeCollectionPages {
		if u, err := url.Parse(hit.URL); err == nil &&
			collectionPathPattern.MatchString(strings.ToLower(u.Path)) {
			return true
		}
	}

	if len(strings.TrimSpace(hit.Title)) < cfg.MinTitleLength {
		return true
	}

	if cfg.RequireRecipeIndicators && len(hit.Snippet) < cfg.MinContentLength {
		text := strings.ToLower(hit.Title + " " + hit.Snippet)
		if !containsAny(text, recipeKeywords...) {
			return true
		}
	}

	return false
}

func score(hit model.SearchHit, domain string, cfg FilterConfig) float64 {
	title := strings.ToLower(hit.Title)
	snippet := strings.ToLower(hit.Snippet)

	var s float64
	for _, kw := range recipeKeywords {
		if strings.Contains(title, kw) {
			s += cfg.KeywordWeight * 2
		} else if strings.Contains(snippet, kw) {
			s += cfg.KeywordWeight
		}
	}

	for _, auth := range authorityDomains {
		if domain == auth || strings.HasSuffix(domain, "."+auth) {
			s += cfg.AuthorityBonus
			break
		}
	}

	if u, err := url.Parse(hit.URL); err == nil &&
		strings.Contains(strings.ToLower(u.Path), "/recipe") {
		s += cfg.RecipePathBonus
	}

	for _, kw := range collectionKeywords {
		if strings.Contains(title, kw) {
			s -= cfg.CollectionPenalty
		}
	}

	// Recent content gets a small boost; old content is not penalized.
	if hit.PublishedAt != nil && time.Since(*hit.PublishedAt) < cfg.RecencyWindow {
		s += cfg.RecencyBonus
	}

	if s < 0 {
		s = 0
	}
	if s > cfg.MaxScore {
		s = cfg.MaxScore
	}
	return s
}

// Domain extracts the registrable host (minus a www prefix) from a URL.
// Returns "" for unparseable input.
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

func containsAny(text string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
