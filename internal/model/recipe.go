// Package model defines the data types shared across the recipe pipeline.
package model

import "time"

// SearchHit is a raw result from a search provider, before any quality
// filtering. Hits are immutable; the quality filter builds ScoredURLs
// from them rather than annotating in place.
type SearchHit struct {
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Snippet     string     `json:"snippet"`
	RawScore    float64    `json:"raw_score"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// ScoredURL is a SearchHit that survived filtering, carrying its quality
// score and extracted domain. It only exists inside the discovery stage.
type ScoredURL struct {
	SearchHit
	QualityScore float64 `json:"quality_score"`
	Domain       string  `json:"domain"`
}

// Ingredient is a single recipe ingredient. Amount holds the parsed
// numeric quantity; AmountText preserves what the provider returned.
type Ingredient struct {
	Name       string  `json:"name"`
	Amount     float64 `json:"amount"`
	AmountText string  `json:"amount_text,omitempty"`
	Unit       string  `json:"unit,omitempty"`
	Notes      string  `json:"notes,omitempty"`
	Synonyms   string  `json:"synonyms,omitempty"`
}

// Instruction is a single recipe step.
type Instruction struct {
	Step        int    `json:"step"`
	Text        string `json:"text"`
	TimeMinutes int    `json:"time_minutes,omitempty"`
}

// RecipeMetadata holds recipe-level facts. ServingsText preserves the
// provider's wording ("4-6 servings") for the normalizer to parse.
type RecipeMetadata struct {
	Servings             int    `json:"servings"`
	ServingsText         string `json:"servings_text,omitempty"`
	TotalTimeMinutes     int    `json:"total_time_minutes"`
	Difficulty           string `json:"difficulty,omitempty"`
	CulturalAuthenticity string `json:"cultural_authenticity,omitempty"`
}

// RecipeDraft is an unvalidated, unnormalized extraction result from a
// single provider. Ingredients and Instructions are never nil — empty
// slices mean the provider found nothing, which downstream validation
// treats as a structural failure.
type RecipeDraft struct {
	Title           string         `json:"title"`
	Description     string         `json:"description,omitempty"`
	Ingredients     []Ingredient   `json:"ingredients"`
	Instructions    []Instruction  `json:"instructions"`
	Metadata        RecipeMetadata `json:"metadata"`
	Images          []string       `json:"images,omitempty"`
	CulturalContext string         `json:"cultural_context,omitempty"`
	SourceURL       string         `json:"source_url"`
	Provider        string         `json:"provider"`

	// Placeholder marks a synthesized draft produced when every
	// extraction provider failed for the URL. Validation scores these
	// low so callers can discard them.
	Placeholder bool `json:"placeholder,omitempty"`
}

// Change records a single normalization applied to a draft field.
type Change struct {
	Field  string `json:"field"`
	Before string `json:"before"`
	After  string `json:"after"`
	Reason string `json:"reason"`
}

// NormalizedRecipe is a RecipeDraft after canonicalization, plus the
// change log describing every adjustment. Instances are never mutated
// after the normalizer returns them.
type NormalizedRecipe struct {
	RecipeDraft
	Changes []Change `json:"changes,omitempty"`
}

// IssueSeverity classifies validation issues.
type IssueSeverity string

const (
	SeverityCritical IssueSeverity = "critical"
	SeverityMajor    IssueSeverity = "major"
	SeverityMinor    IssueSeverity = "minor"
)

// Issue is a single validation finding.
type Issue struct {
	Category string        `json:"category"`
	Severity IssueSeverity `json:"severity"`
	Message  string        `json:"message"`
	Fixable  bool          `json:"fixable"`
}

// ValidationResult is the outcome of validating one normalized recipe.
// Score is always clamped to [0,100]. Recommendations are advisory and
// never block acceptance; Issues can.
type ValidationResult struct {
	IsValid         bool     `json:"is_valid"`
	Score           int      `json:"score"`
	Issues          []Issue  `json:"issues,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// HasCritical reports whether any issue is critical.
func (v ValidationResult) HasCritical() bool {
	for _, is := range v.Issues {
		if is.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// SearchRequest describes one pipeline invocation.
type SearchRequest struct {
	Query               string   `json:"query"`
	CulturalContext     string   `json:"cultural_context,omitempty"`
	DietaryRestrictions []string `json:"dietary_restrictions,omitempty"`
	MaxResults          int      `json:"max_results"`
}

// Response provenance values for SearchResponse.Source.
const (
	SourceLive            = "live"
	SourcePartialFallback = "partial-fallback"
	SourceFallback        = "fallback"
)

// SearchResponse is the pipeline's final answer. Recipes may be shorter
// than the requested count; Errors lists everything that was skipped and
// why. Callers must never assume len(Recipes) == MaxResults.
type SearchResponse struct {
	Recipes      []NormalizedRecipe `json:"recipes"`
	TotalFound   int                `json:"total_found"`
	SearchTimeMS int64              `json:"search_time_ms"`
	Source       string             `json:"source"`
	Errors       []string           `json:"errors"`
}
