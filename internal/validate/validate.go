// Package validate checks structural completeness of normalized recipes
// and produces an aggregate 0-100 quality score.
package validate

import (
	"fmt"
	"strings"

	"github.com/plateful/recipe-cli/internal/model"
)

// Score penalties per issue severity, and the independent bonuses.
const (
	penaltyCritical = 15
	penaltyMajor    = 8
	penaltyMinor    = 3

	bonusSynonyms = 3
	bonusHTTPS    = 2
)

// Profile bundles a pass threshold with a name for logging.
type Profile struct {
	Name     string
	MinScore int
}

// Built-in validation profiles. Acceptable is the loose batch pre-filter
// used mid-pipeline so exploratory runs keep marginal drafts; Default is
// the final-use gate; Strict is for callers that need publish quality.
var (
	AcceptableProfile = Profile{Name: "acceptable", MinScore: 40}
	DefaultProfile    = Profile{Name: "default", MinScore: 70}
	StrictProfile     = Profile{Name: "strict", MinScore: 80}
)

// Validate scores the recipe against the profile. A recipe is valid only
// when it has no critical issues and its score meets the profile minimum.
func Validate(r model.NormalizedRecipe, profile Profile) model.ValidationResult {
	var issues []model.Issue
	var recs []string

	critical := func(category, msg string) {
		issues = append(issues, model.Issue{Category: category, Severity: model.SeverityCritical, Message: msg})
	}
	major := func(category, msg string, fixable bool) {
		issues = append(issues, model.Issue{Category: category, Severity: model.SeverityMajor, Message: msg, Fixable: fixable})
	}
	minor := func(category, msg string, fixable bool) {
		issues = append(issues, model.Issue{Category: category, Severity: model.SeverityMinor, Message: msg, Fixable: fixable})
	}

	// Structural checks. Any of these failing is fatal.
	if strings.TrimSpace(r.Title) == "" {
		critical("structure", "recipe has no title")
	}
	if len(r.Ingredients) == 0 {
		critical("structure", "recipe has no ingredients")
	}
	if len(r.Instructions) == 0 {
		critical("structure", "recipe has no instructions")
	}
	if r.Metadata.Servings <= 0 {
		critical("structure", "servings must be positive")
	}
	if r.Placeholder {
		critical("provenance", "placeholder content synthesized after extraction failure")
	}

	// Quality checks. Each costs points but never blocks on its own.
	var hasSynonyms bool
	for i, ing := range r.Ingredients {
		if len(strings.TrimSpace(ing.Name)) < 3 {
			major("ingredients", fmt.Sprintf("ingredient %d has a vague name %q", i+1, ing.Name), true)
		}
		if ing.Synonyms != "" {
			hasSynonyms = true
		}
	}
	if !hasSynonyms && len(r.Ingredients) > 0 {
		minor("accessibility", "no ingredient lists alternate names", true)
		recs = append(recs, "add common alternate names for specialty ingredients")
	}

	var hasTiming, hasTemperature bool
	for i, ins := range r.Instructions {
		if len(strings.TrimSpace(ins.Text)) < 10 {
			minor("instructions", fmt.Sprintf("step %d is too short to follow", i+1), true)
		}
		if ins.TimeMinutes > 0 || containsTiming(ins.Text) {
			hasTiming = true
		}
		if strings.Contains(ins.Text, "°") {
			hasTemperature = true
		}
	}
	if len(r.Instructions) > 0 {
		if !hasTiming {
			major("instructions", "no step gives timing guidance", true)
			recs = append(recs, "add approximate times to key steps")
		}
		if !hasTemperature {
			minor("instructions", "no step gives temperature guidance", true)
		}
	}

	if len(r.Images) == 0 {
		minor("media", "recipe has no images", true)
		recs = append(recs, "include at least one photo of the finished dish")
	}

	if len(strings.TrimSpace(r.CulturalContext)) < 20 {
		minor("authenticity", "cultural context is missing or thin", true)
		recs = append(recs, "describe the dish's origin and traditional preparation")
	}

	score := 100
	for _, is := range issues {
		switch is.Severity {
		case model.SeverityCritical:
			score -= penaltyCritical
		case model.SeverityMajor:
			score -= penaltyMajor
		case model.SeverityMinor:
			score -= penaltyMinor
		}
	}
	if hasSynonyms {
		score += bonusSynonyms
	}
	if strings.HasPrefix(r.SourceURL, "https://") {
		score += bonusHTTPS
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	result := model.ValidationResult{
		Score:           score,
		Issues:          issues,
		Recommendations: recs,
	}
	result.IsValid = !result.HasCritical() && score >= profile.MinScore
	return result
}

var timingWords = []string{"minute", "minutes", "min", "hour", "hours", "overnight", "seconds"}

func containsTiming(text string) bool {
	lower := strings.ToLower(text)
	for _, w := range timingWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
