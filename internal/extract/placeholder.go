package extract

import (
	"net/url"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/plateful/recipe-cli/internal/model"
)

var slugCaser = cases.Title(language.English)

// PlaceholderDraft synthesizes a minimal, well-formed draft from the URL
// slug when every provider failed. The draft is flagged so validation
// scores it low and callers can discard it.
func PlaceholderDraft(rawURL string) model.RecipeDraft {
	title := titleFromSlug(rawURL)
	if title == "" {
		title = "Untitled Recipe"
	}

	return model.RecipeDraft{
		Title:        title,
		Description:  "Extraction failed for this page; details are unavailable.",
		Ingredients:  []model.Ingredient{},
		Instructions: []model.Instruction{},
		Metadata: model.RecipeMetadata{
			Servings:         4,
			TotalTimeMinutes: 30,
		},
		SourceURL:   rawURL,
		Provider:    "placeholder",
		Placeholder: true,
	}
}

// titleFromSlug turns the last URL path segment into a readable title:
// "/recipes/doro-wat_stew" becomes "Doro Wat Stew".
func titleFromSlug(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	path := strings.TrimRight(u.Path, "/")
	idx := strings.LastIndex(path, "/")
	slug := path
	if idx >= 0 {
		slug = path[idx+1:]
	}
	slug = strings.TrimSuffix(slug, ".html")
	slug = strings.NewReplacer("-", " ", "_", " ", "+", " ").Replace(slug)
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return ""
	}
	return slugCaser.String(slug)
}
