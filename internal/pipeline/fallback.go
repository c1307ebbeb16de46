package pipeline

import (
	"strings"

	"github.com/plateful/recipe-cli/internal/model"
	"github.com/plateful/recipe-cli/internal/normalize"
)

// fallbackDrafts is the small curated set used to top up a response when
// retries are exhausted. Every entry is schema-valid so callers always
// receive something usable; provenance is flagged through the response
// Source field and each recipe's Provider.
var fallbackDrafts = []model.RecipeDraft{
	{
		Title:       "Misir Wat (Ethiopian Red Lentil Stew)",
		Description: "Spiced red lentils simmered in berbere and niter kibbeh, a staple of Ethiopian fasting tables.",
		Ingredients: []model.Ingredient{
			{Name: "red lentils", Amount: 1, Unit: "cup", Synonyms: "masoor dal"},
			{Name: "red onion", Amount: 1, Unit: "", Notes: "finely diced"},
			{Name: "berbere spice blend", Amount: 2, Unit: "tablespoon"},
			{Name: "garlic", Amount: 3, Unit: "clove", Notes: "minced"},
			{Name: "vegetable oil", Amount: 0.25, Unit: "cup"},
			{Name: "water or vegetable stock", Amount: 3, Unit: "cup"},
		},
		Instructions: []model.Instruction{
			{Step: 1, Text: "Cook the onion in a dry pot over medium heat for 5 minutes, stirring, until softened.", TimeMinutes: 5},
			{Step: 2, Text: "Add the oil, garlic and berbere and fry for 2 minutes until fragrant.", TimeMinutes: 2},
			{Step: 3, Text: "Stir in the lentils and the water, then simmer uncovered for 30 minutes until thick.", TimeMinutes: 30},
			{Step: 4, Text: "Season with salt and rest for 5 minutes before serving with injera.", TimeMinutes: 5},
		},
		Metadata: model.RecipeMetadata{
			Servings:             4,
			TotalTimeMinutes:     45,
			Difficulty:           "easy",
			CulturalAuthenticity: "traditional",
		},
		CulturalContext: "Misir wat anchors Ethiopia's many fasting days, when Orthodox tradition calls for meals free of meat and dairy.",
	},
	{
		Title:       "Gomen (Ethiopian Collard Greens)",
		Description: "Slow-cooked collard greens with ginger, garlic and mild spices.",
		Ingredients: []model.Ingredient{
			{Name: "collard greens", Amount: 1, Unit: "pound", Synonyms: "gomen, kale"},
			{Name: "red onion", Amount: 1, Unit: "", Notes: "diced"},
			{Name: "fresh ginger", Amount: 1, Unit: "tablespoon", Notes: "grated"},
			{Name: "garlic", Amount: 4, Unit: "clove"},
			{Name: "olive oil", Amount: 3, Unit: "tablespoon"},
		},
		Instructions: []model.Instruction{
			{Step: 1, Text: "Strip the greens from their stems and slice into ribbons.", TimeMinutes: 10},
			{Step: 2, Text: "Sauté the onion, garlic and ginger in oil for 5 minutes.", TimeMinutes: 5},
			{Step: 3, Text: "Add the greens with a splash of water, cover, and cook for 25 minutes until tender.", TimeMinutes: 25},
		},
		Metadata: model.RecipeMetadata{
			Servings:             4,
			TotalTimeMinutes:     40,
			Difficulty:           "easy",
			CulturalAuthenticity: "traditional",
		},
		CulturalContext: "Gomen accompanies nearly every Ethiopian platter, balancing the heat of berbere-based stews.",
	},
	{
		Title:       "Quick Chickpea Shiro",
		Description: "A weeknight take on shiro wat built from chickpea flour and warm spices.",
		Ingredients: []model.Ingredient{
			{Name: "chickpea flour", Amount: 1, Unit: "cup", Synonyms: "besan, gram flour"},
			{Name: "red onion", Amount: 0.5, Unit: "", Notes: "minced"},
			{Name: "berbere spice blend", Amount: 1, Unit: "tablespoon"},
			{Name: "tomato paste", Amount: 1, Unit: "tablespoon"},
			{Name: "water", Amount: 3, Unit: "cup"},
		},
		Instructions: []model.Instruction{
			{Step: 1, Text: "Sweat the onion in oil for 4 minutes, then stir in the berbere and tomato paste.", TimeMinutes: 4},
			{Step: 2, Text: "Whisk the chickpea flour into the water and pour into the pot.", TimeMinutes: 2},
			{Step: 3, Text: "Simmer for 15 minutes, whisking often, until the shiro coats a spoon.", TimeMinutes: 15},
		},
		Metadata: model.RecipeMetadata{
			Servings:             4,
			TotalTimeMinutes:     25,
			Difficulty:           "easy",
			CulturalAuthenticity: "adapted",
		},
		CulturalContext: "Shiro is Ethiopia's everyday comfort stew; this version trades the long-simmered legume base for quick chickpea flour.",
	},
}

const fallbackProvider = "fallback"

// FallbackRecipes returns up to n curated recipes, lightly biased toward
// the query by putting title matches first. Results are normalized like
// any live extraction so the response shape is uniform.
func FallbackRecipes(query string, n int) []model.NormalizedRecipe {
	if n <= 0 {
		return nil
	}
	if n > len(fallbackDrafts) {
		n = len(fallbackDrafts)
	}

	ordered := make([]model.RecipeDraft, 0, len(fallbackDrafts))
	var rest []model.RecipeDraft
	lower := strings.ToLower(query)
	for _, d := range fallbackDrafts {
		if query != "" && strings.Contains(lower, firstWord(d.Title)) {
			ordered = append(ordered, d)
		} else {
			rest = append(rest, d)
		}
	}
	ordered = append(ordered, rest...)

	out := make([]model.NormalizedRecipe, 0, n)
	for _, d := range ordered[:n] {
		d.Provider = fallbackProvider
		out = append(out, normalize.Normalize(d, normalize.Options{}))
	}
	return out
}

func firstWord(title string) string {
	fields := strings.Fields(strings.ToLower(title))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
