package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plateful/recipe-cli/internal/model"
)

func sampleDraft() model.RecipeDraft {
	return model.RecipeDraft{
		Title:       "  doro   wat  (ethiopian chicken stew) ",
		Description: "A  slow-simmered   stew.",
		Ingredients: []model.Ingredient{
			{Name: "Red Onion", AmountText: "2-3", Unit: "cups"},
			{Name: "niter kibbeh", AmountText: "1/2", Unit: "c"},
			{Name: "berbere", AmountText: "garnish to taste", Unit: "tbsp"},
			{Name: "chicken thighs", Amount: 8, Unit: "pieces"},
		},
		Instructions: []model.Instruction{
			{Step: 1, Text: "Caramelize the onions  slowly."},
			{Step: 3, Text: "Simmer at 350 degrees F until thick."},
			{Step: 7, Text: "Rest before serving."},
		},
		Metadata:  model.RecipeMetadata{ServingsText: "4-6"},
		SourceURL: "https://example.com/doro-wat",
	}
}

func TestNormalize_AmountParsing(t *testing.T) {
	cases := []struct {
		text   string
		want   float64
		parsed bool
	}{
		{"1/2", 0.5, true},
		{"2-3", 2.5, true},
		{"1 1/2", 1.5, true},
		{"0.25", 0.25, true},
		{"3", 3, true},
		{"2 to 4", 3, true},
		{"a splash", 1, false},
		{"", 1, false},
		{"0", 1, false},
	}
	for _, tc := range cases {
		got, parsed := ParseAmount(tc.text)
		assert.Equal(t, tc.want, got, "ParseAmount(%q)", tc.text)
		assert.Equal(t, tc.parsed, parsed, "ParseAmount(%q) parsed flag", tc.text)
	}
}

func TestNormalize_NeverProducesNonPositiveAmounts(t *testing.T) {
	out := Normalize(sampleDraft(), Options{})
	for _, ing := range out.Ingredients {
		assert.Greater(t, ing.Amount, 0.0, "ingredient %q", ing.Name)
	}
}

func TestNormalize_UnitCanonicalization(t *testing.T) {
	out := Normalize(sampleDraft(), Options{})
	require.Len(t, out.Ingredients, 4)
	assert.Equal(t, "cup", out.Ingredients[0].Unit)
	assert.Equal(t, "cup", out.Ingredients[1].Unit)
	assert.Equal(t, "tablespoon", out.Ingredients[2].Unit)
	assert.Equal(t, "pieces", out.Ingredients[3].Unit, "unknown units pass through")

	preserved := Normalize(sampleDraft(), Options{PreserveUnits: true})
	assert.Equal(t, "cups", preserved.Ingredients[0].Unit)
}

func TestNormalize_StepRenumberingFlagged(t *testing.T) {
	out := Normalize(sampleDraft(), Options{})
	for i, ins := range out.Instructions {
		assert.Equal(t, i+1, ins.Step)
	}

	var flagged bool
	for _, ch := range out.Changes {
		if ch.Field == "instructions" {
			flagged = true
		}
	}
	assert.True(t, flagged, "non-sequential numbering should leave a change entry")
}

func TestNormalize_TemperatureAndTitle(t *testing.T) {
	out := Normalize(sampleDraft(), Options{})
	assert.Contains(t, out.Instructions[1].Text, "350°F")
	assert.Equal(t, "Doro Wat (Ethiopian Chicken Stew)", out.Title)
}

func TestNormalize_ServingsRangeAveraged(t *testing.T) {
	out := Normalize(sampleDraft(), Options{})
	assert.Equal(t, 5, out.Metadata.Servings)

	empty := Normalize(model.RecipeDraft{Title: "x"}, Options{})
	assert.Equal(t, 4, empty.Metadata.Servings, "missing servings defaults to 4")
	assert.Greater(t, empty.Metadata.TotalTimeMinutes, 0)
}

func TestNormalize_Idempotent(t *testing.T) {
	once := Normalize(sampleDraft(), Options{})
	twice := Normalize(once.RecipeDraft, Options{})
	assert.Equal(t, once.RecipeDraft, twice.RecipeDraft)
	assert.Empty(t, twice.Changes, "second pass should change nothing")
}

func TestNormalize_UnparseableAmountLogged(t *testing.T) {
	out := Normalize(sampleDraft(), Options{})

	var warned bool
	for _, ch := range out.Changes {
		if ch.Field == "ingredients[2].amount" && ch.Reason == "unparseable amount, substituted default" {
			warned = true
		}
	}
	assert.True(t, warned, "unparseable amount should be recorded, not dropped")
	assert.Equal(t, 1.0, out.Ingredients[2].Amount)
}

func TestNormalize_NilSlicesBecomeEmpty(t *testing.T) {
	out := Normalize(model.RecipeDraft{Title: "bare"}, Options{})
	assert.NotNil(t, out.Ingredients)
	assert.NotNil(t, out.Instructions)
}
