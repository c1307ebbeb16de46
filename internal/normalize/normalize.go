// Package normalize canonicalizes extraction drafts: units, amounts,
// casing, step numbering, temperatures and servings. The transform is
// pure and deterministic; it never mutates its input and never fails —
// unparseable values get a safe default plus a change-log warning.
package normalize

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/plateful/recipe-cli/internal/model"
)

// Options controls optional normalization behavior.
type Options struct {
	// PreserveUnits keeps the provider's unit spellings instead of
	// mapping them to the canonical vocabulary.
	PreserveUnits bool
}

const (
	defaultServings    = 4
	defaultAmount      = 1.0
	defaultTotalTimeMin = 30
)

// unitSynonyms maps unit spellings to the canonical vocabulary. Canonical
// names map to themselves so normalization is idempotent.
var unitSynonyms = map[string]string{
	"tbsp": "tablespoon", "tbs": "tablespoon", "tablespoons": "tablespoon", "tablespoon": "tablespoon",
	"tsp": "teaspoon", "teaspoons": "teaspoon", "teaspoon": "teaspoon",
	"c": "cup", "cups": "cup", "cup": "cup",
	"oz": "ounce", "ounces": "ounce", "ounce": "ounce",
	"lb": "pound", "lbs": "pound", "pounds": "pound", "pound": "pound",
	"g": "gram", "grams": "gram", "gram": "gram",
	"kg": "kilogram", "kilograms": "kilogram", "kilogram": "kilogram",
	"ml": "milliliter", "milliliters": "milliliter", "milliliter": "milliliter",
	"l": "liter", "liters": "liter", "liter": "liter",
	"pt": "pint", "pints": "pint", "pint": "pint",
	"qt": "quart", "quarts": "quart", "quart": "quart",
	"cloves": "clove", "clove": "clove",
	"pinches": "pinch", "pinch": "pinch",
}

var (
	fractionPattern = regexp.MustCompile(`^(\d+)\s*/\s*(\d+)$`)
	mixedPattern    = regexp.MustCompile(`^(\d+)\s+(\d+)\s*/\s*(\d+)$`)
	rangePattern    = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*(?:-|–|to)\s*(\d+(?:\.\d+)?)$`)
	decimalPattern  = regexp.MustCompile(`^\d+(?:\.\d+)?$`)

	temperaturePattern = regexp.MustCompile(`(\d{2,3})\s*(?:°\s*|degrees?\s*)?([FC])\b`)
	servingsPattern    = regexp.MustCompile(`(\d+)(?:\s*(?:-|–|to)\s*(\d+))?`)
	whitespacePattern  = regexp.MustCompile(`\s+`)
)

var titleCaser = cases.Title(language.English)

// Normalize returns a canonical copy of the draft plus a change log
// describing every adjustment. The input draft is not modified.
func Normalize(draft model.RecipeDraft, opts Options) model.NormalizedRecipe {
	var changes []model.Change
	record := func(field, before, after, reason string) {
		if before != after {
			changes = append(changes, model.Change{Field: field, Before: before, After: after, Reason: reason})
		}
	}

	out := draft

	out.Title = cleanTitle(draft.Title)
	record("title", draft.Title, out.Title, "title case and whitespace cleanup")

	out.Description = collapseWhitespace(draft.Description)
	record("description", draft.Description, out.Description, "whitespace cleanup")

	out.Ingredients = normalizeIngredients(draft.Ingredients, opts, record)
	out.Instructions = normalizeInstructions(draft.Instructions, record)

	out.Metadata.Servings = normalizeServings(draft.Metadata, record)
	if out.Metadata.TotalTimeMinutes <= 0 {
		record("metadata.total_time_minutes",
			strconv.Itoa(draft.Metadata.TotalTimeMinutes),
			strconv.Itoa(defaultTotalTimeMin),
			"missing total time, substituted default")
		out.Metadata.TotalTimeMinutes = defaultTotalTimeMin
	}

	if out.Ingredients == nil {
		out.Ingredients = []model.Ingredient{}
	}
	if out.Instructions == nil {
		out.Instructions = []model.Instruction{}
	}

	return model.NormalizedRecipe{RecipeDraft: out, Changes: changes}
}

func normalizeIngredients(in []model.Ingredient, opts Options, record func(field, before, after, reason string)) []model.Ingredient {
	out := make([]model.Ingredient, len(in))
	for i, ing := range in {
		field := fmt.Sprintf("ingredients[%d]", i)
		norm := ing
		norm.Name = collapseWhitespace(strings.ToLower(ing.Name))
		record(field+".name", ing.Name, norm.Name, "lowercase and whitespace cleanup")

		amount, parsed := ParseAmount(ing.AmountText)
		if ing.AmountText == "" {
			// No textual amount: trust the numeric field, defaulting when
			// absent or non-positive.
			amount = ing.Amount
			parsed = amount > 0
			if !parsed {
				amount = defaultAmount
			}
		}
		if !parsed && ing.Amount != amount {
			record(field+".amount", ing.AmountText, formatAmount(amount),
				"unparseable amount, substituted default")
		} else if parsed && ing.Amount != amount {
			record(field+".amount", formatAmount(ing.Amount), formatAmount(amount),
				"parsed amount text to decimal")
		}
		norm.Amount = amount

		if !opts.PreserveUnits {
			unit := strings.ToLower(strings.TrimSpace(ing.Unit))
			if canonical, ok := unitSynonyms[unit]; ok {
				record(field+".unit", ing.Unit, canonical, "canonical unit vocabulary")
				norm.Unit = canonical
			} else {
				norm.Unit = unit
			}
		}
		out[i] = norm
	}
	return out
}

func normalizeInstructions(in []model.Instruction, record func(field, before, after, reason string)) []model.Instruction {
	out := make([]model.Instruction, len(in))
	sequential := true
	for i, ins := range in {
		if ins.Step != i+1 {
			sequential = false
		}
		norm := ins
		norm.Step = i + 1
		norm.Text = normalizeTemperatures(collapseWhitespace(ins.Text))
		record(fmt.Sprintf("instructions[%d].text", i), ins.Text, norm.Text,
			"whitespace and temperature cleanup")
		out[i] = norm
	}
	if !sequential && len(in) > 0 {
		record("instructions", "non-sequential step numbers",
			fmt.Sprintf("renumbered 1..%d", len(in)),
			"contiguous step numbering")
	}
	return out
}

func normalizeServings(md model.RecipeMetadata, record func(field, before, after, reason string)) int {
	if md.ServingsText != "" {
		if m := servingsPattern.FindStringSubmatch(md.ServingsText); m != nil {
			lo, _ := strconv.Atoi(m[1])
			servings := lo
			if m[2] != "" {
				hi, _ := strconv.Atoi(m[2])
				servings = (lo + hi + 1) / 2
			}
			if servings > 0 {
				if servings != md.Servings {
					record("metadata.servings", md.ServingsText, strconv.Itoa(servings),
						"parsed servings text")
				}
				return servings
			}
		}
	}
	if md.Servings > 0 {
		return md.Servings
	}
	record("metadata.servings", strconv.Itoa(md.Servings), strconv.Itoa(defaultServings),
		"missing servings, substituted default")
	return defaultServings
}

// ParseAmount converts an amount expression to a decimal rounded to two
// places. Supported forms: plain decimals, fractions ("1/2"), mixed
// numbers ("1 1/2") and ranges ("2-3", averaged). The second return is
// false when the text could not be parsed, in which case the default
// amount is returned.
func ParseAmount(text string) (float64, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return defaultAmount, false
	}

	if m := mixedPattern.FindStringSubmatch(text); m != nil {
		whole, _ := strconv.ParseFloat(m[1], 64)
		num, _ := strconv.ParseFloat(m[2], 64)
		den, _ := strconv.ParseFloat(m[3], 64)
		if den != 0 {
			return round2(whole + num/den), true
		}
	}

	if m := fractionPattern.FindStringSubmatch(text); m != nil {
		num, _ := strconv.ParseFloat(m[1], 64)
		den, _ := strconv.ParseFloat(m[2], 64)
		if den != 0 && num/den > 0 {
			return round2(num / den), true
		}
	}

	if m := rangePattern.FindStringSubmatch(text); m != nil {
		lo, _ := strconv.ParseFloat(m[1], 64)
		hi, _ := strconv.ParseFloat(m[2], 64)
		avg := round2((lo + hi) / 2)
		if avg > 0 {
			return avg, true
		}
	}

	if decimalPattern.MatchString(text) {
		v, err := strconv.ParseFloat(text, 64)
		if err == nil && v > 0 {
			return round2(v), true
		}
	}

	return defaultAmount, false
}

func normalizeTemperatures(text string) string {
	return temperaturePattern.ReplaceAllString(text, "$1°$2")
}

func cleanTitle(title string) string {
	return titleCaser.String(collapseWhitespace(title))
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
