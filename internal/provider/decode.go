// Package provider contains the search and extraction adapters that sit
// between third-party APIs and the pipeline's uniform contracts. LLM
// output is decoded strictly here; the core pipeline never inspects
// untyped provider JSON.
package provider

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"

	"github.com/plateful/recipe-cli/internal/model"
	"github.com/plateful/recipe-cli/internal/resilience"
)

// decodeDraft turns an LLM completion into a typed RecipeDraft or a
// ParseFailure. Models wrap JSON in prose or code fences often enough
// that we locate the outermost object before decoding.
func decodeDraft(raw, sourceURL, providerName string) (model.RecipeDraft, error) {
	jsonText := extractJSONObject(raw)
	if jsonText == "" || !gjson.Valid(jsonText) {
		return model.RecipeDraft{}, eris.Wrap(resilience.ErrParseFailure,
			providerName+": no JSON object in completion")
	}

	root := gjson.Parse(jsonText)
	if !root.Get("title").Exists() {
		return model.RecipeDraft{}, eris.Wrap(resilience.ErrParseFailure,
			providerName+": completion missing title")
	}

	draft := model.RecipeDraft{
		Title:           root.Get("title").String(),
		Description:     root.Get("description").String(),
		Ingredients:     []model.Ingredient{},
		Instructions:    []model.Instruction{},
		CulturalContext: root.Get("cultural_context").String(),
		SourceURL:       sourceURL,
		Provider:        providerName,
	}

	root.Get("ingredients").ForEach(func(_, v gjson.Result) bool {
		ing := model.Ingredient{
			Name:       v.Get("name").String(),
			AmountText: v.Get("amount").String(),
			Unit:       v.Get("unit").String(),
			Notes:      v.Get("notes").String(),
			Synonyms:   v.Get("synonyms").String(),
		}
		if v.Get("amount").Type == gjson.Number {
			ing.Amount = v.Get("amount").Float()
		}
		if ing.Name != "" {
			draft.Ingredients = append(draft.Ingredients, ing)
		}
		return true
	})

	root.Get("instructions").ForEach(func(_, v gjson.Result) bool {
		ins := model.Instruction{
			Step:        int(v.Get("step").Int()),
			Text:        v.Get("text").String(),
			TimeMinutes: int(v.Get("time_minutes").Int()),
		}
		// Some models return bare strings instead of step objects.
		if v.Type == gjson.String {
			ins.Text = v.String()
		}
		if ins.Text != "" {
			if ins.Step == 0 {
				ins.Step = len(draft.Instructions) + 1
			}
			draft.Instructions = append(draft.Instructions, ins)
		}
		return true
	})

	root.Get("images").ForEach(func(_, v gjson.Result) bool {
		if u := v.String(); strings.HasPrefix(u, "http") {
			draft.Images = append(draft.Images, u)
		}
		return true
	})

	md := root.Get("metadata")
	draft.Metadata = model.RecipeMetadata{
		Servings:             int(md.Get("servings").Int()),
		ServingsText:         md.Get("servings").String(),
		TotalTimeMinutes:     int(md.Get("total_time_minutes").Int()),
		Difficulty:           md.Get("difficulty").String(),
		CulturalAuthenticity: md.Get("cultural_authenticity").String(),
	}

	return draft, nil
}

// extractJSONObject returns the outermost balanced {...} block in text,
// or "" when none exists.
func extractJSONObject(text string) string {
	start := strings.Index(text, "{")
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case !inString && c == '{':
			depth++
		case !inString && c == '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}
