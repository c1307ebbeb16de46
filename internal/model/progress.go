package model

// Stage identifies where a search run currently is in the pipeline.
type Stage string

const (
	StageDiscovering Stage = "discovering"
	StageExtracting  Stage = "extracting"
	StageValidating  Stage = "validating"
	StageComplete    Stage = "complete"
	StageErrored     Stage = "errored"
)

// Progress is emitted after every stage transition and after each item
// processed within a stage. It is the only externally observable
// intermediate state of a run.
type Progress struct {
	RunID            string   `json:"run_id"`
	Stage            Stage    `json:"stage"`
	Attempt          int      `json:"attempt"`
	URLsFound        int      `json:"urls_found"`
	RecipesProcessed int      `json:"recipes_processed"`
	TotalRecipes     int      `json:"total_recipes"`
	Errors           []string `json:"errors,omitempty"`
}

// ProgressFunc receives progress events. A nil ProgressFunc is valid and
// means the caller does not want updates.
type ProgressFunc func(Progress)
