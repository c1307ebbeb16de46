package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/plateful/recipe-cli/internal/discovery"
	"github.com/plateful/recipe-cli/internal/extract"
	"github.com/plateful/recipe-cli/internal/normalize"
	"github.com/plateful/recipe-cli/internal/provider"
	"github.com/plateful/recipe-cli/internal/resilience"
	"github.com/plateful/recipe-cli/internal/validate"
	"github.com/plateful/recipe-cli/pkg/perplexity"
)

var (
	checkSample  bool
	checkExtract bool
)

var checkCmd = &cobra.Command{
	Use:   "check <url>...",
	Short: "Check whether URLs are reachable recipe pages, optionally extracting them",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("check"); err != nil {
			return err
		}

		var cascade *extract.Cascade
		if checkExtract {
			cascade = newCheckCascade()
		}

		checker := discovery.NewHTTPChecker(2)
		for _, u := range args {
			res, err := checker.Check(cmd.Context(), u, checkSample)
			if err != nil {
				fmt.Printf("%s\n  error: %v\n", u, err)
				continue
			}

			status := "unreachable"
			if res.Reachable {
				status = "reachable"
			}
			fmt.Printf("%s\n  %s, content-type %q\n", u, status, res.ContentType)
			if res.SampledBody {
				if res.HasRecipeMarkers {
					fmt.Println("  body sample shows recipe markers")
				} else {
					fmt.Println("  body sample shows no recipe markers")
				}
			}

			if cascade == nil || !res.Reachable {
				continue
			}

			result := cascade.Extract(cmd.Context(), u)
			for _, a := range result.Attempts {
				fmt.Printf("  %s failed: %v\n", a.Provider, a.Err)
			}
			fmt.Printf("  extracted via %s\n", result.Provider)

			recipe := normalize.Normalize(result.Draft, normalize.Options{})
			verdict := validate.Validate(recipe, profileByName(cfg.Pipeline.Profile))
			fmt.Printf("  validation: valid=%t score=%d issues=%d\n", verdict.IsValid, verdict.Score, len(verdict.Issues))
			for _, is := range verdict.Issues {
				fmt.Printf("    [%s] %s: %s\n", is.Severity, is.Category, is.Message)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("  ", "  ")
			enc.Encode(recipe)
		}
		return nil
	},
}

// newCheckCascade wires just the extraction cascade, no discovery, for
// one-shot URL debugging.
func newCheckCascade() *extract.Cascade {
	var extractors []extract.Provider
	if cfg.Groq.Key != "" {
		extractors = append(extractors, provider.NewGroqExtractor(cfg.Groq.Key, cfg.Groq.Model, cfg.Groq.RPS))
	}
	if cfg.Perplexity.Key != "" {
		pplx := perplexity.NewClient(cfg.Perplexity.Key,
			perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
			perplexity.WithModel(cfg.Perplexity.Model),
		)
		extractors = append(extractors, provider.NewPerplexityExtractor(pplx, cfg.Perplexity.RPS))
	}

	return extract.New(
		extractors,
		resilience.NewBreakers(resilience.DefaultBreakerConfig()),
		nil,
		extract.Config{Timeout: time.Duration(cfg.Extract.TimeoutSecs) * time.Second},
	)
}

func init() {
	checkCmd.Flags().BoolVar(&checkSample, "sample", false, "fetch a body sample and sniff for recipe markers")
	checkCmd.Flags().BoolVar(&checkExtract, "extract", false, "run the extraction cascade and validation on each URL")
	rootCmd.AddCommand(checkCmd)
}
