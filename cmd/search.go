package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/plateful/recipe-cli/internal/model"
)

var (
	searchMax      int
	searchCultural string
	searchDietary  []string
	searchJSON     bool
	searchQuiet    bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search for recipes and extract them into structured form",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline()
		if err != nil {
			return err
		}
		defer env.Close()

		var onProgress model.ProgressFunc
		if !searchQuiet {
			onProgress = func(p model.Progress) {
				fmt.Fprintf(os.Stderr, "[%s] attempt=%d urls=%d processed=%d/%d\n",
					p.Stage, p.Attempt, p.URLsFound, p.RecipesProcessed, p.TotalRecipes)
			}
		}

		resp, err := env.Pipeline.Search(ctx, model.SearchRequest{
			Query:               strings.Join(args, " "),
			CulturalContext:     searchCultural,
			DietaryRestrictions: searchDietary,
			MaxResults:          searchMax,
		}, onProgress)
		if err != nil {
			return err
		}

		if searchJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		}

		printResponse(resp)
		return nil
	},
}

func printResponse(resp *model.SearchResponse) {
	fmt.Printf("Found %d recipe(s) in %dms (source: %s)\n\n", len(resp.Recipes), resp.SearchTimeMS, resp.Source)
	for i, r := range resp.Recipes {
		fmt.Printf("%d. %s\n", i+1, r.Title)
		if r.SourceURL != "" {
			fmt.Printf("   %s\n", r.SourceURL)
		}
		fmt.Printf("   serves %d, about %d min, %d ingredients, %d steps\n",
			r.Metadata.Servings, r.Metadata.TotalTimeMinutes, len(r.Ingredients), len(r.Instructions))
		if len(r.Changes) > 0 {
			fmt.Printf("   %d normalization change(s) applied\n", len(r.Changes))
		}
		fmt.Println()
	}
	if len(resp.Errors) > 0 {
		fmt.Printf("%d issue(s) along the way; run with --json for details\n", len(resp.Errors))
	}
}

func init() {
	searchCmd.Flags().IntVar(&searchMax, "max", 3, "maximum recipes to return")
	searchCmd.Flags().StringVar(&searchCultural, "cultural-context", "", "cuisine or cultural context to bias the search")
	searchCmd.Flags().StringSliceVar(&searchDietary, "dietary", nil, "dietary restrictions (repeatable)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "emit the full response as JSON")
	searchCmd.Flags().BoolVar(&searchQuiet, "quiet", false, "suppress progress output")
	rootCmd.AddCommand(searchCmd)
}
