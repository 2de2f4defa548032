package cli

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/freshrecipes/studio/internal/autocomplete"
	"github.com/freshrecipes/studio/internal/client"
	"github.com/freshrecipes/studio/internal/model"
)

type suggestResult struct {
	Query       string             `json:"query" yaml:"query"`
	Suggestions []model.Suggestion `json:"suggestions" yaml:"suggestions"`
}

func newSuggestCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <query>",
		Short: "Look up ingredient names in the food database",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuggest(cmd, app, client.NewNutritionClient(&app.Config.Nutrition), strings.Join(args, " "))
		},
	}
}

func runSuggest(cmd *cobra.Command, app *App, source client.SuggestionSource, query string) error {
	query = strings.TrimSpace(query)
	minQuery := app.Config.Nutrition.MinQuery
	if minQuery <= 0 {
		minQuery = autocomplete.DefaultMinQuery
	}
	if utf8.RuneCountInString(query) < minQuery {
		return writeErr(cmd, fmt.Errorf("query must be at least %d characters", minQuery))
	}

	found, err := source.Search(cmd.Context(), query)
	if err != nil {
		return writeErr(cmd, err)
	}
	app.Log.Debug("suggestions fetched", "query", query, "count", len(found))
	return writeOut(cmd, app, suggestResult{Query: query, Suggestions: found})
}
