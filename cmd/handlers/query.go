package handlers

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"cvintake/internal/core"
)

// NewQueryCmd creates the query command: translate (and optionally
// execute) a natural-language HR query.
func NewQueryCmd() *cobra.Command {
	var (
		execute        bool
		limit          int
		includeHR      bool
		asyncHR        bool
		useJobMatching bool
	)

	cmd := &cobra.Command{
		Use:   "query <natural-language query>",
		Short: "Translate and execute a natural-language candidate query",
		Long: `Translate a natural-language HR query into structured filters and,
with --execute, run it against the candidate store.

Examples:
  cvintake query "λογιστής με Softone, 5+ χρόνια, Αθήνα"
  cvintake query "senior accountants in Athens" --execute --limit 20
  cvintake query "forklift drivers" --execute --job-matching --hr`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			resp, err := a.queries.Execute(cmd.Context(), core.QueryRequest{
				Query:             args[0],
				Execute:           execute,
				Limit:             limit,
				IncludeHRAnalysis: includeHR,
				AsyncHR:           asyncHR,
				UseJobMatching:    useJobMatching,
			})
			if err != nil {
				return fmt.Errorf("query failed: %w", err)
			}

			out, err := json.MarshalIndent(resp, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}

	cmd.Flags().BoolVar(&execute, "execute", false, "execute the translated query against the candidate store")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum rows to return (clamped to 500)")
	cmd.Flags().BoolVar(&includeHR, "hr", false, "include the HR intelligence analysis")
	cmd.Flags().BoolVar(&asyncHR, "async-hr", false, "run the HR analysis asynchronously and return a job id")
	cmd.Flags().BoolVar(&useJobMatching, "job-matching", false, "fall back to relaxed criteria matching on zero results")
	return cmd
}
