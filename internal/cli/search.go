package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/caremem/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search archived session transcripts",
		Long:  "Full-text search over archived transcripts. Every word must match; results are ranked by relevance.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}

	cmd.Flags().BoolP("all", "a", false, "Search every patient")
	cmd.Flags().IntP("limit", "l", 20, "Max results")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	all, _ := cmd.Flags().GetBool("all")
	limit, _ := cmd.Flags().GetInt("limit")
	query := strings.Join(args, " ")

	s, err := openSQLite()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	p := store.SearchParams{Query: query, Limit: limit}
	if !all {
		p.Patient = patientID()
	}
	results, err := s.SearchTranscripts(cmd.Context(), p)
	if err != nil {
		exitErr("search", err)
	}

	if len(results) == 0 {
		printJSON(cmd, []any{})
		return
	}
	printJSON(cmd, results)
}
