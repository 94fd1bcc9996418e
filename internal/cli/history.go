package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List stored snapshot versions for the patient",
		Long:  "List stored snapshot versions, newest first. With --version, print that version including its data.",
		Run:   runHistory,
	}
	historyCmd.Flags().IntP("version", "v", 0, "Show one version with its data")

	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the newest snapshot versions",
		Run:   runPrune,
	}
	pruneCmd.Flags().IntP("keep", "k", 10, "Versions to keep")

	RootCmd.AddCommand(historyCmd, pruneCmd)
}

func runHistory(cmd *cobra.Command, args []string) {
	version, _ := cmd.Flags().GetInt("version")

	s, err := openSQLite()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if version > 0 {
		rec, err := s.SnapshotVersion(cmd.Context(), patientID(), version)
		if err != nil {
			exitErr("history", err)
		}
		printJSON(cmd, rec)
		return
	}

	records, err := s.History(cmd.Context(), patientID())
	if err != nil {
		exitErr("history", err)
	}
	if len(records) == 0 {
		printJSON(cmd, []any{})
		return
	}
	printJSON(cmd, records)
}

func runPrune(cmd *cobra.Command, args []string) {
	keep, _ := cmd.Flags().GetInt("keep")

	s, err := openSQLite()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	n, err := s.Prune(cmd.Context(), patientID(), keep)
	if err != nil {
		exitErr("prune", err)
	}
	printOK(cmd, map[string]any{"pruned": n})
}
