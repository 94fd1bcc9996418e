package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export snapshot versions as JSON",
		Long:  "Export every stored snapshot version of the patient, oldest first. Use --all for every patient.",
		Run:   runExport,
	}

	cmd.Flags().BoolP("all", "a", false, "Export every patient")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	all, _ := cmd.Flags().GetBool("all")

	s, err := openSQLite()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	patient := ""
	if !all {
		patient = patientID()
	}
	records, err := s.ExportAll(cmd.Context(), patient)
	if err != nil {
		exitErr("export", err)
	}
	if len(records) == 0 {
		printJSON(cmd, []any{})
		return
	}
	printJSON(cmd, records)
}
