package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/caremem/internal/normalize"
)

func init() {
	cmd := &cobra.Command{
		Use:   "normalize [term]...",
		Short: "Show the canonical form of medical terms",
		Long:  "Map each term to its canonical identifier. With --list, print every known canonical term.",
		Run:   runNormalize,
	}

	cmd.Flags().Bool("list", false, "List known canonical terms")

	RootCmd.AddCommand(cmd)
}

func runNormalize(cmd *cobra.Command, args []string) {
	if list, _ := cmd.Flags().GetBool("list"); list {
		printJSON(cmd, normalize.Canonicals())
		return
	}

	type row struct {
		Term      string `json:"term"`
		Canonical string `json:"canonical"`
		Label     string `json:"label"`
	}
	rows := make([]row, 0, len(args))
	for _, t := range args {
		c := normalize.Normalize(t)
		rows = append(rows, row{Term: t, Canonical: c, Label: normalize.Label(c)})
	}
	printJSON(cmd, rows)
}
