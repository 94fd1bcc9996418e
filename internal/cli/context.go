package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/caremem/internal/contextbuilder"
)

func init() {
	cmd := &cobra.Command{
		Use:   "context [current condition]",
		Short: "Print the patient memory context block",
		Long: "Render the complete patient history (profile, baseline, vital trends, facts, " +
			"recurring concerns and every session) as a plain-text block for the next conversation.",
		Run: runContext,
	}

	cmd.Flags().String("condition", "", "Current condition summary appended at the end")

	RootCmd.AddCommand(cmd)
}

func runContext(cmd *cobra.Command, args []string) {
	cond, _ := cmd.Flags().GetString("condition")
	if cond == "" {
		cond = strings.Join(args, " ")
	}

	ctx := cmd.Context()
	s := openMemory(ctx)
	defer s.close(ctx)

	out := contextbuilder.Build(contextbuilder.FromSnapshot(s.mem.Snapshot(), cond))
	fmt.Fprintln(cmd.OutOrStdout(), out)
}
