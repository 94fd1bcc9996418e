package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	factCmd := &cobra.Command{
		Use:   "fact",
		Short: "Stable facts about the patient",
	}
	factCmd.AddCommand(
		&cobra.Command{
			Use:   "add [text]",
			Short: "Remember a fact",
			Args:  cobra.MinimumNArgs(1),
			Run: func(cmd *cobra.Command, args []string) {
				ctx := cmd.Context()
				s := openMemory(ctx)
				s.mem.AddFact(ctx, strings.Join(args, " "))
				s.close(ctx)
				printOK(cmd, map[string]any{"facts": len(s.mem.Facts())})
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List remembered facts",
			Run: func(cmd *cobra.Command, args []string) {
				ctx := cmd.Context()
				s := openMemory(ctx)
				defer s.close(ctx)
				printJSON(cmd, s.mem.Facts())
			},
		},
	)

	patternCmd := &cobra.Command{
		Use:   "pattern",
		Short: "Observed patterns across sessions",
	}
	patternCmd.AddCommand(
		&cobra.Command{
			Use:   "add [text]",
			Short: "Remember an observed pattern",
			Args:  cobra.MinimumNArgs(1),
			Run: func(cmd *cobra.Command, args []string) {
				ctx := cmd.Context()
				s := openMemory(ctx)
				s.mem.AddPattern(ctx, strings.Join(args, " "))
				s.close(ctx)
				printOK(cmd, map[string]any{"patterns": len(s.mem.Patterns())})
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List observed patterns",
			Run: func(cmd *cobra.Command, args []string) {
				ctx := cmd.Context()
				s := openMemory(ctx)
				defer s.close(ctx)
				printJSON(cmd, s.mem.Patterns())
			},
		},
	)

	RootCmd.AddCommand(factCmd, patternCmd)
}
