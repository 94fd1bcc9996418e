package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	questionCmd := &cobra.Command{
		Use:   "question",
		Short: "Questions the caregiver has asked",
	}
	questionCmd.AddCommand(
		&cobra.Command{
			Use:   "add [text]",
			Short: "Record a question",
			Args:  cobra.MinimumNArgs(1),
			Run: func(cmd *cobra.Command, args []string) {
				ctx := cmd.Context()
				s := openMemory(ctx)
				s.mem.RecordQuestion(ctx, strings.Join(args, " "))
				s.close(ctx)
				printOK(cmd, map[string]any{"questions": len(s.mem.Questions())})
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List recorded questions",
			Run: func(cmd *cobra.Command, args []string) {
				ctx := cmd.Context()
				s := openMemory(ctx)
				defer s.close(ctx)
				printJSON(cmd, s.mem.Questions())
			},
		},
	)

	prefCmd := &cobra.Command{
		Use:   "pref",
		Short: "Caregiver communication preferences",
	}
	prefCmd.AddCommand(
		&cobra.Command{
			Use:   "set [key] [value]",
			Short: "Set a preference (an empty value removes it)",
			Args:  cobra.RangeArgs(1, 2),
			Run: func(cmd *cobra.Command, args []string) {
				value := ""
				if len(args) == 2 {
					value = args[1]
				}
				ctx := cmd.Context()
				s := openMemory(ctx)
				s.mem.SetPreference(ctx, args[0], value)
				s.close(ctx)
				printJSON(cmd, s.mem.Preferences())
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List preferences",
			Run: func(cmd *cobra.Command, args []string) {
				ctx := cmd.Context()
				s := openMemory(ctx)
				defer s.close(ctx)
				printJSON(cmd, s.mem.Preferences())
			},
		},
	)

	RootCmd.AddCommand(questionCmd, prefCmd)
}
