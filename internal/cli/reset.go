package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear the patient's memory",
		Long:  "Clear the patient's memory. Earlier snapshot versions stay in history until pruned.",
		Run:   runReset,
	}

	cmd.Flags().Bool("yes", false, "Confirm the reset")

	RootCmd.AddCommand(cmd)
}

func runReset(cmd *cobra.Command, args []string) {
	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		exitErr("reset", errors.New("refusing to clear memory without --yes"))
	}

	ctx := cmd.Context()
	s := openMemory(ctx)
	s.mem.Reset(ctx)
	s.close(ctx)

	printOK(cmd, map[string]any{"patient": s.slot.Patient})
}
