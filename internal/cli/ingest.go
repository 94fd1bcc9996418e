package cli

import (
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/caremem/internal/ingest"
)

func init() {
	cmd := &cobra.Command{
		Use:   "ingest [file]",
		Short: "Record a session extraction",
		Long: "Record one session extraction (JSON with date, day, transcript, key_points, " +
			"medical_values, facts, concerns, patterns, next_steps, questions) from a file or stdin.",
		Args: cobra.MaximumNArgs(1),
		Run:  runIngest,
	}

	RootCmd.AddCommand(cmd)
}

func runIngest(cmd *cobra.Command, args []string) {
	var r io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			exitErr("open extraction", err)
		}
		defer f.Close()
		r = f
	}

	ex, err := ingest.Decode(r)
	if err != nil {
		exitErr("read extraction", err)
	}

	ctx := cmd.Context()
	s := openMemory(ctx)

	rec := ingest.NewRecorder(s.mem, ingest.WithArchive(s.slot), ingest.WithLogger(logger))
	sess, err := rec.Record(ctx, ex)
	if errors.Is(err, ingest.ErrEmptyExtraction) {
		exitErr("ingest", errors.New("extraction has no key points, values, facts, concerns or transcript"))
	}
	if err != nil {
		exitErr("ingest", err)
	}
	s.close(ctx)

	logger.Info("session recorded", "patient", s.slot.Patient, "session", sess.ID)
	printJSON(cmd, sess)
}
