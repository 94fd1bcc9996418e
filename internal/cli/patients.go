package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "patients",
		Short: "List patients with stored memory",
		Run:   runPatients,
	}

	RootCmd.AddCommand(cmd)
}

func runPatients(cmd *cobra.Command, args []string) {
	s, err := openBackend()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	patients, err := s.Patients(cmd.Context())
	if err != nil {
		exitErr("list patients", err)
	}
	if patients == nil {
		patients = []string{}
	}
	printJSON(cmd, patients)
}
