package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Patient profile captured at onboarding",
	}

	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Set profile fields",
		Long:  "Set profile fields. Only the flags given are changed. Dates use YYYY-MM-DD.",
		Run:   runProfileSet,
	}
	setCmd.Flags().String("caregiver", "", "Caregiver name")
	setCmd.Flags().String("name", "", "Patient name")
	setCmd.Flags().String("relationship", "", "Caregiver's relationship to the patient")
	setCmd.Flags().String("diagnosis", "", "Primary diagnosis")
	setCmd.Flags().String("surgery-date", "", "Surgery date (YYYY-MM-DD)")
	setCmd.Flags().String("admission-date", "", "Admission date (YYYY-MM-DD)")
	setCmd.Flags().StringSlice("care-team", nil, "Care team members")
	setCmd.Flags().StringSlice("medications", nil, "Current medications")
	setCmd.Flags().StringSlice("allergies", nil, "Known allergies")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the patient profile",
		Run:   runProfileShow,
	}

	profileCmd.AddCommand(setCmd, showCmd)
	RootCmd.AddCommand(profileCmd)
}

func runProfileSet(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	s := openMemory(ctx)

	p := s.mem.Profile()
	flags := cmd.Flags()
	str := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	list := func(name string, dst *[]string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetStringSlice(name)
		}
	}
	date := func(name string, dst **time.Time) {
		if !flags.Changed(name) {
			return
		}
		v, _ := flags.GetString(name)
		if v == "" {
			*dst = nil
			return
		}
		t, err := time.Parse(time.DateOnly, v)
		if err != nil {
			exitErr(name, fmt.Errorf("expected YYYY-MM-DD: %w", err))
		}
		*dst = &t
	}

	str("caregiver", &p.CaregiverName)
	str("name", &p.PatientName)
	str("relationship", &p.Relationship)
	str("diagnosis", &p.Diagnosis)
	date("surgery-date", &p.SurgeryDate)
	date("admission-date", &p.AdmissionDate)
	list("care-team", &p.CareTeam)
	list("medications", &p.Medications)
	list("allergies", &p.Allergies)

	s.mem.SetProfile(ctx, p)
	s.close(ctx)
	printJSON(cmd, s.mem.Profile())
}

func runProfileShow(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	s := openMemory(ctx)
	defer s.close(ctx)

	printJSON(cmd, s.mem.Profile())
}
