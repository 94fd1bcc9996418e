// Package cli implements the caremem CLI commands.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/rcliao/caremem/internal/config"
	"github.com/rcliao/caremem/internal/memory"
	"github.com/rcliao/caremem/internal/store"
)

var (
	configPath  string
	dbPath      string
	patientFlag string
	backendFlag string
	logLevel    string

	cfg    = config.DefaultConfig()
	logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "caremem"})
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "caremem",
	Short: "Persistent patient memory for caregiver conversations",
	Long: "Remembers what caregivers report across sessions (vitals, facts, concerns) " +
		"and renders the full history as a context block for the next conversation.",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: $CAREMEM_HOME/config.yaml)")
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (overrides storage.db_path)")
	RootCmd.PersistentFlags().StringVarP(&patientFlag, "patient", "p", "", "Patient namespace (overrides patient)")
	RootCmd.PersistentFlags().StringVar(&backendFlag, "backend", "", "Storage backend: sqlite or file")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	if err := config.LoadEnv(); err != nil {
		return err
	}
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	loaded, err := config.Load(path)
	if err != nil {
		return err
	}
	if dbPath != "" {
		loaded.Storage.DBPath = dbPath
	}
	if patientFlag != "" {
		loaded.Patient = patientFlag
	}
	if backendFlag != "" {
		loaded.Storage.Backend = backendFlag
	}
	if logLevel != "" {
		loaded.Log.Level = logLevel
	}
	if err := loaded.Validate(); err != nil {
		return err
	}
	cfg = loaded
	logger.SetLevel(cfg.LogLevel())
	logger.Debug("config loaded", "path", path, "backend", cfg.Storage.Backend, "patient", cfg.Patient)
	return nil
}

func patientID() string {
	if err := store.ValidatePatient(cfg.Patient); err != nil {
		exitErr("patient", err)
	}
	return cfg.Patient
}

func openBackend() (store.Store, error) {
	switch cfg.Storage.Backend {
	case config.BackendFile:
		return store.NewFileStore(cfg.Storage.SnapshotDir)
	default:
		return store.NewSQLiteStore(cfg.Storage.DBPath)
	}
}

// openSQLite is used by commands that need version history or transcripts.
func openSQLite() (*store.SQLiteStore, error) {
	if cfg.Storage.Backend != config.BackendSQLite {
		return nil, fmt.Errorf("requires the sqlite backend, configured backend is %q", cfg.Storage.Backend)
	}
	return store.NewSQLiteStore(cfg.Storage.DBPath)
}

// session is an open backend plus the patient's memory loaded from it.
type session struct {
	backend store.Store
	slot    store.Slot
	mem     *memory.Store
}

func openMemory(ctx context.Context) *session {
	backend, err := openBackend()
	if err != nil {
		exitErr("open store", err)
	}
	slot := store.Slot{Store: backend, Patient: patientID()}
	mem := memory.Open(ctx, slot, memory.WithLimits(cfg.Limits), memory.WithLogger(logger))
	return &session{backend: backend, slot: slot, mem: mem}
}

// close reports a failed save and trims old versions before closing the store.
func (s *session) close(ctx context.Context) {
	defer s.backend.Close()
	if err := s.mem.LastPersistError(); err != nil {
		exitErr("save memory", err)
	}
	sq, ok := s.backend.(*store.SQLiteStore)
	if !ok || cfg.Storage.KeepVersions < 1 {
		return
	}
	n, err := sq.Prune(ctx, s.slot.Patient, cfg.Storage.KeepVersions)
	if err != nil {
		logger.Warn("prune snapshots", "patient", s.slot.Patient, "error", err)
		return
	}
	if n > 0 {
		logger.Debug("pruned snapshots", "patient", s.slot.Patient, "removed", n)
	}
}

func printJSON(cmd *cobra.Command, v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}

func printOK(cmd *cobra.Command, fields map[string]any) {
	out := map[string]any{"ok": true}
	for k, v := range fields {
		out[k] = v
	}
	b, _ := json.Marshal(out)
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
