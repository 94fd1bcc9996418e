package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/caremem/internal/config"
)

func init() {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show or initialize the configuration",
		Run:   runConfigShow,
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Run:   runConfigShow,
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the effective configuration to the config file",
		Run:   runConfigInit,
	}
	initCmd.Flags().Bool("force", false, "Overwrite an existing config file")

	configCmd.AddCommand(showCmd, initCmd)
	RootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) {
	fmt.Fprint(cmd.OutOrStdout(), cfg.String())
}

func runConfigInit(cmd *cobra.Command, args []string) {
	force, _ := cmd.Flags().GetBool("force")
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}

	if _, err := os.Stat(path); err == nil && !force {
		exitErr("config init", fmt.Errorf("%s already exists (use --force)", path))
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		exitErr("config init", err)
	}

	if err := config.Save(path, cfg); err != nil {
		exitErr("config init", err)
	}
	printOK(cmd, map[string]any{"path": path})
}
