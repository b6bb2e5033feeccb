package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"peopleops/internal/bootstrap"
	"peopleops/internal/config"
	"peopleops/internal/launch"
)

var (
	upYes    bool
	upNoSeed bool
	upPort   int
)

// upCmd bootstraps the workspace and starts the dashboard. This is the one
// command a new user runs.
var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Set up the workspace and start the dashboard",
	Long: `Provisions the workspace (environment directory, database, sample data,
document index, API credential check) and then starts the dashboard server,
waiting on it until it exits. Re-running is safe: existing data is kept.

Without an API credential the setup asks for confirmation; the dashboard
still works but the AI assistant answers with raw document excerpts.`,
	Args: cobra.NoArgs,
	RunE: runUp,
}

// initCmd is `up` without the server: provision only.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Set up the workspace without starting the dashboard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := bootstrap.Run(cmd.Context(), bootstrap.Config{
			Workspace:        workspace,
			SkipConfirmation: upYes,
			SkipSeed:         upNoSeed,
		})
		return err
	},
}

func init() {
	for _, cmd := range []*cobra.Command{upCmd, initCmd} {
		cmd.Flags().BoolVarP(&upYes, "yes", "y", false, "Continue without an API credential, no prompt")
		cmd.Flags().BoolVar(&upNoSeed, "no-seed", false, "Leave the database empty instead of seeding sample data")
	}
	upCmd.Flags().IntVarP(&upPort, "port", "p", 0, "Dashboard port (overrides config)")
}

func runUp(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	result, err := bootstrap.Run(ctx, bootstrap.Config{
		Workspace:        workspace,
		SkipConfirmation: upYes,
		SkipSeed:         upNoSeed,
	})
	if err != nil {
		return err
	}
	logger.Debug("Bootstrap complete",
		zap.Int("employees", result.EmployeeCount),
		zap.Int("documents", result.DocumentCount),
		zap.Duration("took", result.Duration))

	cfg, err := config.LoadFromWorkspace(workspace)
	if err != nil {
		return err
	}
	port := cfg.Server.Port
	if upPort > 0 {
		port = upPort
	}

	return launch.Run(ctx, launch.Options{
		Workspace: workspace,
		Port:      port,
		URL:       fmt.Sprintf("http://%s:%d", cfg.Server.Host, port),
		Verbose:   verbose,
	})
}
