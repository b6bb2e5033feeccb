package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"peopleops/internal/bootstrap"
	"peopleops/internal/server"
)

var servePort int

// serveCmd runs the dashboard server in the foreground. `up` spawns this
// as its child process; running it directly is fine too.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard server in the foreground",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Dashboard port (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// Quiet provisioning pass so a bare `serve` in a fresh directory works.
	// No prompt here; credential handling already happened in `up`, or the
	// assistant simply runs degraded.
	if _, err := bootstrap.Run(ctx, bootstrap.Config{
		Workspace:        workspace,
		SkipConfirmation: true,
		Quiet:            true,
	}); err != nil {
		return err
	}

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if servePort > 0 {
		a.cfg.Server.Port = servePort
	}

	logger.Info("Starting dashboard",
		zap.String("addr", a.cfg.Addr()),
		zap.Bool("assistant", a.assistant.Enabled()))

	return server.New(a.cfg, a.store, a.docs, a.retriever, a.assistant, a.tracker).Run(ctx)
}
