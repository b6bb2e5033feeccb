package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"peopleops/internal/config"
	"peopleops/internal/document"
	"peopleops/internal/launch"
	"peopleops/internal/secrets"
	"peopleops/internal/usage"
)

var (
	statusTitle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	statusSection = lipgloss.NewStyle().Bold(true).MarginTop(1)
	statusLabel   = lipgloss.NewStyle().Faint(true).Width(14)
	statusWarn    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	statusOK      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// statusCmd summarizes the workspace: environment, data, credential, last
// launch. Read-only; safe to run anytime.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show workspace status",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func statusLine(label, value string) string {
	return statusLabel.Render(label) + " " + value
}

func runStatus(cmd *cobra.Command, args []string) error {
	var b strings.Builder
	out := func(s string) { b.WriteString(s + "\n") }

	out(statusTitle.Render("peopleops workspace"))
	out(statusLine("Workspace", workspace))

	envDir := filepath.Join(workspace, ".peopleops")
	if _, err := os.Stat(envDir); os.IsNotExist(err) {
		out(statusLine("Environment", statusWarn.Render("not set up (run `peopleops up`)")))
		fmt.Println(b.String())
		return nil
	}
	out(statusLine("Environment", envDir))

	cfg, err := config.LoadFromWorkspace(workspace)
	if err != nil {
		return err
	}

	out(statusSection.Render("Database"))
	dbPath := cfg.AbsDatabasePath(workspace)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		out(statusLine("Path", statusWarn.Render(dbPath+" (missing)")))
	} else {
		st, _, err := openStore()
		if err != nil {
			return err
		}
		counts, err := st.Stats(cmd.Context())
		st.Close()
		if err != nil {
			return err
		}
		out(statusLine("Path", dbPath))
		out(statusLine("Employees", fmt.Sprintf("%d", counts["employees"])))
		out(statusLine("Transfers", fmt.Sprintf("%d", counts["transfers"])))
		out(statusLine("Feedback", fmt.Sprintf("%d", counts["feedback"])))
	}

	out(statusSection.Render("Documents"))
	docs, err := document.NewStore(cfg.AbsUploadDir(workspace), cfg.AbsChunkStore(workspace),
		cfg.Documents.ChunkSizeWords, cfg.Documents.ChunkOverlap)
	if err != nil {
		out(statusLine("Index", statusWarn.Render(err.Error())))
	} else {
		nDocs, nChunks := docs.Count()
		out(statusLine("Indexed", fmt.Sprintf("%d documents, %d chunks", nDocs, nChunks)))
		out(statusLine("Upload dir", cfg.AbsUploadDir(workspace)))
	}

	out(statusSection.Render("Assistant"))
	cred, credErr := secrets.Resolve(workspace)
	switch {
	case credErr != nil:
		out(statusLine("Credential", statusWarn.Render(credErr.Error())))
	case cred.Present():
		out(statusLine("Credential", statusOK.Render(cred.Redacted())+" ("+cred.Source+")"))
		out(statusLine("Model", cfg.Assistant.Model))
	default:
		out(statusLine("Credential", statusWarn.Render("not set (degraded mode)")))
	}

	if tracker, err := usage.NewTracker(workspace); err == nil {
		stats := tracker.Stats()
		if stats.TotalQueries > 0 {
			out(statusLine("Queries", fmt.Sprintf("%d (%.1f hours saved, %.0f%% faster)",
				stats.TotalQueries, stats.TimeSavedHours, stats.EfficiencyPct)))
		}
	}

	out(statusSection.Render("Last launch"))
	session, err := launch.ReadSession(workspace)
	switch {
	case err != nil:
		out(statusLine("Session", statusWarn.Render(err.Error())))
	case session == nil:
		out(statusLine("Session", "never launched"))
	default:
		out(statusLine("Started", fmt.Sprintf("%s (pid %d, port %d)",
			session.StartedAt.Local().Format(time.RFC1123), session.PID, session.Port)))
	}

	fmt.Println(b.String())
	return nil
}
