// Package bootstrap implements environment provisioning: it creates and
// populates the .peopleops/ runtime directory, initializes the database and
// document store, and resolves the API credential, prompting the user when
// none is configured.
//
// Phases:
//  1. Environment directory (tree + default config, idempotent)
//  2. Database (schema + sample seed when empty)
//  3. Documents (upload dir + chunk store + initial index)
//  4. Secrets (resolve credential, warn + confirm when absent)
package bootstrap

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"peopleops/internal/config"
	"peopleops/internal/document"
	"peopleops/internal/logging"
	"peopleops/internal/secrets"
	"peopleops/internal/store"
)

// ErrDeclined is returned when the user declines to continue without an
// API credential.
var ErrDeclined = errors.New("bootstrap declined by user")

// Config controls a bootstrap run.
type Config struct {
	Workspace        string
	SkipConfirmation bool // --yes: continue without a credential, no prompt
	SkipSeed         bool // leave the database empty
	Quiet            bool // suppress phase output (used by `serve`)

	// Prompt I/O, defaulting to stdin/stdout. Tests substitute buffers.
	Reader io.Reader
	Writer io.Writer
}

// Result reports what a bootstrap run did.
type Result struct {
	Created        bool // environment directory was created this run
	FilesCreated   []string
	Warnings       []string
	SecretsPresent bool
	SecretsSource  string
	EmployeeCount  int
	DocumentCount  int
	ChunkCount     int
	Duration       time.Duration
}

// Run provisions the workspace. Directory-creation, database, and
// declined-confirmation failures abort; everything else accumulates as
// warnings. Existing user data is never deleted or truncated.
func Run(ctx context.Context, bcfg Config) (*Result, error) {
	start := time.Now()
	if bcfg.Workspace == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to determine workspace: %w", err)
		}
		bcfg.Workspace = wd
	}
	if bcfg.Reader == nil {
		bcfg.Reader = os.Stdin
	}
	if bcfg.Writer == nil {
		bcfg.Writer = os.Stdout
	}

	result := &Result{}
	out := func(format string, args ...interface{}) {
		if !bcfg.Quiet {
			fmt.Fprintf(bcfg.Writer, format+"\n", args...)
		}
	}

	out("🚀 Bootstrapping peopleops workspace...")
	logging.Bootstrap("Bootstrap starting in %s", bcfg.Workspace)

	// Phase 1: environment directory.
	cfg, err := ensureEnvironment(bcfg.Workspace, result)
	if err != nil {
		return nil, err
	}
	if result.Created {
		out("✓ Created .peopleops/ environment directory")
	} else {
		out("✓ Environment directory present")
	}

	// Phase 2: database.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	st, err := store.New(cfg.AbsDatabasePath(bcfg.Workspace))
	if err != nil {
		return nil, fmt.Errorf("database initialization failed: %w", err)
	}
	defer st.Close()

	if !bcfg.SkipSeed {
		seeded, err := st.Seed(ctx)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("sample data seed failed: %v", err))
		} else if seeded > 0 {
			out("✓ Seeded database with %d sample employees", seeded)
		}
	}
	if n, err := st.Headcount(ctx); err == nil {
		result.EmployeeCount = n
	}
	out("✓ Database ready (%d employees)", result.EmployeeCount)

	// Phase 3: documents.
	docs, err := document.NewStore(
		cfg.AbsUploadDir(bcfg.Workspace),
		cfg.AbsChunkStore(bcfg.Workspace),
		cfg.Documents.ChunkSizeWords,
		cfg.Documents.ChunkOverlap,
	)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("document store unavailable: %v", err))
	} else {
		warnings, err := docs.Reindex()
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("document indexing failed: %v", err))
		}
		result.Warnings = append(result.Warnings, warnings...)
		result.DocumentCount, result.ChunkCount = docs.Count()
		out("✓ Document store ready (%d documents, %d chunks)", result.DocumentCount, result.ChunkCount)
	}

	// Phase 4: secrets.
	cred, credErr := secrets.Resolve(bcfg.Workspace)
	if credErr != nil {
		result.Warnings = append(result.Warnings, credErr.Error())
	}
	result.SecretsPresent = cred.Present()
	result.SecretsSource = cred.Source
	if cred.Present() {
		out("✓ API credential found (%s)", cred.Source)
	} else {
		if err := confirmWithoutCredential(bcfg, result); err != nil {
			return nil, err
		}
	}

	result.Duration = time.Since(start)
	logging.Bootstrap("Bootstrap complete in %v (%d warnings)", result.Duration, len(result.Warnings))

	if !bcfg.Quiet {
		printSummary(bcfg.Writer, result)
	}
	return result, nil
}

// ensureEnvironment creates the .peopleops/ tree and default config when
// absent. Existing files are left alone.
func ensureEnvironment(workspace string, result *Result) (*config.Config, error) {
	envDir := filepath.Join(workspace, ".peopleops")
	if _, err := os.Stat(envDir); os.IsNotExist(err) {
		result.Created = true
	}

	dirs := []string{
		envDir,
		filepath.Join(envDir, "data"),
		filepath.Join(envDir, "documents", "uploads"),
		filepath.Join(envDir, "logs"),
	}
	for _, dir := range dirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create %s: %w", dir, err)
			}
			result.FilesCreated = append(result.FilesCreated, dir)
		}
	}

	configPath := filepath.Join(envDir, "config.yaml")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := cfg.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to write default config: %w", err)
		}
		result.FilesCreated = append(result.FilesCreated, configPath)
	}

	// Keep the secrets file out of version control.
	gitignorePath := filepath.Join(envDir, ".gitignore")
	if _, err := os.Stat(gitignorePath); os.IsNotExist(err) {
		content := "secrets.yaml\nlogs/\n*.db\n*.db-wal\n*.db-shm\n"
		if err := os.WriteFile(gitignorePath, []byte(content), 0644); err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("failed to write .gitignore: %v", err))
		} else {
			result.FilesCreated = append(result.FilesCreated, gitignorePath)
		}
	}

	return cfg, nil
}

// confirmWithoutCredential warns about the missing credential and asks for
// a y/n confirmation. SkipConfirmation accepts automatically;
// non-interactive stdin (EOF) declines.
func confirmWithoutCredential(bcfg Config, result *Result) error {
	if !bcfg.Quiet {
		fmt.Fprintln(bcfg.Writer)
		fmt.Fprintln(bcfg.Writer, "⚠️  No API credential found.")
		fmt.Fprintf(bcfg.Writer, "   Set %s or %s, or add it to %s.\n",
			secrets.EnvPrimary, secrets.EnvFallback, secrets.Path(bcfg.Workspace))
		fmt.Fprintln(bcfg.Writer, "   The dashboard will run with the AI assistant disabled.")
	}

	if bcfg.SkipConfirmation {
		result.Warnings = append(result.Warnings, "continuing without API credential (--yes)")
		return nil
	}

	if !bcfg.Quiet {
		fmt.Fprint(bcfg.Writer, "\nContinue without an API key? (y/n): ")
	}
	scanner := bufio.NewScanner(bcfg.Reader)
	if !scanner.Scan() {
		return fmt.Errorf("%w: no confirmation received", ErrDeclined)
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	if answer != "y" && answer != "yes" {
		return ErrDeclined
	}
	result.Warnings = append(result.Warnings, "continuing without API credential")
	return nil
}

// printSummary prints the bootstrap summary.
func printSummary(w io.Writer, result *Result) {
	fmt.Fprintln(w, "\n"+strings.Repeat("═", 50))
	fmt.Fprintln(w, "✅ BOOTSTRAP COMPLETE")
	fmt.Fprintln(w, strings.Repeat("═", 50))

	fmt.Fprintf(w, "\n📊 Employees: %d\n", result.EmployeeCount)
	fmt.Fprintf(w, "📄 Documents: %d (%d chunks)\n", result.DocumentCount, result.ChunkCount)
	if result.SecretsPresent {
		fmt.Fprintf(w, "🔑 Credential: %s\n", result.SecretsSource)
	} else {
		fmt.Fprintln(w, "🔑 Credential: not configured (assistant disabled)")
	}
	fmt.Fprintf(w, "📂 Files created: %d\n", len(result.FilesCreated))
	fmt.Fprintf(w, "⏱️ Duration: %.2fs\n", result.Duration.Seconds())

	if len(result.Warnings) > 0 {
		fmt.Fprintln(w, "\n⚠️ Warnings:")
		for _, warning := range result.Warnings {
			fmt.Fprintf(w, "   - %s\n", warning)
		}
	}
}
