// Package launch starts the dashboard server as a child process of the
// current binary and hands execution off to it. The launcher blocks until
// the child exits and propagates its exit code; there is no supervision or
// restart policy.
package launch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"peopleops/internal/logging"
)

// Health poll parameters: the launcher prints the dashboard URL once
// /healthz responds, giving up quietly after the cap.
const (
	healthPollInterval = 200 * time.Millisecond
	healthPollCap      = 15 * time.Second
)

// Options configures a server launch.
type Options struct {
	Workspace string
	Port      int
	URL       string // dashboard base URL, used for the health poll
	Verbose   bool
}

// ExitError carries the child's exit code to main.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("server exited with code %d", e.Code)
}

// Run re-executes the current binary with `serve` as a single child
// process. Stdout/stderr are inherited, SIGINT/SIGTERM are forwarded, and
// the call blocks until the child exits. A non-zero child exit comes back
// as *ExitError.
func Run(ctx context.Context, opts Options) error {
	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to locate executable: %w", err)
	}

	args := []string{"serve"}
	if opts.Workspace != "" {
		args = append(args, "--workspace", opts.Workspace)
	}
	if opts.Port > 0 {
		args = append(args, "--port", strconv.Itoa(opts.Port))
	}
	if opts.Verbose {
		args = append(args, "--verbose")
	}

	cmd := exec.Command(self, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start server process: %w", err)
	}
	logging.Launch("Started server process pid=%d args=%v", cmd.Process.Pid, args)

	if err := WriteSession(opts.Workspace, Session{
		PID:       cmd.Process.Pid,
		Port:      opts.Port,
		StartedAt: time.Now().UTC(),
	}); err != nil {
		logging.LaunchWarn("Failed to record session: %v", err)
	}

	// Forward termination signals to the child so Ctrl-C stops the server,
	// not just the launcher.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	forwardDone := make(chan struct{})
	go func() {
		defer signal.Stop(sigCh)
		for {
			select {
			case sig := <-sigCh:
				logging.Launch("Forwarding %v to server process", sig)
				_ = cmd.Process.Signal(sig)
			case <-ctx.Done():
				_ = cmd.Process.Signal(syscall.SIGTERM)
				return
			case <-forwardDone:
				return
			}
		}
	}()

	if opts.URL != "" {
		go announceWhenReady(opts.URL)
	}

	err = cmd.Wait()
	close(forwardDone)

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			logging.Launch("Server process exited with code %d", exitErr.ExitCode())
			return &ExitError{Code: exitErr.ExitCode()}
		}
		return fmt.Errorf("server process failed: %w", err)
	}
	logging.Launch("Server process exited cleanly")
	return nil
}

// announceWhenReady polls /healthz and prints the dashboard URL on the
// first 200. Gives up after healthPollCap without complaint; the server's
// own output covers the failure case.
func announceWhenReady(baseURL string) {
	client := &http.Client{Timeout: healthPollInterval}
	deadline := time.Now().Add(healthPollCap)

	for time.Now().Before(deadline) {
		resp, err := client.Get(baseURL + "/healthz")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				fmt.Printf("\n📊 Dashboard ready: %s\n\n", baseURL)
				logging.Launch("Dashboard healthy at %s", baseURL)
				return
			}
		}
		time.Sleep(healthPollInterval)
	}
	logging.LaunchWarn("Dashboard did not become healthy within %v", healthPollCap)
}
