package launch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// SessionFileName is the last-launch record inside the environment directory.
const SessionFileName = "session.json"

// Session records the most recent server launch for `status`.
type Session struct {
	PID       int       `json:"pid"`
	Port      int       `json:"port"`
	StartedAt time.Time `json:"started_at"`
}

func sessionPath(workspace string) string {
	return filepath.Join(workspace, ".peopleops", SessionFileName)
}

// WriteSession persists the launch record.
func WriteSession(workspace string, s Session) error {
	path := sessionPath(workspace)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create environment directory: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadSession loads the last-launch record. Returns (nil, nil) when no
// launch has been recorded.
func ReadSession(workspace string) (*Session, error) {
	data, err := os.ReadFile(sessionPath(workspace))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}
	return &s, nil
}
