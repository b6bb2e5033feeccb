// Package usage tracks assistant query metrics: how many questions were
// answered and how much manual lookup time that replaced. The counters
// persist as JSON in the workspace so they survive restarts.
package usage

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"peopleops/internal/logging"
)

// Per-query time model, in minutes. Answering an HR question by hand
// (find the document, read it, reply) averages 7.5 minutes; asking the
// assistant takes about 0.5.
const (
	manualMinutesPerQuery = 7.5
	assistMinutesPerQuery = 0.5
)

// saveDelay debounces disk writes under bursts of queries.
const saveDelay = 5 * time.Second

// FileName is the usage file name inside the workspace environment directory.
const FileName = "usage.json"

// data is the persisted shape of usage.json.
type data struct {
	Version     string         `json:"version"`
	TotalQueries int           `json:"total_queries"`
	ByDay       map[string]int `json:"by_day"` // "2006-01-02" -> count
	LastQueryAt time.Time      `json:"last_query_at"`
}

// Stats is a read-only snapshot for handlers and status output.
type Stats struct {
	TotalQueries     int            `json:"total_queries"`
	TimeSavedMinutes float64        `json:"time_saved_minutes"`
	TimeSavedHours   float64        `json:"time_saved_hours"`
	EfficiencyPct    float64        `json:"efficiency_pct"`
	ByDay            map[string]int `json:"by_day"`
	LastQueryAt      time.Time      `json:"last_query_at"`
}

// Tracker records assistant queries with debounced persistence.
type Tracker struct {
	mu       sync.Mutex
	data     data
	filePath string
	dirty    bool
}

// NewTracker loads (or creates) the tracker persisted under the workspace
// environment directory. A corrupt or missing file starts empty.
func NewTracker(workspace string) (*Tracker, error) {
	dir := filepath.Join(workspace, ".peopleops")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create environment directory: %w", err)
	}

	t := &Tracker{
		filePath: filepath.Join(dir, FileName),
		data:     data{Version: "1.0", ByDay: make(map[string]int)},
	}
	if err := t.load(); err != nil {
		logging.UsageDebug("Usage file unreadable, starting empty: %v", err)
		t.data = data{Version: "1.0", ByDay: make(map[string]int)}
	}
	return t, nil
}

func (t *Tracker) load() error {
	raw, err := os.ReadFile(t.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, &t.data); err != nil {
		return err
	}
	if t.data.ByDay == nil {
		t.data.ByDay = make(map[string]int)
	}
	return nil
}

// Save writes the usage data to disk immediately.
func (t *Tracker) Save() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.saveLocked()
}

func (t *Tracker) saveLocked() error {
	raw, err := json.MarshalIndent(t.data, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(t.filePath, raw, 0644); err != nil {
		return fmt.Errorf("failed to write usage file: %w", err)
	}
	t.dirty = false
	return nil
}

// RecordQuery counts one answered assistant question.
func (t *Tracker) RecordQuery() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	t.data.TotalQueries++
	t.data.ByDay[now.Format("2006-01-02")]++
	t.data.LastQueryAt = now

	logging.Usage("Recorded assistant query #%d", t.data.TotalQueries)

	if !t.dirty {
		t.dirty = true
		time.AfterFunc(saveDelay, func() {
			if err := t.Save(); err != nil {
				logging.Get(logging.CategoryUsage).Error("Failed to save usage data: %v", err)
			}
		})
	}
}

// Stats returns a snapshot with the derived time-saved metrics.
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := t.data.TotalQueries
	manual := float64(n) * manualMinutesPerQuery
	saved := manual - float64(n)*assistMinutesPerQuery

	s := Stats{
		TotalQueries:     n,
		TimeSavedMinutes: math.Round(saved*10) / 10,
		TimeSavedHours:   math.Round(saved/60*100) / 100,
		ByDay:            make(map[string]int, len(t.data.ByDay)),
		LastQueryAt:      t.data.LastQueryAt,
	}
	if manual > 0 {
		s.EfficiencyPct = math.Round(saved/manual*1000) / 10
	}
	for k, v := range t.data.ByDay {
		s.ByDay[k] = v
	}
	return s
}
