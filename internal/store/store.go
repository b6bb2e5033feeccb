// Package store implements the SQLite-backed HR data store.
// It holds the three dashboard tables (employees, transfers, feedback) and
// the aggregate queries the dashboard tiles are built from. A single writer
// connection with WAL keeps concurrent dashboard reads cheap.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"peopleops/internal/logging"
	"peopleops/internal/types"
)

// Store wraps the SQLite database holding HR records.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// Schema DDL. Kept as const strings so the schema is visible in one place.
const (
	employeesTable = `
	CREATE TABLE IF NOT EXISTS employees (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		employee_id TEXT UNIQUE NOT NULL,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		email TEXT UNIQUE NOT NULL,
		department TEXT NOT NULL,
		position TEXT NOT NULL,
		hire_date TEXT NOT NULL,
		salary REAL NOT NULL,
		status TEXT NOT NULL DEFAULT 'Active',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`

	transfersTable = `
	CREATE TABLE IF NOT EXISTS transfers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		employee_id TEXT NOT NULL,
		from_department TEXT NOT NULL,
		to_department TEXT NOT NULL,
		transfer_date TEXT NOT NULL,
		reason TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (employee_id) REFERENCES employees(employee_id)
	);`

	feedbackTable = `
	CREATE TABLE IF NOT EXISTS feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		employee_id TEXT NOT NULL,
		feedback_date TEXT NOT NULL,
		feedback_type TEXT NOT NULL,
		rating INTEGER NOT NULL CHECK (rating >= 1 AND rating <= 5),
		comments TEXT,
		reviewer TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (employee_id) REFERENCES employees(employee_id)
	);`
)

// Secondary indexes; creation failures are logged but non-fatal.
var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_employees_department ON employees(department)`,
	`CREATE INDEX IF NOT EXISTS idx_employees_status ON employees(status)`,
	`CREATE INDEX IF NOT EXISTS idx_transfers_date ON transfers(transfer_date)`,
	`CREATE INDEX IF NOT EXISTS idx_feedback_employee ON feedback(employee_id)`,
	`CREATE INDEX IF NOT EXISTS idx_feedback_rating ON feedback(rating)`,
}

// New opens (creating if needed) the SQLite database at path and ensures
// the schema exists.
func New(path string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryStore, "store.New")
	defer timer.Stop()

	logging.Store("Opening HR store at %s", path)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}
	// NORMAL is safe under WAL and much faster than the FULL default.
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite synchronous=NORMAL: %v", err)
	}

	s := &Store{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logging.Store("HR store ready (employees, transfers, feedback)")
	return s, nil
}

// initialize creates the required tables and indexes.
func (s *Store) initialize() error {
	for _, ddl := range []string{employeesTable, transfersTable, feedbackTable} {
		if _, err := s.db.Exec(ddl); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	for _, idx := range indexes {
		if _, err := s.db.Exec(idx); err != nil {
			logging.StoreWarn("Index creation failed (continuing): %v", err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// AllEmployees returns every employee ordered by department, then last name.
func (s *Store) AllEmployees(ctx context.Context) ([]types.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, employee_id, first_name, last_name, email,
		       department, position, hire_date, salary, status
		FROM employees
		ORDER BY department, last_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var out []types.Employee
	for rows.Next() {
		var e types.Employee
		if err := rows.Scan(&e.ID, &e.EmployeeID, &e.FirstName, &e.LastName,
			&e.Email, &e.Department, &e.Position, &e.HireDate, &e.Salary, &e.Status); err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DepartmentStats returns headcount and salary aggregates per department,
// counting Active employees only, largest departments first.
func (s *Store) DepartmentStats(ctx context.Context) ([]types.DepartmentStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT department, COUNT(*) AS headcount,
		       AVG(salary), MIN(salary), MAX(salary)
		FROM employees
		WHERE status = ?
		GROUP BY department
		ORDER BY headcount DESC`, types.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to query department stats: %w", err)
	}
	defer rows.Close()

	var out []types.DepartmentStat
	for rows.Next() {
		var d types.DepartmentStat
		if err := rows.Scan(&d.Department, &d.Headcount, &d.AvgSalary, &d.MinSalary, &d.MaxSalary); err != nil {
			return nil, fmt.Errorf("failed to scan department stat: %w", err)
		}
		d.AvgSalary = math.Round(d.AvgSalary*100) / 100
		out = append(out, d)
	}
	return out, rows.Err()
}

// RecentTransfers returns the newest transfers joined with the employee's
// display name. limit <= 0 defaults to 10.
func (s *Store) RecentTransfers(ctx context.Context, limit int) ([]types.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.employee_id, e.first_name || ' ' || e.last_name,
		       t.from_department, t.to_department, t.transfer_date, COALESCE(t.reason, '')
		FROM transfers t
		JOIN employees e ON e.employee_id = t.employee_id
		ORDER BY t.transfer_date DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query transfers: %w", err)
	}
	defer rows.Close()

	var out []types.Transfer
	for rows.Next() {
		var t types.Transfer
		if err := rows.Scan(&t.ID, &t.EmployeeID, &t.EmployeeName,
			&t.FromDepartment, &t.ToDepartment, &t.TransferDate, &t.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// FeedbackSummary aggregates the feedback table: total entries, average
// rating rounded to one decimal, positive count (rating >= 4), and a
// per-type breakdown.
func (s *Store) FeedbackSummary(ctx context.Context) (*types.FeedbackSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := &types.FeedbackSummary{ByType: make(map[string]int)}

	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(AVG(rating), 0),
		       COALESCE(SUM(CASE WHEN rating >= 4 THEN 1 ELSE 0 END), 0)
		FROM feedback`)
	var avg float64
	if err := row.Scan(&sum.Total, &avg, &sum.Positive); err != nil {
		return nil, fmt.Errorf("failed to query feedback summary: %w", err)
	}
	sum.AvgRating = math.Round(avg*10) / 10

	rows, err := s.db.QueryContext(ctx, `
		SELECT feedback_type, COUNT(*) FROM feedback GROUP BY feedback_type`)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback types: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, fmt.Errorf("failed to scan feedback type: %w", err)
		}
		sum.ByType[typ] = n
	}
	return sum, rows.Err()
}

// Headcount returns the total number of employee rows.
func (s *Store) Headcount(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM employees`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count employees: %w", err)
	}
	return n, nil
}

// InsertEmployee inserts a single employee record.
func (s *Store) InsertEmployee(ctx context.Context, e types.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertEmployee(ctx, s.db, e)
}

// InsertTransfer inserts a single transfer record.
func (s *Store) InsertTransfer(ctx context.Context, t types.Transfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertTransfer(ctx, s.db, t)
}

// InsertFeedback inserts a single feedback record.
func (s *Store) InsertFeedback(ctx context.Context, f types.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertFeedback(ctx, s.db, f)
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func insertEmployee(ctx context.Context, db execer, e types.Employee) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO employees (employee_id, first_name, last_name, email,
		                       department, position, hire_date, salary, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.EmployeeID, e.FirstName, e.LastName, e.Email,
		e.Department, e.Position, e.HireDate, e.Salary, e.Status)
	if err != nil {
		return fmt.Errorf("failed to insert employee %s: %w", e.EmployeeID, err)
	}
	return nil
}

func insertTransfer(ctx context.Context, db execer, t types.Transfer) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO transfers (employee_id, from_department, to_department, transfer_date, reason)
		VALUES (?, ?, ?, ?, ?)`,
		t.EmployeeID, t.FromDepartment, t.ToDepartment, t.TransferDate, t.Reason)
	if err != nil {
		return fmt.Errorf("failed to insert transfer for %s: %w", t.EmployeeID, err)
	}
	return nil
}

func insertFeedback(ctx context.Context, db execer, f types.Feedback) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO feedback (employee_id, feedback_date, feedback_type, rating, comments, reviewer)
		VALUES (?, ?, ?, ?, ?, ?)`,
		f.EmployeeID, f.FeedbackDate, f.FeedbackType, f.Rating, f.Comments, f.Reviewer)
	if err != nil {
		return fmt.Errorf("failed to insert feedback for %s: %w", f.EmployeeID, err)
	}
	return nil
}

// ReplaceAll atomically replaces the entire store contents. Used by the CSV
// importer: either everything lands or nothing changes.
func (s *Store) ReplaceAll(ctx context.Context, employees []types.Employee, transfers []types.Transfer, feedback []types.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	timer := logging.StartTimer(logging.CategoryStore, "ReplaceAll")
	defer timer.StopWithInfo()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"feedback", "transfers", "employees"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for _, e := range employees {
		if err := insertEmployee(ctx, tx, e); err != nil {
			return err
		}
	}
	for _, t := range transfers {
		if err := insertTransfer(ctx, tx, t); err != nil {
			return err
		}
	}
	for _, f := range feedback {
		if err := insertFeedback(ctx, tx, f); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit replace: %w", err)
	}

	logging.Store("Replaced store contents: %d employees, %d transfers, %d feedback",
		len(employees), len(transfers), len(feedback))
	return nil
}

// Stats returns database statistics keyed by table, for status output.
func (s *Store) Stats(ctx context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]int, 3)
	for _, table := range []string{"employees", "transfers", "feedback"} {
		var n int
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		stats[table] = n
	}
	return stats, nil
}
