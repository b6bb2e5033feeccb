// Package types provides shared type definitions used across peopleops packages.
// This package exists to break import cycles between store, server, and assist.
// Types in this package should be foundational data structures with no complex dependencies.
package types

import (
	"fmt"
	"time"
)

// =============================================================================
// HR RECORDS
// =============================================================================

// Employee statuses stored in the employees table.
const (
	StatusActive  = "Active"
	StatusOnLeave = "On Leave"
)

// Employee is a single employee record. Dates are stored as ISO
// "2006-01-02" strings to match the TEXT columns they round-trip through.
type Employee struct {
	ID         int64   `json:"id"`
	EmployeeID string  `json:"employee_id"` // e.g. "EMP0042" or "INV003"
	FirstName  string  `json:"first_name"`
	LastName   string  `json:"last_name"`
	Email      string  `json:"email"`
	Department string  `json:"department"`
	Position   string  `json:"position"`
	HireDate   string  `json:"hire_date"`
	Salary     float64 `json:"salary"`
	Status     string  `json:"status"`
}

// FullName returns "First Last" for display.
func (e Employee) FullName() string {
	return fmt.Sprintf("%s %s", e.FirstName, e.LastName)
}

// Transfer records an employee moving between departments.
type Transfer struct {
	ID             int64  `json:"id"`
	EmployeeID     string `json:"employee_id"`
	EmployeeName   string `json:"employee_name,omitempty"` // joined for display
	FromDepartment string `json:"from_department"`
	ToDepartment   string `json:"to_department"`
	TransferDate   string `json:"transfer_date"`
	Reason         string `json:"reason"`
}

// Feedback is a single review/feedback entry with a 1-5 rating.
type Feedback struct {
	ID           int64  `json:"id"`
	EmployeeID   string `json:"employee_id"`
	FeedbackDate string `json:"feedback_date"`
	FeedbackType string `json:"feedback_type"`
	Rating       int    `json:"rating"`
	Comments     string `json:"comments"`
	Reviewer     string `json:"reviewer"`
}

// =============================================================================
// AGGREGATES
// =============================================================================

// DepartmentStat summarizes one department over its active employees.
type DepartmentStat struct {
	Department string  `json:"department"`
	Headcount  int     `json:"headcount"`
	AvgSalary  float64 `json:"avg_salary"`
	MinSalary  float64 `json:"min_salary"`
	MaxSalary  float64 `json:"max_salary"`
}

// FeedbackSummary aggregates the feedback table for the dashboard tiles.
type FeedbackSummary struct {
	Total     int            `json:"total"`
	AvgRating float64        `json:"avg_rating"` // rounded to 1 decimal
	Positive  int            `json:"positive"`   // rating >= 4
	ByType    map[string]int `json:"by_type"`
}

// =============================================================================
// DOCUMENTS
// =============================================================================

// Chunk is a sentence-aligned slice of an uploaded document, the unit
// of retrieval for the assistant.
type Chunk struct {
	ID       string `json:"id"`
	Document string `json:"document"`
	Index    int    `json:"index"`
	Text     string `json:"text"`
	Words    int    `json:"words"`
}

// DocumentInfo describes one indexed document.
type DocumentInfo struct {
	Name    string    `json:"name"`
	Hash    string    `json:"hash"` // md5 of file content, used for dedupe
	Chunks  int       `json:"chunks"`
	AddedAt time.Time `json:"added_at"`
}

// =============================================================================
// ASSISTANT
// =============================================================================

// Answer is the assistant's response to a question.
type Answer struct {
	Question      string        `json:"question"`
	Text          string        `json:"text"`
	Sources       []string      `json:"sources,omitempty"` // document names
	FromDocuments bool          `json:"from_documents"`
	Generated     bool          `json:"generated"` // false when the model was skipped
	Duration      time.Duration `json:"-"`
	DurationMS    int64         `json:"duration_ms"`
}
