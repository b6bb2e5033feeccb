package store

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"peopleops/internal/logging"
	"peopleops/internal/types"
)

// Sample data pools for seeding. The generator is deterministic for a given
// rand source so tests can assert on counts without flaking.
var (
	seedDepartments = []string{
		"Engineering", "Sales", "Marketing", "HR",
		"Finance", "Operations", "Legal", "Product",
	}

	seedPositions = map[string][]string{
		"Engineering": {"Software Engineer", "Senior Engineer", "Engineering Manager", "QA Engineer"},
		"Sales":       {"Sales Representative", "Account Executive", "Sales Manager", "Sales Director"},
		"Marketing":   {"Marketing Specialist", "Content Manager", "Marketing Director", "Brand Manager"},
		"HR":          {"HR Coordinator", "Recruiter", "HR Manager", "People Operations Lead"},
		"Finance":     {"Financial Analyst", "Accountant", "Finance Manager", "Controller"},
		"Operations":  {"Operations Coordinator", "Operations Manager", "Logistics Specialist"},
		"Legal":       {"Legal Counsel", "Paralegal", "Compliance Officer"},
		"Product":     {"Product Manager", "Product Designer", "Product Analyst"},
	}

	seedFirstNames = []string{
		"John", "Jane", "Michael", "Emily", "David", "Sarah", "Robert", "Lisa",
		"James", "Maria", "William", "Jennifer", "Richard", "Linda", "Thomas", "Patricia",
	}

	seedLastNames = []string{
		"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller",
		"Davis", "Rodriguez", "Martinez", "Hernandez", "Lopez", "Wilson", "Anderson",
	}

	seedTransferReasons = []string{
		"Career development", "Team restructuring", "Employee request",
		"Business needs", "Promotion", "Skills alignment",
	}

	seedFeedbackTypes = []string{
		"Performance Review", "Peer Feedback", "Manager Feedback", "Self Assessment",
	}

	seedComments = []string{
		"Consistently exceeds expectations and delivers high quality work.",
		"Great team player, always willing to help colleagues.",
		"Strong technical skills, could improve on communication.",
		"Meets expectations, reliable and punctual.",
		"Shows initiative and takes ownership of projects.",
		"Needs improvement in meeting deadlines.",
		"Excellent problem solving abilities.",
		"Good progress this quarter, keep it up.",
	}
)

// Seed counts matching the original sample dataset.
const (
	seedEmployeeCount = 50
	seedTransferCount = 15
	seedFeedbackCount = 100
)

// Seed populates the store with sample data when the employees table is
// empty. Re-running on a populated store is a no-op, so bootstrap can call
// it unconditionally.
func (s *Store) Seed(ctx context.Context) (int, error) {
	n, err := s.Headcount(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logging.StoreDebug("Seed skipped: %d employees already present", n)
		return 0, nil
	}

	rng := rand.New(rand.NewSource(42))
	employees, transfers, feedback := generateSampleData(rng)

	if err := s.ReplaceAll(ctx, employees, transfers, feedback); err != nil {
		return 0, fmt.Errorf("failed to seed sample data: %w", err)
	}
	logging.Store("Seeded %d employees, %d transfers, %d feedback entries",
		len(employees), len(transfers), len(feedback))
	return len(employees), nil
}

// generateSampleData builds the seed dataset from a rand source.
func generateSampleData(rng *rand.Rand) ([]types.Employee, []types.Transfer, []types.Feedback) {
	base := time.Now().AddDate(-3, 0, 0)

	employees := make([]types.Employee, 0, seedEmployeeCount)
	usedEmails := make(map[string]bool, seedEmployeeCount)
	for i := 0; i < seedEmployeeCount; i++ {
		first := seedFirstNames[rng.Intn(len(seedFirstNames))]
		last := seedLastNames[rng.Intn(len(seedLastNames))]
		dept := seedDepartments[rng.Intn(len(seedDepartments))]
		pos := seedPositions[dept][rng.Intn(len(seedPositions[dept]))]

		empID := fmt.Sprintf("EMP%04d", i+1)
		email := fmt.Sprintf("%s.%s@company.com", lower(first), lower(last))
		// Email column is UNIQUE; disambiguate repeats with the numeric id.
		if usedEmails[email] {
			email = fmt.Sprintf("%s.%s%d@company.com", lower(first), lower(last), i+1)
		}
		usedEmails[email] = true

		status := types.StatusActive
		if rng.Float64() < 0.1 {
			status = types.StatusOnLeave
		}

		employees = append(employees, types.Employee{
			EmployeeID: empID,
			FirstName:  first,
			LastName:   last,
			Email:      email,
			Department: dept,
			Position:   pos,
			HireDate:   base.AddDate(0, 0, rng.Intn(1095)).Format("2006-01-02"),
			Salary:     float64(50000 + rng.Intn(100001)),
			Status:     status,
		})
	}

	transfers := make([]types.Transfer, 0, seedTransferCount)
	for i := 0; i < seedTransferCount; i++ {
		from := seedDepartments[rng.Intn(len(seedDepartments))]
		to := from
		for to == from {
			to = seedDepartments[rng.Intn(len(seedDepartments))]
		}
		transfers = append(transfers, types.Transfer{
			EmployeeID:     fmt.Sprintf("EMP%04d", rng.Intn(seedEmployeeCount)+1),
			FromDepartment: from,
			ToDepartment:   to,
			TransferDate:   time.Now().AddDate(0, 0, -(30 + rng.Intn(700))).Format("2006-01-02"),
			Reason:         seedTransferReasons[rng.Intn(len(seedTransferReasons))],
		})
	}

	feedback := make([]types.Feedback, 0, seedFeedbackCount)
	for i := 0; i < seedFeedbackCount; i++ {
		// Ratings skew positive, matching the original sample distribution.
		rating := 3 + rng.Intn(3)
		if rng.Float64() < 0.1 {
			rating = 1 + rng.Intn(2)
		}
		feedback = append(feedback, types.Feedback{
			EmployeeID:   fmt.Sprintf("EMP%04d", rng.Intn(seedEmployeeCount)+1),
			FeedbackDate: time.Now().AddDate(0, 0, -(1 + rng.Intn(365))).Format("2006-01-02"),
			FeedbackType: seedFeedbackTypes[rng.Intn(len(seedFeedbackTypes))],
			Rating:       rating,
			Comments:     seedComments[rng.Intn(len(seedComments))],
			Reviewer: fmt.Sprintf("%s %s",
				seedFirstNames[rng.Intn(len(seedFirstNames))],
				seedLastNames[rng.Intn(len(seedLastNames))]),
		})
	}

	return employees, transfers, feedback
}

func lower(s string) string {
	b := []byte(s)
	for i := range b {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}
