package store

import (
	"context"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"peopleops/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "hr.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testEmployee(id, first, last, dept string, salary float64, status string) types.Employee {
	return types.Employee{
		EmployeeID: id,
		FirstName:  first,
		LastName:   last,
		Email:      id + "@company.com",
		Department: dept,
		Position:   "Analyst",
		HireDate:   "2022-03-15",
		Salary:     salary,
		Status:     status,
	}
}

func TestNew_CreatesSchema(t *testing.T) {
	s := newTestStore(t)

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats["employees"])
	assert.Equal(t, 0, stats["transfers"])
	assert.Equal(t, 0, stats["feedback"])
}

func TestAllEmployees_Ordering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertEmployee(ctx, testEmployee("EMP0001", "Ann", "Zimmer", "Sales", 60000, types.StatusActive)))
	require.NoError(t, s.InsertEmployee(ctx, testEmployee("EMP0002", "Bob", "Adams", "Sales", 55000, types.StatusActive)))
	require.NoError(t, s.InsertEmployee(ctx, testEmployee("EMP0003", "Cat", "Young", "Engineering", 90000, types.StatusActive)))

	emps, err := s.AllEmployees(ctx)
	require.NoError(t, err)
	require.Len(t, emps, 3)

	// Ordered by department, then last name.
	assert.Equal(t, "EMP0003", emps[0].EmployeeID)
	assert.Equal(t, "EMP0002", emps[1].EmployeeID)
	assert.Equal(t, "EMP0001", emps[2].EmployeeID)
}

func TestInsertEmployee_UniqueConstraints(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	e := testEmployee("EMP0001", "Ann", "Zimmer", "Sales", 60000, types.StatusActive)
	require.NoError(t, s.InsertEmployee(ctx, e))

	// Duplicate employee_id rejected.
	dup := e
	dup.Email = "other@company.com"
	assert.Error(t, s.InsertEmployee(ctx, dup))

	// Duplicate email rejected.
	dup2 := testEmployee("EMP0002", "Bob", "Adams", "Sales", 55000, types.StatusActive)
	dup2.Email = e.Email
	assert.Error(t, s.InsertEmployee(ctx, dup2))
}

func TestInsertFeedback_RatingBounds(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertEmployee(ctx, testEmployee("EMP0001", "Ann", "Zimmer", "Sales", 60000, types.StatusActive)))

	base := types.Feedback{
		EmployeeID:   "EMP0001",
		FeedbackDate: "2024-06-01",
		FeedbackType: "Peer Feedback",
		Comments:     "solid quarter",
		Reviewer:     "Bob Adams",
	}

	for _, rating := range []int{0, 6, -1} {
		f := base
		f.Rating = rating
		assert.Error(t, s.InsertFeedback(ctx, f), "rating %d should violate CHECK", rating)
	}

	ok := base
	ok.Rating = 5
	assert.NoError(t, s.InsertFeedback(ctx, ok))
}

func TestDepartmentStats_ActiveOnly(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertEmployee(ctx, testEmployee("EMP0001", "Ann", "Zimmer", "Sales", 60000, types.StatusActive)))
	require.NoError(t, s.InsertEmployee(ctx, testEmployee("EMP0002", "Bob", "Adams", "Sales", 80000, types.StatusActive)))
	require.NoError(t, s.InsertEmployee(ctx, testEmployee("EMP0003", "Cat", "Young", "Sales", 200000, types.StatusOnLeave)))
	require.NoError(t, s.InsertEmployee(ctx, testEmployee("EMP0004", "Dan", "Ursa", "Engineering", 100000, types.StatusActive)))

	stats, err := s.DepartmentStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	// Largest department first; On Leave excluded from aggregates.
	assert.Equal(t, "Sales", stats[0].Department)
	assert.Equal(t, 2, stats[0].Headcount)
	assert.Equal(t, 70000.0, stats[0].AvgSalary)
	assert.Equal(t, 60000.0, stats[0].MinSalary)
	assert.Equal(t, 80000.0, stats[0].MaxSalary)

	assert.Equal(t, "Engineering", stats[1].Department)
	assert.Equal(t, 1, stats[1].Headcount)
}

func TestRecentTransfers_JoinAndLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertEmployee(ctx, testEmployee("EMP0001", "Ann", "Zimmer", "Sales", 60000, types.StatusActive)))

	dates := []string{"2024-01-10", "2024-05-20", "2023-11-02"}
	for _, d := range dates {
		require.NoError(t, s.InsertTransfer(ctx, types.Transfer{
			EmployeeID:     "EMP0001",
			FromDepartment: "Sales",
			ToDepartment:   "Marketing",
			TransferDate:   d,
			Reason:         "Employee request",
		}))
	}

	transfers, err := s.RecentTransfers(ctx, 2)
	require.NoError(t, err)
	require.Len(t, transfers, 2)

	assert.Equal(t, "2024-05-20", transfers[0].TransferDate, "newest first")
	assert.Equal(t, "Ann Zimmer", transfers[0].EmployeeName)
}

func TestFeedbackSummary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertEmployee(ctx, testEmployee("EMP0001", "Ann", "Zimmer", "Sales", 60000, types.StatusActive)))

	entries := []struct {
		rating int
		typ    string
	}{
		{5, "Peer Feedback"},
		{4, "Peer Feedback"},
		{2, "Manager Feedback"},
	}
	for _, e := range entries {
		require.NoError(t, s.InsertFeedback(ctx, types.Feedback{
			EmployeeID:   "EMP0001",
			FeedbackDate: "2024-06-01",
			FeedbackType: e.typ,
			Rating:       e.rating,
			Reviewer:     "Bob Adams",
		}))
	}

	sum, err := s.FeedbackSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Total)
	assert.Equal(t, 3.7, sum.AvgRating, "rounded to 1 decimal")
	assert.Equal(t, 2, sum.Positive)
	assert.Equal(t, map[string]int{"Peer Feedback": 2, "Manager Feedback": 1}, sum.ByType)
}

func TestFeedbackSummary_Empty(t *testing.T) {
	s := newTestStore(t)

	sum, err := s.FeedbackSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Total)
	assert.Equal(t, 0.0, sum.AvgRating)
}

func TestReplaceAll_Atomic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertEmployee(ctx, testEmployee("EMP0001", "Ann", "Zimmer", "Sales", 60000, types.StatusActive)))

	// Second employee reuses the first's email, so the replace must fail
	// and leave the original row intact.
	bad := []types.Employee{
		testEmployee("EMP0010", "New", "Person", "Legal", 70000, types.StatusActive),
		func() types.Employee {
			e := testEmployee("EMP0011", "Also", "New", "Legal", 70000, types.StatusActive)
			e.Email = "EMP0010@company.com"
			return e
		}(),
	}
	err := s.ReplaceAll(ctx, bad, nil, nil)
	require.Error(t, err)

	emps, err := s.AllEmployees(ctx)
	require.NoError(t, err)
	require.Len(t, emps, 1)
	assert.Equal(t, "EMP0001", emps[0].EmployeeID)

	// A valid replace swaps the contents.
	good := []types.Employee{testEmployee("EMP0020", "Fresh", "Import", "Finance", 85000, types.StatusActive)}
	require.NoError(t, s.ReplaceAll(ctx, good, nil, nil))

	emps, err = s.AllEmployees(ctx)
	require.NoError(t, err)
	require.Len(t, emps, 1)
	assert.Equal(t, "EMP0020", emps[0].EmployeeID)
}

func TestSeed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n, err := s.Seed(ctx)
	require.NoError(t, err)
	assert.Equal(t, seedEmployeeCount, n)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, seedEmployeeCount, stats["employees"])
	assert.Equal(t, seedTransferCount, stats["transfers"])
	assert.Equal(t, seedFeedbackCount, stats["feedback"])

	// Re-running against a populated store is a no-op.
	n, err = s.Seed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	stats, err = s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, seedEmployeeCount, stats["employees"])
}

func TestGenerateSampleData_Deterministic(t *testing.T) {
	a1, t1, f1 := generateSampleData(rand.New(rand.NewSource(7)))
	a2, t2, f2 := generateSampleData(rand.New(rand.NewSource(7)))

	if diff := cmp.Diff(a1, a2); diff != "" {
		t.Errorf("employees differ across identical seeds (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(t1, t2); diff != "" {
		t.Errorf("transfers differ across identical seeds (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(f1, f2); diff != "" {
		t.Errorf("feedback differs across identical seeds (-first +second):\n%s", diff)
	}

	// All ratings within the CHECK bounds.
	for _, f := range f1 {
		assert.GreaterOrEqual(t, f.Rating, 1)
		assert.LessOrEqual(t, f.Rating, 5)
	}
}
