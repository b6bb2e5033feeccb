package assist

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peopleops/internal/retrieval"
	"peopleops/internal/types"
	"peopleops/internal/usage"
)

// fakeGenerator records prompts and returns canned text.
type fakeGenerator struct {
	prompts []string
	reply   string
	err     error
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type chunkSlice []types.Chunk

func (c chunkSlice) Chunks() []types.Chunk { return c }

func testRetriever() *retrieval.Retriever {
	return retrieval.New(chunkSlice{
		{ID: "1", Document: "handbook.md", Text: "The vacation policy grants 20 PTO days per year.", Words: 9},
		{ID: "2", Document: "benefits.txt", Text: "Health insurance covers dental and vision.", Words: 7},
	})
}

func newTestTracker(t *testing.T) *usage.Tracker {
	t.Helper()
	tr, err := usage.NewTracker(t.TempDir())
	require.NoError(t, err)
	return tr
}

func TestAnswer_GeneratesFromContext(t *testing.T) {
	gen := &fakeGenerator{reply: "Employees get 20 PTO days per year."}
	tracker := newTestTracker(t)
	a := NewWithGenerator(gen, testRetriever(), tracker, retrieval.ContextLimits{MaxChunks: 5, MaxChars: 8000})

	ans, err := a.Answer(context.Background(), "What is the vacation policy?")
	require.NoError(t, err)

	assert.Equal(t, "Employees get 20 PTO days per year.", ans.Text)
	assert.True(t, ans.Generated)
	assert.True(t, ans.FromDocuments)
	assert.Equal(t, []string{"handbook.md"}, ans.Sources)
	assert.GreaterOrEqual(t, ans.DurationMS, int64(0))

	// Prompt carries the retrieved excerpt and the question.
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "20 PTO days")
	assert.Contains(t, gen.prompts[0], "What is the vacation policy?")
	assert.Contains(t, gen.prompts[0], "[Source: handbook.md]")

	assert.Equal(t, 1, tracker.Stats().TotalQueries, "answered query recorded")
}

func TestAnswer_NoMatchesSkipsModel(t *testing.T) {
	gen := &fakeGenerator{reply: "should not be called"}
	a := NewWithGenerator(gen, testRetriever(), newTestTracker(t), retrieval.ContextLimits{})

	ans, err := a.Answer(context.Background(), "quarterly revenue projections")
	require.NoError(t, err)

	assert.Empty(t, gen.prompts, "no API call without retrieval hits")
	assert.False(t, ans.Generated)
	assert.False(t, ans.FromDocuments)
	assert.Contains(t, ans.Text, "couldn't find anything")
}

func TestAnswer_DisabledModeReturnsExcerpts(t *testing.T) {
	a := NewWithGenerator(nil, testRetriever(), newTestTracker(t), retrieval.ContextLimits{MaxChunks: 3, MaxChars: 8000})
	assert.False(t, a.Enabled())

	ans, err := a.Answer(context.Background(), "vacation policy")
	require.NoError(t, err)

	assert.False(t, ans.Generated)
	assert.True(t, ans.FromDocuments)
	assert.True(t, strings.HasPrefix(ans.Text, disabledNotice))
	assert.Contains(t, ans.Text, "20 PTO days")
	assert.Equal(t, []string{"handbook.md"}, ans.Sources)
}

func TestAnswer_GeneratorErrorPropagates(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("quota exceeded")}
	tracker := newTestTracker(t)
	a := NewWithGenerator(gen, testRetriever(), tracker, retrieval.ContextLimits{})

	_, err := a.Answer(context.Background(), "vacation policy")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Equal(t, 0, tracker.Stats().TotalQueries, "failed query not recorded")
}

func TestAnswer_EmptyQuestion(t *testing.T) {
	a := NewWithGenerator(nil, testRetriever(), nil, retrieval.ContextLimits{})
	_, err := a.Answer(context.Background(), "   ")
	assert.Error(t, err)
}

func TestNew_NoKeyIsDisabledNotError(t *testing.T) {
	a, err := New(context.Background(), Config{}, testRetriever(), nil)
	require.NoError(t, err)
	assert.False(t, a.Enabled())
}

func TestSampleQuestions(t *testing.T) {
	qs := SampleQuestions()
	assert.NotEmpty(t, qs)
	for _, q := range qs {
		assert.NotEmpty(t, q)
	}
}
