package retrieval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peopleops/internal/types"
)

// chunkSlice adapts a plain slice to the Retriever's chunk source.
type chunkSlice []types.Chunk

func (c chunkSlice) Chunks() []types.Chunk { return c }

func chunk(doc, text string) types.Chunk {
	return types.Chunk{ID: doc + "-" + text[:3], Document: doc, Text: text, Words: len(text) / 5}
}

func TestTokenize(t *testing.T) {
	assert.Equal(t,
		[]string{"pto", "policy", "2024", "days"},
		Tokenize("PTO policy (2024): days!"))
	assert.Empty(t, Tokenize("a I ."), "single-char tokens dropped")
}

func TestParseQuery_StopwordsAndSynonyms(t *testing.T) {
	q := parseQuery("What is the vacation policy?")

	assert.True(t, q.original["vacation"])
	assert.True(t, q.original["policy"])
	assert.False(t, q.original["what"], "stopword filtered")
	assert.False(t, q.original["the"], "stopword filtered")

	// Synonym expansion carries lower weight than original terms.
	assert.Equal(t, originalTermWeight, q.weights["vacation"])
	assert.Equal(t, synonymTermWeight, q.weights["pto"])
	assert.Equal(t, synonymTermWeight, q.weights["holidays"])
}

func TestParseQuery_MoneyDetection(t *testing.T) {
	assert.True(t, parseQuery("what is the salary range").money)
	assert.True(t, parseQuery("how much do we pay interns").money)
	assert.False(t, parseQuery("how do I request parental leave").money)
}

func TestTopK_RanksRelevantChunksFirst(t *testing.T) {
	r := New(chunkSlice{
		chunk("handbook.md", "Employees accrue vacation time monthly. The vacation policy grants 20 PTO days per year."),
		chunk("handbook.md", "The office kitchen is cleaned every Friday afternoon by the facilities team."),
		chunk("benefits.txt", "Paid leave includes vacation, sick days, and parental leave options."),
	})

	hits := r.TopK("What is the vacation policy?", 2)
	require.Len(t, hits, 2)

	assert.Contains(t, hits[0].Chunk.Text, "vacation policy")
	assert.Greater(t, hits[0].Score, hits[1].Score)

	// The kitchen chunk scores zero and never appears.
	for _, h := range hits {
		assert.NotContains(t, h.Chunk.Text, "kitchen")
	}
}

func TestTopK_SynonymRecall(t *testing.T) {
	r := New(chunkSlice{
		chunk("policy.md", "Staff may take up to 25 days of PTO annually after one year of service."),
	})

	// "vacation" never appears in the chunk; the synonym table finds it.
	hits := r.TopK("vacation allowance", 5)
	require.Len(t, hits, 1)
	assert.Equal(t, "policy.md", hits[0].Chunk.Document)
}

func TestTopK_DollarBonus(t *testing.T) {
	r := New(chunkSlice{
		chunk("comp.md", "Analyst salary band: $55,000 - $80,000 depending on experience."),
		chunk("comp.md", "Salary reviews happen annually during performance cycles and salary conversations."),
	})

	hits := r.TopK("analyst salary", 2)
	require.Len(t, hits, 2)
	assert.Contains(t, hits[0].Chunk.Text, "$55,000",
		"chunk with actual figures should outrank salary talk")
}

func TestTopK_ZeroMatches(t *testing.T) {
	r := New(chunkSlice{
		chunk("handbook.md", "Expense reports are due by the fifth business day."),
	})
	assert.Empty(t, r.TopK("quantum chromodynamics", 5))
}

func TestTopK_CacheInvalidation(t *testing.T) {
	source := chunkSlice{
		chunk("a.md", "Remote work is allowed on Tuesdays and Thursdays."),
	}
	r := New(source)

	first := r.TopK("remote work", 5)
	require.Len(t, first, 1)

	// Cached result is returned even though scoring would now differ.
	again := r.TopK("remote work", 5)
	assert.Equal(t, first, again)

	r.Invalidate()
	assert.Len(t, r.TopK("remote work", 5), 1)
}

func TestResultCache_TTL(t *testing.T) {
	c := newResultCache(4, 10*time.Millisecond)
	c.put("k", []Hit{{Score: 1}})

	_, ok := c.get("k")
	assert.True(t, ok)

	time.Sleep(20 * time.Millisecond)
	_, ok = c.get("k")
	assert.False(t, ok, "entry should expire")
}

func TestBuildContext(t *testing.T) {
	hits := []Hit{
		{Chunk: types.Chunk{Document: "a.md", Text: "First chunk."}, Score: 3},
		{Chunk: types.Chunk{Document: "b.md", Text: "Second chunk."}, Score: 2},
		{Chunk: types.Chunk{Document: "a.md", Text: "Third chunk."}, Score: 1},
	}

	ctx, sources := BuildContext(hits, ContextLimits{MaxChunks: 3, MaxChars: 8000})
	assert.Contains(t, ctx, "[Source: a.md]")
	assert.Contains(t, ctx, "[Source: b.md]")
	assert.Contains(t, ctx, "First chunk.")
	assert.Equal(t, []string{"a.md", "b.md"}, sources, "sources deduped in hit order")

	// MaxChunks truncates.
	ctx, _ = BuildContext(hits, ContextLimits{MaxChunks: 1, MaxChars: 8000})
	assert.NotContains(t, ctx, "Second chunk.")

	// MaxChars truncates but never drops the first chunk.
	ctx, _ = BuildContext(hits, ContextLimits{MaxChunks: 3, MaxChars: 30})
	assert.Contains(t, ctx, "First chunk.")
	assert.NotContains(t, ctx, "Second chunk.")
}
