package assist

import (
	"context"
	"fmt"
	"strings"
	"time"

	"peopleops/internal/logging"
	"peopleops/internal/retrieval"
	"peopleops/internal/types"
	"peopleops/internal/usage"
)

// noDataAnswer is returned when retrieval finds nothing relevant.
const noDataAnswer = "I couldn't find anything about that in the uploaded documents. " +
	"Try uploading the relevant policy document, or rephrase the question."

// disabledNotice prefixes degraded answers when no API key is configured.
const disabledNotice = "The AI assistant is not configured (no API key), " +
	"so here are the most relevant document excerpts instead:"

// Config holds assistant construction parameters.
type Config struct {
	APIKey     string
	Model      string
	MaxRetries int
	Timeout    time.Duration
	Limits     retrieval.ContextLimits
}

// Assistant answers questions about uploaded documents. With no credential
// it degrades to returning raw excerpts rather than failing.
type Assistant struct {
	gen       Generator // nil when disabled
	retriever *retrieval.Retriever
	tracker   *usage.Tracker
	limits    retrieval.ContextLimits
}

// New builds an assistant. An empty APIKey yields a disabled (but usable)
// assistant; any other client construction error is returned.
func New(ctx context.Context, cfg Config, retriever *retrieval.Retriever, tracker *usage.Tracker) (*Assistant, error) {
	a := &Assistant{
		retriever: retriever,
		tracker:   tracker,
		limits:    cfg.Limits,
	}

	if cfg.APIKey == "" {
		logging.Assist("Assistant starting in degraded mode: no API credential")
		return a, nil
	}

	gen, err := newGeminiClient(ctx, cfg.APIKey, cfg.Model, cfg.MaxRetries, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	a.gen = gen
	logging.Assist("Assistant ready (model %s)", cfg.Model)
	return a, nil
}

// NewWithGenerator wires an explicit generator; used by tests.
func NewWithGenerator(gen Generator, retriever *retrieval.Retriever, tracker *usage.Tracker, limits retrieval.ContextLimits) *Assistant {
	return &Assistant{gen: gen, retriever: retriever, tracker: tracker, limits: limits}
}

// Enabled reports whether the model-backed path is available.
func (a *Assistant) Enabled() bool {
	return a.gen != nil
}

// Answer responds to a question about the uploaded documents.
//
// Flow: retrieve top chunks; with no matches return the no-data answer
// without touching the API; otherwise build the prompt and generate. When
// disabled, the top excerpts are returned directly with a notice.
func (a *Assistant) Answer(ctx context.Context, question string) (*types.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("question is empty")
	}

	start := time.Now()
	k := a.limits.MaxChunks
	if k <= 0 {
		k = 5
	}

	hits := a.retriever.TopK(question, k)
	if len(hits) == 0 {
		logging.Assist("No document matches for %q", question)
		return a.finish(&types.Answer{
			Question: question,
			Text:     noDataAnswer,
		}, start), nil
	}

	contextBlock, sources := retrieval.BuildContext(hits, a.limits)

	if a.gen == nil {
		var b strings.Builder
		b.WriteString(disabledNotice)
		b.WriteString("\n\n")
		b.WriteString(contextBlock)
		return a.finish(&types.Answer{
			Question:      question,
			Text:          b.String(),
			Sources:       sources,
			FromDocuments: true,
		}, start), nil
	}

	text, err := a.gen.Generate(ctx, buildPrompt(contextBlock, question))
	if err != nil {
		return nil, fmt.Errorf("failed to answer question: %w", err)
	}

	return a.finish(&types.Answer{
		Question:      question,
		Text:          text,
		Sources:       sources,
		FromDocuments: true,
		Generated:     true,
	}, start), nil
}

// finish stamps timing and records the query.
func (a *Assistant) finish(ans *types.Answer, start time.Time) *types.Answer {
	ans.Duration = time.Since(start)
	ans.DurationMS = ans.Duration.Milliseconds()
	if a.tracker != nil {
		a.tracker.RecordQuery()
	}
	return ans
}

// buildPrompt assembles the grounded-answer prompt.
func buildPrompt(contextBlock, question string) string {
	return fmt.Sprintf(`You are an HR assistant. Answer the question using ONLY the document excerpts below.

DOCUMENT EXCERPTS:
%s

RULES:
1. Answer only from the excerpts above. Do not use outside knowledge.
2. If the excerpts do not contain enough information to answer, say so plainly.
3. Quote specific figures, dates, and policy names when present.
4. Keep the answer concise and direct.

QUESTION: %s

ANSWER:`, contextBlock, question)
}

// SampleQuestions returns suggested questions for the dashboard UI.
func SampleQuestions() []string {
	return []string{
		"What is the vacation policy?",
		"How many PTO days do employees get?",
		"What does the health insurance cover?",
		"What is the remote work policy?",
		"How does parental leave work?",
		"What are the requirements for the analyst role?",
		"What is the salary range for senior positions?",
		"How do I submit an expense report?",
		"What is the performance review process?",
		"Who do I contact about benefits enrollment?",
	}
}
