// Package retrieval scores document chunks against a question using
// keyword matching with HR-domain synonym expansion. Scoring is pure
// in-memory computation; there is no vector index.
package retrieval

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"peopleops/internal/logging"
	"peopleops/internal/types"
)

// Term weights. Original query terms count for much more than terms pulled
// in by synonym expansion.
const (
	originalTermWeight = 3.0
	synonymTermWeight  = 1.0
	dollarAmountBonus  = 10.0
	phraseMultiplier   = 3.0
	proximityMultiplier = 1.5
	proximityWindow    = 50 // chars
)

// hrSynonyms expands HR vocabulary so "pto" finds "vacation" paragraphs.
var hrSynonyms = map[string][]string{
	"compensation":     {"salary", "pay", "wage", "wages", "earnings", "income", "remuneration"},
	"salary":           {"compensation", "pay", "wage", "wages", "earnings", "income", "annual"},
	"pay":              {"salary", "compensation", "wage", "wages", "earnings", "income"},
	"benefits":         {"insurance", "health", "dental", "vision", "401k", "retirement", "pto", "vacation", "perks"},
	"vacation":         {"pto", "leave", "holiday", "holidays"},
	"leave":            {"pto", "vacation", "absence", "sick", "parental", "maternity", "paternity"},
	"requirements":     {"qualifications", "required", "experience", "skills", "education", "degree"},
	"qualifications":   {"requirements", "required", "experience", "skills", "credentials"},
	"responsibilities": {"duties", "tasks", "role", "accountabilities"},
	"duties":           {"responsibilities", "tasks", "accountabilities"},
	"experience":       {"years", "background", "expertise", "history"},
	"skills":           {"abilities", "competencies", "proficiency", "expertise"},
	"policy":           {"policies", "procedure", "procedures", "guidelines", "rules", "handbook"},
	"employee":         {"staff", "worker", "personnel", "hire"},
	"manager":          {"supervisor", "lead", "director", "head"},
	"intern":           {"internship", "trainee", "apprentice", "junior"},
	"job":              {"position", "role", "opening", "employment"},
	"location":         {"office", "remote", "hybrid", "onsite", "wfh", "city", "address"},
	"hr":               {"human", "resources", "people", "talent", "personnel"},
}

// stopwords are filtered from queries before matching.
var stopwords = map[string]bool{}

func init() {
	for _, w := range strings.Fields(`a an the is are was were be been being
		have has had do does did will would could should may might must shall
		can need to of in for on with at by from up about into through during
		before after above below between under again further then once here
		there when where why how all each few more most other some such no nor
		not only own same so than too very just now i me my we our you your he
		him his she her it its they them their what which who whom this that
		these those am and but if or because as until while find tell please
		help get give show list`) {
		stopwords[w] = true
	}
}

var (
	tokenPattern  = regexp.MustCompile(`[a-z0-9]{2,}`)
	dollarPattern = regexp.MustCompile(`\$[\d,]+(?:\.\d{2})?|\d{2,3},\d{3}|\d+k\s*[-–]\s*\d+k`)
)

// Tokenize lowercases text and returns alphanumeric runs of 2+ chars.
func Tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// queryTerms holds the processed question: original terms and the weighted
// expansion set.
type queryTerms struct {
	original map[string]bool
	weights  map[string]float64 // term -> weight (original or synonym)
	phrase   string             // normalized full question
	money    bool               // question asks about compensation
}

// parseQuery tokenizes the question, drops stopwords, and expands synonyms.
func parseQuery(question string) queryTerms {
	q := queryTerms{
		original: make(map[string]bool),
		weights:  make(map[string]float64),
		phrase:   strings.TrimSpace(strings.ToLower(question)),
	}

	for _, tok := range Tokenize(question) {
		if stopwords[tok] {
			continue
		}
		q.original[tok] = true
		q.weights[tok] = originalTermWeight
	}

	for term := range q.original {
		for _, syn := range hrSynonyms[term] {
			if _, exists := q.weights[syn]; !exists {
				q.weights[syn] = synonymTermWeight
			}
		}
		// Reverse mapping: a query term that appears as someone's synonym
		// pulls in that head term too.
		for head, syns := range hrSynonyms {
			for _, syn := range syns {
				if syn == term {
					if _, exists := q.weights[head]; !exists {
						q.weights[head] = synonymTermWeight
					}
				}
			}
		}
	}

	switch {
	case strings.Contains(q.phrase, "$"):
		q.money = true
	default:
		for _, w := range []string{"salary", "pay", "compensation", "wage"} {
			if q.original[w] {
				q.money = true
				break
			}
		}
	}

	return q
}

// Hit is one scored chunk.
type Hit struct {
	Chunk types.Chunk
	Score float64
}

// Retriever scores chunks from a source against questions.
type Retriever struct {
	source interface{ Chunks() []types.Chunk }
	cache  *resultCache
}

// New creates a retriever over a chunk source (normally *document.Store).
func New(source interface{ Chunks() []types.Chunk }) *Retriever {
	return &Retriever{
		source: source,
		cache:  newResultCache(128, 2*time.Minute),
	}
}

// TopK returns the k highest-scoring chunks for the question, best first.
// Zero-score chunks are never returned. Results for repeat questions come
// from a short TTL cache.
func (r *Retriever) TopK(question string, k int) []Hit {
	if k <= 0 {
		k = 5
	}

	key := fmt.Sprintf("%s|%d", strings.TrimSpace(strings.ToLower(question)), k)
	if hits, ok := r.cache.get(key); ok {
		logging.RetrievalDebug("Cache hit for %q", question)
		return hits
	}

	timer := logging.StartTimer(logging.CategoryRetrieval, "TopK")
	defer timer.Stop()

	q := parseQuery(question)
	chunks := r.source.Chunks()

	hits := make([]Hit, 0, len(chunks))
	for _, c := range chunks {
		if score := scoreChunk(q, c); score > 0 {
			hits = append(hits, Hit{Chunk: c, Score: score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}

	logging.Retrieval("Question %q matched %d chunks (returning %d)", question, len(chunks), len(hits))
	r.cache.put(key, hits)
	return hits
}

// scoreChunk computes the relevance of one chunk for the parsed query.
func scoreChunk(q queryTerms, c types.Chunk) float64 {
	text := strings.ToLower(c.Text)
	tokens := Tokenize(text)

	freq := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		freq[tok]++
	}

	var score float64
	matched := make(map[string]bool)
	for term, weight := range q.weights {
		n := freq[term]
		if n == 0 {
			continue
		}
		// Longer terms are more specific, so they count a little more.
		score += float64(n) * weight * (1 + float64(len(term))/10)
		matched[term] = true
	}
	if score == 0 {
		return 0
	}

	// Compensation questions strongly prefer chunks with actual figures.
	if q.money {
		if amounts := dollarPattern.FindAllString(text, -1); len(amounts) > 0 {
			score += float64(len(amounts)) * dollarAmountBonus
		}
	}

	// Exact phrase beats everything; otherwise reward terms close together.
	if len(q.original) > 1 {
		if strings.Contains(text, q.phrase) {
			score *= phraseMultiplier
		} else if distinctTermsNear(text, q.original) {
			score *= proximityMultiplier
		}
	}

	// Mid-sized chunks carry the most context per token.
	if c.Words >= 50 && c.Words <= 300 {
		score *= 1.1
	}

	return score
}

// distinctTermsNear reports whether two different query terms occur within
// proximityWindow chars of each other in the text.
func distinctTermsNear(text string, terms map[string]bool) bool {
	type pos struct {
		at   int
		term string
	}
	var positions []pos
	for term := range terms {
		idx := 0
		for {
			i := strings.Index(text[idx:], term)
			if i < 0 {
				break
			}
			positions = append(positions, pos{at: idx + i, term: term})
			idx += i + len(term)
		}
	}
	if len(positions) < 2 {
		return false
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].at < positions[j].at })
	for i := 1; i < len(positions); i++ {
		if positions[i].term != positions[i-1].term &&
			positions[i].at-positions[i-1].at < proximityWindow {
			return true
		}
	}
	return false
}

// ContextLimits bound how much retrieved text goes into the prompt.
type ContextLimits struct {
	MaxChunks int
	MaxChars  int
}

// BuildContext concatenates the top hits into a prompt context block with
// per-document attribution headers, respecting the limits. It returns the
// block and the distinct source document names in hit order.
func BuildContext(hits []Hit, limits ContextLimits) (string, []string) {
	if limits.MaxChunks <= 0 {
		limits.MaxChunks = 5
	}
	if limits.MaxChars <= 0 {
		limits.MaxChars = 8000
	}

	var b strings.Builder
	var sources []string
	seen := make(map[string]bool)

	for i, hit := range hits {
		if i >= limits.MaxChunks {
			break
		}
		block := fmt.Sprintf("[Source: %s]\n%s\n\n", hit.Chunk.Document, hit.Chunk.Text)
		if b.Len()+len(block) > limits.MaxChars && b.Len() > 0 {
			break
		}
		b.WriteString(block)
		if !seen[hit.Chunk.Document] {
			seen[hit.Chunk.Document] = true
			sources = append(sources, hit.Chunk.Document)
		}
	}

	return strings.TrimSpace(b.String()), sources
}
