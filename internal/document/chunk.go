package document

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"peopleops/internal/types"
)

// Default chunking parameters, overridable through config.
const (
	DefaultChunkSizeWords = 250
	DefaultChunkOverlap   = 50
)

// sentenceEnd matches a terminator followed by whitespace. Newlines also
// break sentences so headings and list items chunk cleanly.
var sentenceEnd = regexp.MustCompile(`([.!?])\s+`)

// splitSentences breaks text into sentences, preserving terminators.
func splitSentences(text string) []string {
	var sentences []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		marked := sentenceEnd.ReplaceAllString(line, "$1\x00")
		for _, s := range strings.Split(marked, "\x00") {
			s = strings.TrimSpace(s)
			if s != "" {
				sentences = append(sentences, s)
			}
		}
	}
	return sentences
}

// wordCount counts whitespace-separated tokens.
func wordCount(s string) int {
	return len(strings.Fields(s))
}

// ChunkText splits document text into sentence-aligned chunks of roughly
// sizeWords words with overlapWords of trailing context carried into the
// next chunk. A single sentence longer than the window is split on word
// boundaries rather than dropped.
func ChunkText(docName, text string, sizeWords, overlapWords int) []types.Chunk {
	if sizeWords <= 0 {
		sizeWords = DefaultChunkSizeWords
	}
	if overlapWords < 0 || overlapWords >= sizeWords {
		overlapWords = DefaultChunkOverlap
	}

	sentences := splitSentences(text)

	// Oversized sentences get pre-split so the window logic stays simple.
	var units []string
	for _, s := range sentences {
		words := strings.Fields(s)
		for len(words) > sizeWords {
			units = append(units, strings.Join(words[:sizeWords], " "))
			words = words[sizeWords:]
		}
		if len(words) > 0 {
			units = append(units, strings.Join(words, " "))
		}
	}

	var chunks []types.Chunk
	var current []string
	currentWords := 0
	fresh := false // true once current holds anything beyond carried overlap

	flush := func() {
		if len(current) == 0 {
			return
		}
		text := strings.Join(current, " ")
		chunks = append(chunks, types.Chunk{
			ID:       uuid.NewString(),
			Document: docName,
			Index:    len(chunks),
			Text:     text,
			Words:    wordCount(text),
		})

		// Carry the tail sentences into the next chunk as overlap.
		var tail []string
		tailWords := 0
		for i := len(current) - 1; i >= 0; i-- {
			w := wordCount(current[i])
			if tailWords+w > overlapWords {
				break
			}
			tail = append([]string{current[i]}, tail...)
			tailWords += w
		}
		current = tail
		currentWords = tailWords
		fresh = false
	}

	for _, u := range units {
		w := wordCount(u)
		if currentWords+w > sizeWords && currentWords > 0 {
			flush()
		}
		current = append(current, u)
		currentWords += w
		fresh = true
	}
	// Final partial chunk, unless it is pure overlap of the previous one.
	if fresh && currentWords > 0 {
		text := strings.Join(current, " ")
		chunks = append(chunks, types.Chunk{
			ID:       uuid.NewString(),
			Document: docName,
			Index:    len(chunks),
			Text:     text,
			Words:    wordCount(text),
		})
	}

	return chunks
}
