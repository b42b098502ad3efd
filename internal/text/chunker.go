package text

import (
	"strings"

	"github.com/Devpradp/TA-Chatbot/internal/deck"
)

// DefaultWordLimit caps the number of words in a single chunk.
const DefaultWordLimit = 500

type Field string

const (
	FieldTitle Field = "title"
	FieldBody  Field = "body"
	FieldNotes Field = "notes"
)

// ChunkResult is one embeddable unit together with the slide field it came
// from.
type ChunkResult struct {
	Content string
	Slide   int
	Field   Field
}

// ChunkSlides flattens slides into chunks. For each slide in order it emits
// the title, each text block, then the notes when present. Texts longer than
// wordLimit words are split into consecutive word groups; the last group may
// be shorter. A wordLimit <= 0 selects DefaultWordLimit.
func ChunkSlides(slides []deck.Slide, wordLimit int) []ChunkResult {
	if wordLimit <= 0 {
		wordLimit = DefaultWordLimit
	}

	var results []ChunkResult
	emit := func(slide int, field Field, content string) {
		for _, part := range SplitWords(content, wordLimit) {
			results = append(results, ChunkResult{Content: part, Slide: slide, Field: field})
		}
	}

	for _, s := range slides {
		emit(s.Index, FieldTitle, s.Title)
		for _, block := range s.TextBlocks {
			emit(s.Index, FieldBody, block)
		}
		if s.Notes != "" {
			emit(s.Index, FieldNotes, s.Notes)
		}
	}
	return results
}

// Contents returns the chunk texts in order.
func Contents(chunks []ChunkResult) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Content
	}
	return out
}

// SplitWords returns text unchanged when it has at most limit words.
// Otherwise it returns non-overlapping groups of limit words joined by single
// spaces, in original order.
func SplitWords(text string, limit int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if limit <= 0 || len(words) <= limit {
		return []string{text}
	}

	groups := make([]string, 0, (len(words)+limit-1)/limit)
	for start := 0; start < len(words); start += limit {
		end := min(start+limit, len(words))
		groups = append(groups, strings.Join(words[start:end], " "))
	}
	return groups
}
