package llm

import (
	"regexp"
	"strings"
)

// sentenceEndRE matches a sentence boundary: one or more terminal
// punctuation marks followed by optional whitespace.
var sentenceEndRE = regexp.MustCompile(`[.!?]+\s*`)

// ExtractCompleteSentences returns every complete sentence in the buffered
// text, in order. A sentence runs from the end of the previous boundary to
// the end of the current one; leading and trailing whitespace is trimmed
// and empty slices are dropped. Text after the last boundary is not
// returned — it is the carry-over remainder for the next increment.
func ExtractCompleteSentences(text string) []string {
	var sentences []string
	lastEnd := 0
	for _, loc := range sentenceEndRE.FindAllStringIndex(text, -1) {
		sentence := strings.TrimSpace(text[lastEnd:loc[1]])
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		lastEnd = loc[1]
	}
	return sentences
}

// LastSentenceEnd returns the index just past the final sentence boundary
// in text, i.e. where the unterminated remainder begins. Returns 0 when
// the text contains no boundary.
func LastSentenceEnd(text string) int {
	locs := sentenceEndRE.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return 0
	}
	return locs[len(locs)-1][1]
}

// HasSentenceBoundary reports whether text contains at least one complete
// sentence boundary.
func HasSentenceBoundary(text string) bool {
	return sentenceEndRE.MatchString(text)
}
