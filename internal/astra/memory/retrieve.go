package memory

import (
	"regexp"
	"sort"
	"strings"

	"github.com/astralab/astra/internal/astra/store"
)

// DefaultMaxResults caps how many facts retrieval returns per query.
const DefaultMaxResults = 5

// stopwords are dropped from queries before scoring.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "but": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "has": {}, "have": {},
	"had": {}, "do": {}, "does": {}, "did": {}, "will": {}, "would": {},
	"can": {}, "could": {}, "may": {}, "might": {}, "must": {}, "should": {},
	"what": {}, "when": {}, "where": {}, "who": {}, "why": {}, "how": {},
	"my": {}, "your": {}, "his": {}, "her": {}, "their": {}, "our": {}, "its": {},
}

var nonWordRE = regexp.MustCompile(`\W+`)

// RetrieveRelevantMemory scores every fact against the query and returns
// the top maxResults, highest score first. Ties keep their original
// (insertion) order via a stable sort. An empty query term set yields no
// results.
func RetrieveRelevantMemory(query string, facts []store.MemoryFact, recent []store.Message, maxResults int) []store.MemoryFact {
	if len(facts) == 0 {
		return nil
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	terms := extractQueryTerms(strings.ToLower(query))
	if len(terms) == 0 {
		return nil
	}

	type scored struct {
		fact  store.MemoryFact
		score float64
	}
	ranked := make([]scored, 0, len(facts))
	for _, fact := range facts {
		factText := strings.ToLower(fact.Key + " " + fact.Value)
		ranked = append(ranked, scored{fact: fact, score: relevanceScore(factText, terms, recent)})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	if maxResults > len(ranked) {
		maxResults = len(ranked)
	}
	results := make([]store.MemoryFact, maxResults)
	for i := range results {
		results[i] = ranked[i].fact
	}
	return results
}

// extractQueryTerms tokenizes on non-word boundaries, drops short tokens
// and stopwords, and deduplicates while preserving first-seen order.
func extractQueryTerms(query string) []string {
	seen := make(map[string]struct{})
	var terms []string
	for _, token := range nonWordRE.Split(query, -1) {
		if len(token) <= 2 {
			continue
		}
		if _, stop := stopwords[token]; stop {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		terms = append(terms, token)
	}
	return terms
}

// relevanceScore combines term occurrence counts, a whole-word boost, and
// a recency bonus from recent conversation messages.
func relevanceScore(factText string, terms []string, recent []store.Message) float64 {
	var score float64

	for _, term := range terms {
		if strings.Contains(factText, term) {
			score += float64(countOccurrences(factText, term))
		}
	}

	// Whole-word match multiplies the accumulated term score once.
	words := strings.Fields(factText)
	boost := false
	for _, word := range words {
		for _, term := range terms {
			if word == term {
				boost = true
			}
		}
	}
	if boost {
		score *= 1.5
	}

	// Recency bonus over the last 5 messages. The (5-i)/5 weight indexes
	// the window oldest-first, so the oldest mention carries the largest
	// bonus.
	if len(recent) > 0 {
		window := recent
		if len(window) > 5 {
			window = window[len(window)-5:]
		}
		for i, msg := range window {
			text := strings.ToLower(msg.Content)
			for _, term := range terms {
				if strings.Contains(text, term) {
					score += (5.0 - float64(i)) / 5.0 * 0.5
					break
				}
			}
		}
	}

	return score
}

// countOccurrences counts term occurrences via a sliding window of the
// term's length, so overlapping matches are each counted ("aaaa" contains
// "aa" three times).
func countOccurrences(text, term string) int {
	if len(term) == 0 || len(term) > len(text) {
		return 0
	}
	count := 0
	for i := 0; i+len(term) <= len(text); i++ {
		if text[i:i+len(term)] == term {
			count++
		}
	}
	return count
}
