// Package memory implements fact extraction and relevance-ranked retrieval
// for the assistant's long-term memory. Facts are detected two ways: regex
// templates over user input ("remember that my X is Y") and structured JSON
// objects embedded in model output ({"memory": {"key": ..., "value": ...}}).
package memory

import (
	"regexp"
	"strings"
)

// Detection is the outcome of a memory extraction attempt.
type Detection struct {
	Detected bool
	Key      string
	Value    string
	// FromJSON is true when the fact came from a structured JSON object in
	// model output rather than a regex template.
	FromJSON bool
}

// rememberPatterns are tried in order; the first match wins. The bare
// "my X is Y" template is last and greedy: "my cat is cute" stores
// key="cat".
var rememberPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)remember that (?:my|the) (.+?) (?:is|are) (.+)`),
	regexp.MustCompile(`(?i)save (.+?) as (.+)`),
	regexp.MustCompile(`(?i)store (.+?) as (.+)`),
	regexp.MustCompile(`(?i)note that (?:my|the) (.+?) (?:is|are) (.+)`),
	regexp.MustCompile(`(?i)my (.+?) (?:is|are) (.+)`),
}

// MatchPattern runs the prioritized template list over text and returns the
// extracted key/value pair. Pure: persistence is the Manager's job.
func MatchPattern(text string) Detection {
	for _, pattern := range rememberPatterns {
		m := pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		key := strings.TrimSpace(m[1])
		value := strings.TrimSpace(m[2])
		if key == "" || value == "" {
			continue
		}
		return Detection{Detected: true, Key: key, Value: value}
	}
	return Detection{}
}
