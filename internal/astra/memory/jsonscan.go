package memory

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// memorySchema accepts a {"memory"|"remember"|"store": {"key","value"}}
// wrapper or a bare {"key","value"} object. Candidates that parse as JSON
// but fail this schema are skipped.
const memorySchema = `{
	"type": "object",
	"anyOf": [
		{"required": ["memory"], "properties": {"memory": {"$ref": "#/$defs/pair"}}},
		{"required": ["remember"], "properties": {"remember": {"$ref": "#/$defs/pair"}}},
		{"required": ["store"], "properties": {"store": {"$ref": "#/$defs/pair"}}},
		{"$ref": "#/$defs/pair"}
	],
	"$defs": {
		"pair": {
			"type": "object",
			"required": ["key", "value"],
			"properties": {
				"key": {"type": "string"},
				"value": {"type": "string"}
			}
		}
	}
}`

var memorySchemaCompiled = jsonschema.MustCompileString("memory.schema.json", memorySchema)

// wrapperKeys are checked in order on a validated candidate.
var wrapperKeys = []string{"memory", "remember", "store"}

// ExtractStructured scans response text for embedded JSON objects carrying
// a memory pair. Each balanced-brace candidate is parsed and validated;
// malformed or non-conforming candidates are skipped and scanning
// continues. When no structured object matches, it falls back to the
// regex template list over the whole response.
func ExtractStructured(response string) Detection {
	for _, candidate := range scanJSONCandidates(response) {
		var decoded any
		if err := json.Unmarshal([]byte(candidate), &decoded); err != nil {
			continue
		}
		if err := memorySchemaCompiled.Validate(decoded); err != nil {
			continue
		}

		obj, ok := decoded.(map[string]any)
		if !ok {
			continue
		}
		for _, wrapper := range wrapperKeys {
			if inner, ok := obj[wrapper].(map[string]any); ok {
				if det, ok := pairFrom(inner); ok {
					return det
				}
			}
		}
		if det, ok := pairFrom(obj); ok {
			return det
		}
	}

	// No structured object — fall back to the same templates used for
	// user input.
	return MatchPattern(response)
}

func pairFrom(obj map[string]any) (Detection, bool) {
	key, _ := obj["key"].(string)
	value, _ := obj["value"].(string)
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if key == "" || value == "" {
		return Detection{}, false
	}
	return Detection{Detected: true, Key: key, Value: value, FromJSON: true}, true
}

// scanJSONCandidates returns every outermost balanced-brace substring of
// text, at any nesting depth.
func scanJSONCandidates(text string) []string {
	spans := scanJSONSpans(text)
	candidates := make([]string, 0, len(spans))
	for _, span := range spans {
		candidates = append(candidates, text[span[0]:span[1]])
	}
	return candidates
}

// scanJSONSpans locates the outermost balanced-brace regions of text as
// [start, end) byte offsets. Stray closing braces and unterminated opens
// are ignored.
func scanJSONSpans(text string) [][2]int {
	var spans [][2]int
	depth := 0
	start := -1
	for i, r := range text {
		switch r {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				spans = append(spans, [2]int{start, i + 1})
				start = -1
			}
		}
	}
	return spans
}

var whitespaceRE = regexp.MustCompile(`\s+`)

// CleanJSONFromResponse strips embedded JSON objects from response text so
// the user sees prose only, then collapses leftover whitespace. It removes
// exactly the regions the candidate scanner finds, so anything extraction
// can see is also hidden from the user.
func CleanJSONFromResponse(response string) string {
	spans := scanJSONSpans(response)
	if len(spans) == 0 {
		return strings.TrimSpace(whitespaceRE.ReplaceAllString(response, " "))
	}

	var b strings.Builder
	prev := 0
	for _, span := range spans {
		b.WriteString(response[prev:span[0]])
		prev = span[1]
	}
	b.WriteString(response[prev:])

	cleaned := whitespaceRE.ReplaceAllString(b.String(), " ")
	return strings.TrimSpace(cleaned)
}
