package llm_test

import (
	"reflect"
	"testing"

	"github.com/astralab/astra/internal/astra/llm"
)

func TestExtractCompleteSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "no boundary",
			text: "Hello world",
			want: nil,
		},
		{
			name: "single sentence",
			text: "Hello world.",
			want: []string{"Hello world."},
		},
		{
			name: "two sentences and remainder",
			text: "Hello world. How are you? I am",
			want: []string{"Hello world.", "How are you?"},
		},
		{
			name: "repeated punctuation",
			text: "Really?! Yes!!",
			want: []string{"Really?!", "Yes!!"},
		},
		{
			name: "boundary with trailing whitespace",
			text: "One.  Two.\nThree",
			want: []string{"One.", "Two."},
		},
		{
			name: "empty input",
			text: "",
			want: nil,
		},
		{
			name: "only punctuation",
			text: "...",
			want: []string{"..."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := llm.ExtractCompleteSentences(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractCompleteSentences(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestLastSentenceEnd(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"no boundary here", 0},
		{"Done.", 5},
		{"Done. And more", 6}, // boundary consumes the following space
		{"One. Two? Thr", 10},
	}

	for _, tt := range tests {
		if got := llm.LastSentenceEnd(tt.text); got != tt.want {
			t.Errorf("LastSentenceEnd(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

// Incremental consumption: text ending exactly at a boundary leaves no
// remainder, and re-running on the empty remainder yields nothing.
func TestSegmenter_IncrementalIdempotence(t *testing.T) {
	buffer := ""
	var emitted []string

	for _, increment := range []string{"Hello", " world.", " How are you?"} {
		buffer += increment
		emitted = append(emitted, llm.ExtractCompleteSentences(buffer)...)
		buffer = buffer[llm.LastSentenceEnd(buffer):]
	}

	want := []string{"Hello world.", "How are you?"}
	if !reflect.DeepEqual(emitted, want) {
		t.Errorf("emitted = %v, want %v", emitted, want)
	}
	if buffer != "" {
		t.Errorf("remainder = %q, want empty", buffer)
	}
	if got := llm.ExtractCompleteSentences(buffer); got != nil {
		t.Errorf("ExtractCompleteSentences on empty remainder = %v, want nil", got)
	}
}

func TestHasSentenceBoundary(t *testing.T) {
	if llm.HasSentenceBoundary("still going") {
		t.Error("expected no boundary in unterminated text")
	}
	if !llm.HasSentenceBoundary("done. more") {
		t.Error("expected boundary to be found")
	}
}
