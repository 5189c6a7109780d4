package voice

import "strings"

// WakeWord is the phrase that routes a transcription to the assistant.
const WakeWord = "hey astra"

// ContainsWakeWord reports whether the transcribed text addresses the
// assistant. Matching is case-insensitive and position-independent.
func ContainsWakeWord(text string) bool {
	return strings.Contains(strings.ToLower(text), WakeWord)
}

// StripWakeWord removes the first wake-word occurrence from text so the
// remainder can be submitted as the user message. Returns the trimmed
// original when no wake word is present.
func StripWakeWord(text string) string {
	lower := strings.ToLower(text)
	i := strings.Index(lower, WakeWord)
	if i < 0 {
		return strings.TrimSpace(text)
	}
	rest := text[:i] + text[i+len(WakeWord):]
	return strings.TrimSpace(strings.TrimLeft(rest, ",. "))
}
