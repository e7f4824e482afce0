// Package tokens defines the token counting contract used by the router and
// the ChatML formatter.
//
// No model-specific tokenizer ships with this module. Approximate is a
// deterministic heuristic; callers needing exact counts plug in their own
// Counter (for example one backed by a BPE tokenizer).
package tokens

import (
	"unicode"
	"unicode/utf8"
)

// Counter returns the number of tokens in text.
type Counter func(text string) (int, error)

// charsPerToken is the average English characters per BPE token.
const charsPerToken = 4

// Approximate estimates tokens as one per four runes, rounded up, with every
// whitespace-separated word counting at least once. It never fails.
func Approximate(text string) (int, error) {
	if text == "" {
		return 0, nil
	}

	runes := utf8.RuneCountInString(text)
	estimate := (runes + charsPerToken - 1) / charsPerToken

	words := 0
	inWord := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			inWord = false
			continue
		}
		if !inWord {
			words++
			inWord = true
		}
	}

	return max(estimate, words), nil
}

// ChatMLCounter wraps counter so that it counts role and content framed as
// a single ChatML segment: <|im_start|>role\ncontent<|im_end|>.
func ChatMLCounter(counter Counter) func(role, content string) (int, error) {
	if counter == nil {
		counter = Approximate
	}
	return func(role, content string) (int, error) {
		return counter("<|im_start|>" + role + "\n" + content + "<|im_end|>")
	}
}
