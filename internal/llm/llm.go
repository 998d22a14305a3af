// Package llm defines the completion interface the pipeline consumes and
// helpers for digging structured output out of free-form model responses.
package llm

import "context"

// Completer is the interface for any single-shot LLM backend.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ExtractJSON returns the first balanced JSON object found in s. Models wrap
// JSON in prose or code fences often enough that strict whole-string parsing
// is a losing game, so we brace-match instead. String literals and escapes
// inside the object are honored.
func ExtractJSON(s string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
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
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
