// Package parsing recovers JSON values from noisy LLM output.
package parsing

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

const previewLimit = 500

// ExtractError reports that no JSON value could be recovered from the text.
// It carries a bounded preview of the offending output for diagnostics.
type ExtractError struct {
	Preview string
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("no JSON value found in LLM output (preview: %q)", e.Preview)
}

// ExtractJSON recovers a raw JSON document from arbitrary LLM text. It tries
// a fenced ```json block first, then balanced {...} and [...] spans in the
// order they appear in the text, then the whole trimmed text, and returns the
// first candidate that is valid JSON.
func ExtractJSON(text string) (json.RawMessage, error) {
	for _, c := range candidates(text) {
		if json.Valid([]byte(c)) {
			return json.RawMessage(c), nil
		}
	}
	return nil, extractError(text)
}

// ParseInto extracts a JSON document from text and unmarshals it into out.
// Candidates that are valid JSON but do not fit out's shape are skipped, so a
// bare top-level array still parses into a slice even though its first
// element is itself a balanced object.
func ParseInto(text string, out any) error {
	target := reflect.ValueOf(out)
	if target.Kind() != reflect.Pointer || target.IsNil() {
		return fmt.Errorf("parsing: out must be a non-nil pointer, got %T", out)
	}

	var lastValid string
	for _, c := range candidates(text) {
		if !json.Valid([]byte(c)) {
			continue
		}
		lastValid = c
		// Decode into a fresh value so a failed attempt cannot leave
		// out partially populated.
		fresh := reflect.New(target.Type().Elem())
		if err := json.Unmarshal([]byte(c), fresh.Interface()); err != nil {
			continue
		}
		target.Elem().Set(fresh.Elem())
		return nil
	}

	if lastValid != "" {
		return extractError(lastValid)
	}
	return extractError(text)
}

// candidates lists the plausible JSON documents embedded in text, most
// specific first: fenced block, balanced spans by position, whole text.
func candidates(text string) []string {
	out := []string{}
	if fenced := fencedBlock(text); fenced != "" {
		out = append(out, fenced)
	}

	obj, objStart := balancedSpan(text, '{', '}')
	arr, arrStart := balancedSpan(text, '[', ']')
	switch {
	case obj != "" && arr != "" && arrStart < objStart:
		out = append(out, arr, obj)
	case obj != "" && arr != "":
		out = append(out, obj, arr)
	case obj != "":
		out = append(out, obj)
	case arr != "":
		out = append(out, arr)
	}

	return append(out, strings.TrimSpace(text))
}

func extractError(text string) *ExtractError {
	preview := strings.TrimSpace(text)
	if len(preview) > previewLimit {
		preview = preview[:previewLimit]
	}
	return &ExtractError{Preview: preview}
}

// fencedBlock returns the contents of the first ```json (or bare ```) fence,
// or "" when none closes properly.
func fencedBlock(text string) string {
	for _, marker := range []string{"```json", "```"} {
		start := strings.Index(text, marker)
		if start < 0 {
			continue
		}
		rest := text[start+len(marker):]
		end := strings.Index(rest, "```")
		if end < 0 {
			continue
		}
		return strings.TrimSpace(rest[:end])
	}
	return ""
}

// balancedSpan returns the first balanced open..close span and its start
// index, respecting JSON string literals and escapes, or ("", -1) when none
// exists.
func balancedSpan(text string, open, close byte) (string, int) {
	start := strings.IndexByte(text, open)
	if start < 0 {
		return "", -1
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return text[start : i+1], start
			}
		}
	}
	return "", -1
}
