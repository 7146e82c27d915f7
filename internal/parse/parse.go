// Package parse extracts structured data from free-form model output.
// Models wrap JSON in prose, fences, or both; extraction tries progressively
// looser candidates, each with one light repair pass.
package parse

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"newsgate/internal/core"
)

var fenceRe = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")

// trailingCommaRe matches a comma directly before a closing bracket, the
// most common malformation in model JSON.
var trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)

var smartQuoteReplacer = strings.NewReplacer(
	"“", `"`, "”", `"`, // curly double quotes
	"‘", "'", "’", "'", // curly single quotes
)

// Extract returns the first JSON document found in raw model text, trying in
// order: the whole text, the first fenced code block, the first balanced
// {...} substring, the first balanced [...] substring. Each failed candidate
// gets one repair pass. ok is false when nothing parses; that is not an
// error by itself — the gate decides whether to attempt a model repair.
func Extract(raw string) (json.RawMessage, bool) {
	for _, candidate := range candidates(raw) {
		if doc, ok := tryParse(candidate); ok {
			return doc, true
		}
		if doc, ok := tryParse(Repair(candidate)); ok {
			return doc, true
		}
	}
	return nil, false
}

func candidates(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	out := []string{raw}
	if m := fenceRe.FindStringSubmatch(raw); m != nil {
		out = append(out, strings.TrimSpace(m[1]))
	}
	if sub := bracketSubstring(raw, '{', '}'); sub != "" {
		out = append(out, sub)
	}
	if sub := bracketSubstring(raw, '[', ']'); sub != "" {
		out = append(out, sub)
	}
	return out
}

// bracketSubstring returns the substring from the first open bracket to its
// matching close, tracking nesting and string literals.
func bracketSubstring(raw string, open, close byte) string {
	start := strings.IndexByte(raw, open)
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
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
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return raw[start : i+1]
			}
		}
	}
	return ""
}

func tryParse(candidate string) (json.RawMessage, bool) {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return nil, false
	}
	if !json.Valid([]byte(candidate)) {
		return nil, false
	}
	// Only object/array documents are useful downstream; a bare string or
	// number parsing as valid JSON is noise.
	switch candidate[0] {
	case '{', '[':
		return json.RawMessage(candidate), true
	}
	return nil, false
}

// Repair applies the light fixups worth attempting before giving up on a
// candidate: trailing commas removed, smart quotes normalized.
func Repair(candidate string) string {
	candidate = smartQuoteReplacer.Replace(candidate)
	candidate = trailingCommaRe.ReplaceAllString(candidate, "$1")
	return candidate
}

// DecodeDraft decodes an extracted document into the strict draft shape.
func DecodeDraft(doc json.RawMessage) (*core.DraftCandidate, error) {
	var candidate core.DraftCandidate
	if err := json.Unmarshal(doc, &candidate); err != nil {
		return nil, fmt.Errorf("model output does not match draft shape: %w", err)
	}
	return &candidate, nil
}

// DecodeNewsItems decodes an extracted document into a batch of news items.
// Both a bare array and an {"items": [...]} envelope are accepted.
func DecodeNewsItems(doc json.RawMessage) ([]core.NewsItemCandidate, error) {
	var items []core.NewsItemCandidate
	if err := json.Unmarshal(doc, &items); err == nil {
		return items, nil
	}
	var envelope struct {
		Items []core.NewsItemCandidate `json:"items"`
	}
	if err := json.Unmarshal(doc, &envelope); err == nil && len(envelope.Items) > 0 {
		return envelope.Items, nil
	}
	return nil, fmt.Errorf("model output does not match news batch shape")
}
