package parser

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON returns the JSON document embedded in an oracle reply.
// It strips a surrounding markdown code fence and any prose before or
// after the outermost object or array.
func ExtractJSON(reply string) (string, error) {
	s := stripFence(strings.TrimSpace(reply))

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return "", fmt.Errorf("no JSON document in reply")
	}

	end, err := matchDelimiter(s, start)
	if err != nil {
		return "", err
	}
	return s[start : end+1], nil
}

// Decode extracts and unmarshals the JSON document embedded in reply.
func Decode[T any](reply string) (*T, error) {
	payload, err := ExtractJSON(reply)
	if err != nil {
		return nil, err
	}
	var result T
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return &result, nil
}

// stripFence removes a markdown code fence when the whole reply is
// wrapped in one.
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// matchDelimiter finds the index of the delimiter closing the one at
// start, skipping over string literals and their escapes.
func matchDelimiter(s string, start int) (int, error) {
	open := s[start]
	var closing byte = '}'
	if open == '[' {
		closing = ']'
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == open:
			depth++
		case c == closing:
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("unterminated JSON document in reply")
}
