package llm

import (
	"fmt"
	"strings"
)

// ExtractObject isolates the JSON object embedded in an LLM response.
// Models frequently wrap JSON in markdown code fences or prepend
// conversational filler. The extractor:
//  1. Strips markdown code fences if present (```json ... ```)
//  2. Finds the first { and last } and returns that substring
func ExtractObject(resp string) (string, error) {
	s := stripFences(resp)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return "", fmt.Errorf("no JSON object in response")
	}
	return s[start : end+1], nil
}

// ExtractArray isolates the JSON array embedded in an LLM response,
// applying the same fence stripping as ExtractObject.
func ExtractArray(resp string) (string, error) {
	s := stripFences(resp)

	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start == -1 || end <= start {
		return "", fmt.Errorf("no JSON array in response")
	}
	return s[start : end+1], nil
}

func stripFences(resp string) string {
	s := strings.TrimSpace(resp)
	if idx := strings.Index(s, "```"); idx != -1 {
		s = s[idx+3:]
		if strings.HasPrefix(s, "json") {
			s = s[4:]
		}
		if end := strings.Index(s, "```"); end != -1 {
			s = s[:end]
		}
	}
	return s
}
