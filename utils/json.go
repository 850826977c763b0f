package utils

import (
	"errors"
	"regexp"
	"strings"
)

var codeFencePattern = regexp.MustCompile("```(?:json|JSON)?\\s*")

// ExtractJSONObject strips markdown fences and surrounding prose, returning the
// outermost {...} block.
func ExtractJSONObject(text string) (string, error) {
	cleaned := strings.TrimSpace(text)
	if strings.Contains(cleaned, "```") {
		cleaned = codeFencePattern.ReplaceAllString(cleaned, "")
		cleaned = strings.TrimSpace(strings.ReplaceAll(cleaned, "```", ""))
	}
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end < start {
		return "", errors.New("no JSON object in text")
	}
	return cleaned[start : end+1], nil
}
