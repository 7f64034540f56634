package client

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/menta2k/parkwise/pkg/types"
)

var (
	reBlockComment  = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLineComment   = regexp.MustCompile(`(?m)^\s*//.*$`)
	reTrailingComma = regexp.MustCompile(`,(\s*[}\]])`)
)

// ParseSpotLocation decodes a model reply into a SpotLocation. Replies are
// often wrapped in code fences or carry comments, so they are sanitized first.
func ParseSpotLocation(raw string) (*types.SpotLocation, error) {
	cleaned := SanitizeModelJSON(raw)
	if !strings.HasPrefix(cleaned, "{") {
		return nil, fmt.Errorf("model reply is not JSON: %q", truncate(raw, 120))
	}

	var loc types.SpotLocation
	if err := json.Unmarshal([]byte(cleaned), &loc); err != nil {
		return nil, fmt.Errorf("failed to parse model reply: %w", err)
	}

	loc.LocationDescription = strings.TrimSpace(loc.LocationDescription)
	if loc.LocationDescription == "" {
		return nil, ErrEmptyResponse
	}
	return &loc, nil
}

// SanitizeModelJSON removes code fences, comments, and trailing commas from a JSON reply
func SanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	// Strip triple-backtick fences if present
	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")

	raw = reBlockComment.ReplaceAllString(raw, "")
	raw = reLineComment.ReplaceAllString(raw, "")
	raw = reTrailingComma.ReplaceAllString(raw, "$1")

	// Keep only the outermost {...}
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
