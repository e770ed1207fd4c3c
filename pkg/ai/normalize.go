package ai

import (
	"encoding/json"
	"strings"
)

// StripCodeFences removes a surrounding markdown code block, including an
// optional language tag such as ```json.
func StripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if i := strings.Index(text, "\n"); i >= 0 {
		text = text[i+1:]
	} else {
		text = strings.TrimPrefix(text, "json")
	}
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// ExtractJSONArray returns the text between the first '[' and the last ']',
// or "" when there is no such span.
func ExtractJSONArray(text string) string {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return text[start : end+1]
}

// ExtractJSONObject returns the text between the first '{' and the last '}'.
func ExtractJSONObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return text[start : end+1]
}

// NormalizeScheduleOutput unwraps model output into the schedule array text
// and an optional plan summary. It accepts a bare array, an array inside
// prose, or an object {"summary": ..., "schedule": [...]}. Whatever it
// returns is still unvalidated.
func NormalizeScheduleOutput(text string) (schedule, summary string) {
	text = StripCodeFences(text)

	if strings.HasPrefix(text, "{") {
		var wrapped struct {
			Summary  string          `json:"summary"`
			Schedule json.RawMessage `json:"schedule"`
		}
		if err := json.Unmarshal([]byte(text), &wrapped); err == nil && len(wrapped.Schedule) > 0 {
			return string(wrapped.Schedule), strings.TrimSpace(wrapped.Summary)
		}
	}

	if arr := ExtractJSONArray(text); arr != "" {
		return arr, ""
	}
	return text, ""
}
