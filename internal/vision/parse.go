package vision

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vbonduro/foodscan/internal/domain"
)

const fenceMarker = "```"

// ParseCompletion extracts the JSON value from a model completion.
//
// When the trimmed text contains a markdown fence anywhere, the candidate is
// the span from the first '{' to the last '}' inclusive; otherwise the whole
// trimmed text is decoded. Prose around a fenced object, or braces inside
// strings outside the object, can still corrupt the span.
//
// The decoded value is not checked against any schema. On failure the
// returned *domain.Error has KindParse and Details set to the candidate.
func ParseCompletion(raw string) (json.RawMessage, error) {
	candidate := extractCandidate(raw)

	var decoded any
	if err := json.Unmarshal([]byte(candidate), &decoded); err != nil {
		return nil, &domain.Error{
			Kind:    domain.KindParse,
			Err:     fmt.Errorf("failed to parse model response: %w", err),
			Details: candidate,
		}
	}
	return json.RawMessage(candidate), nil
}

func extractCandidate(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.Contains(text, fenceMarker) {
		return text
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return ""
	}
	return text[start : end+1]
}

// DecodeNutrition gives a typed view of a parsed completion. Keys the model
// added beyond NutritionResult are ignored here but survive in the raw value.
func DecodeNutrition(data json.RawMessage) (*domain.NutritionResult, error) {
	var result domain.NutritionResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode nutrition result: %w", err)
	}
	return &result, nil
}
