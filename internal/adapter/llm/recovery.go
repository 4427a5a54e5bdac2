// Package llm contains the model-facing adapters: response recovery and the
// HTTP client used to invoke the model.
package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// RawReview is the model's proposed review payload. Every field is
// untrusted: the model may omit fields, mistype them, or propose line
// numbers that do not exist. Nothing here is used without re-validation
// by the normalizer.
type RawReview struct {
	Conclusion any          `json:"conclusion"`
	Summary    any          `json:"summary"`
	Comments   []RawComment `json:"comments"`
}

// RawComment is a single model-proposed comment record.
type RawComment struct {
	Filepath  any `json:"filepath"`
	StartLine any `json:"start_line"`
	EndLine   any `json:"end_line"`
	Comment   any `json:"comment"`
}

// UnparseableError indicates the model output survived neither strict nor
// repair parsing. Raw carries the original text so the caller can fall back
// to posting it verbatim as unstructured feedback.
type UnparseableError struct {
	Raw string
}

func (e *UnparseableError) Error() string {
	return fmt.Sprintf("llm: response is not parseable JSON (%d bytes)", len(e.Raw))
}

// Matches from the first opening fence to the LAST closing fence (greedy).
// Greedy matching is required when the JSON itself embeds fenced example
// code inside a comment body.
var fencedBlockRegex = regexp.MustCompile("(?s)```(?:json)?\\s*([\\s\\S]*)```")

// Recover extracts a JSON payload from raw model output and parses it into
// a RawReview. The attempts are ordered; the first success wins:
//
//  1. Extract the interior of a fenced code block, or trim the whole text.
//  2. If the candidate is not a clean JSON document start-to-end, slice
//     between the first '{' and the last '}' to shed surrounding prose.
//  3. Strict JSON parse.
//  4. Structural-repair parse of the same candidate (trailing commas,
//     unquoted keys, unbalanced brackets).
//
// If everything fails, an *UnparseableError carrying the original text is
// returned. The model gives no structural guarantee, so this degradation
// path is normal operation, not an anomaly.
func Recover(text string) (RawReview, error) {
	candidate := extractCandidate(text)

	var raw RawReview
	if err := json.Unmarshal([]byte(candidate), &raw); err == nil {
		return raw, nil
	}

	if repaired, err := jsonrepair.JSONRepair(candidate); err == nil {
		if err := json.Unmarshal([]byte(repaired), &raw); err == nil {
			return raw, nil
		}
	}

	return RawReview{}, &UnparseableError{Raw: text}
}

// extractCandidate isolates the most plausible JSON document in the text.
func extractCandidate(text string) string {
	candidate := strings.TrimSpace(text)
	if m := fencedBlockRegex.FindStringSubmatch(candidate); len(m) > 1 {
		candidate = strings.TrimSpace(m[1])
	}

	if strings.HasPrefix(candidate, "{") && strings.HasSuffix(candidate, "}") {
		return candidate
	}

	// Leading or trailing prose around the object; slice between the
	// outermost braces.
	start := strings.Index(candidate, "{")
	end := strings.LastIndex(candidate, "}")
	if start >= 0 && end > start {
		return candidate[start : end+1]
	}

	return candidate
}
