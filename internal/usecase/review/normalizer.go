package review

import (
	"errors"
	"strconv"
	"strings"

	"github.com/kestrelci/reviewbot/internal/adapter/llm"
	"github.com/kestrelci/reviewbot/internal/domain"
)

// ErrEmptyReview signals that normalization produced neither a summary nor
// any validated comments; there is nothing worth submitting.
var ErrEmptyReview = errors.New("review: nothing to submit")

// BuildReview validates and reshapes a recovered model payload into a
// submission-ready review. Individual comment entries that fail validation
// are dropped silently: one bad suggestion must never abort the whole
// review. The verdict is normalized (only the literal "REQUEST_CHANGES" is
// accepted; everything else becomes APPROVE) and forced to COMMENT when the
// acting user is also the pull-request author, since a self-review can
// neither approve nor block.
func BuildReview(raw llm.RawReview, contents map[string]domain.FileContent, actor, author string) (domain.Review, error) {
	review := domain.Review{
		Verdict:  normalizeVerdict(raw.Conclusion, actor, author),
		Summary:  stringOrEmpty(raw.Summary),
		Comments: NormalizeComments(raw.Comments, contents),
	}

	if strings.TrimSpace(review.Summary) == "" && len(review.Comments) == 0 {
		return domain.Review{}, ErrEmptyReview
	}

	return review, nil
}

// NormalizeComments validates each model-proposed comment against the
// change-set and emits bounds-checked records. The contents map holds an
// entry for every changed file; membership in the map is the authority on
// which files were actually part of the change. A file whose content could
// not be fetched has Known=false and skips line-count validation (not
// failed, skipped).
func NormalizeComments(raw []llm.RawComment, contents map[string]domain.FileContent) []domain.ReviewComment {
	var comments []domain.ReviewComment

	for _, rc := range raw {
		path, ok := asString(rc.Filepath)
		if !ok || path == "" {
			continue
		}
		content, changed := contents[path]
		if !changed {
			continue
		}

		start, ok := asInt(rc.StartLine)
		if !ok || start < 1 {
			continue
		}
		if content.Known && start > len(content.Lines) {
			continue
		}

		comment := domain.ReviewComment{
			Path: path,
			Body: stringOrEmpty(rc.Comment),
			Line: start,
		}

		// A range is only a range when the end lies strictly beyond the
		// start; the anchor is then the (clamped) end of the range.
		if end, ok := asInt(rc.EndLine); ok && end > start {
			if content.Known && end > len(content.Lines) {
				end = len(content.Lines)
			}
			comment.Line = end
			if end > start {
				comment.StartLine = start
			}
		}

		comments = append(comments, comment)
	}

	return comments
}

// normalizeVerdict accepts only the exact literal "REQUEST_CHANGES"; any
// other conclusion, including absence or a casing variant, downgrades to
// APPROVE. Actor==author forces COMMENT regardless of the model's verdict.
func normalizeVerdict(conclusion any, actor, author string) domain.Verdict {
	verdict := domain.VerdictApprove
	if s, ok := asString(conclusion); ok && s == string(domain.VerdictRequestChanges) {
		verdict = domain.VerdictRequestChanges
	}
	if actor != "" && actor == author {
		verdict = domain.VerdictComment
	}
	return verdict
}

// asString extracts a string from an untyped JSON value.
func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// stringOrEmpty coerces an untyped value to a string, mapping absence (or a
// non-string value) to an explicit empty string rather than dropping the
// record.
func stringOrEmpty(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// asInt coerces an untyped JSON value to an integer. JSON numbers decode as
// float64; models also emit numbers as strings, which are accepted when
// they parse cleanly.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	case int:
		return n, true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}
