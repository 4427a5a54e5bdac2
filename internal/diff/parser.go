package diff

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedPatch indicates diff content appeared before any hunk header,
// so no coordinate cursor could be established. Guessing line numbers here
// risks anchoring comments to the wrong code, so callers skip the file.
var ErrMalformedPatch = errors.New("diff: content before hunk header")

// NewFileLines scans a unified-diff patch for one file and returns the line
// numbers, in the new version of the file, that are visible in the diff
// (additions and context lines). Deletions have no new-file coordinate and
// are excluded. The result is ascending and duplicate-free.
//
// An empty patch yields an empty result: the file contributes no
// addressable lines and should be skipped by the caller.
func NewFileLines(patch string) ([]int, error) {
	if patch == "" {
		return nil, nil
	}

	var result []int
	newLine := 0
	inHunk := false

	for _, line := range strings.Split(patch, "\n") {
		if line == "" {
			continue
		}

		// File metadata emitted by git; not hunk content. The +++/--- headers
		// must be recognized before prefix dispatch or they would be
		// miscounted as additions/deletions.
		if strings.HasPrefix(line, "diff --git") ||
			strings.HasPrefix(line, "index ") ||
			strings.HasPrefix(line, "--- ") ||
			strings.HasPrefix(line, "+++ ") ||
			strings.HasPrefix(line, "\\ ") {
			continue
		}

		if strings.HasPrefix(line, "@@") {
			start, err := parseNewStart(line)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformedPatch, err)
			}
			newLine = start
			inHunk = true
			continue
		}

		switch line[0] {
		case '+', ' ':
			if !inHunk {
				return nil, ErrMalformedPatch
			}
			result = append(result, newLine)
			newLine++
		case '-':
			if !inHunk {
				return nil, ErrMalformedPatch
			}
			// Deletions do not advance the new-file cursor.
		default:
			// Not diff content; ignore.
		}
	}

	return result, nil
}

// parseNewStart extracts the new-file starting line from a hunk header like
// "@@ -10,7 +10,8 @@ optional context".
func parseNewStart(line string) (int, error) {
	parts := strings.Split(line, "@@")
	if len(parts) < 2 {
		return 0, fmt.Errorf("bad hunk header %q", line)
	}

	for _, field := range strings.Fields(strings.TrimSpace(parts[1])) {
		if !strings.HasPrefix(field, "+") {
			continue
		}
		// A start of 0 is valid for fully-deleted files ("+0,0"); such hunks
		// contain only deletions and record nothing.
		start, err := parseStart(strings.TrimPrefix(field, "+"))
		if err != nil || start < 0 {
			return 0, fmt.Errorf("bad new-file start in %q", line)
		}
		return start, nil
	}

	return 0, fmt.Errorf("no new-file range in %q", line)
}

// parseStart parses the start of a "start,count" or "start" range.
func parseStart(s string) (int, error) {
	if idx := strings.Index(s, ","); idx >= 0 {
		s = s[:idx]
	}
	return strconv.Atoi(s)
}
