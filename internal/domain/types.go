package domain

// File statuses as reported by the diff source.
const (
	FileStatusAdded    = "added"
	FileStatusModified = "modified"
	FileStatusRemoved  = "removed"
	FileStatusRenamed  = "renamed"
)

// ChangedFile is a single file in the change-set under review.
// Identity is the filename; entries are immutable for the duration of a run.
type ChangedFile struct {
	Path   string
	Status string
	Patch  string // empty when the diff source supplies no textual diff
}

// HasPatch reports whether the file carries an addressable diff.
// Binary files and files the API declines to diff have no patch and
// contribute no reviewable lines.
func (f ChangedFile) HasPatch() bool {
	return f.Patch != ""
}

// FileContent is the full text of a file at the head revision, split into
// physical lines. Known is false when the content source could not supply
// the file (deleted, binary, or unreadable); such files render with
// filename-only context and skip line-count validation.
type FileContent struct {
	Lines []string
	Known bool
}

// LineCount returns the number of physical lines, or 0 when unknown.
func (c FileContent) LineCount() int {
	if !c.Known {
		return 0
	}
	return len(c.Lines)
}

// Verdict is the overall review outcome submitted alongside the comments.
type Verdict string

const (
	VerdictApprove        Verdict = "APPROVE"
	VerdictRequestChanges Verdict = "REQUEST_CHANGES"
	VerdictComment        Verdict = "COMMENT"
)

// ReviewComment is a validated, bounds-checked inline comment ready for the
// review API. Line is the anchor (for ranges, the end of the range);
// StartLine is zero for single-line comments.
type ReviewComment struct {
	Path      string
	Body      string
	Line      int
	StartLine int
}

// IsRange reports whether the comment spans more than one line.
func (c ReviewComment) IsRange() bool {
	return c.StartLine > 0
}

// Review is the normalized output of one pipeline run.
type Review struct {
	Verdict  Verdict
	Summary  string
	Comments []ReviewComment
}
