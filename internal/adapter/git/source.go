// Package git provides a local repository change source backed by go-git,
// used for dry runs against two refs instead of a pull request.
package git

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	goGit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	formatdiff "github.com/go-git/go-git/v5/plumbing/format/diff"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/kestrelci/reviewbot/internal/domain"
	"github.com/kestrelci/reviewbot/internal/usecase/review"
)

var (
	_ review.ChangeSource  = (*Source)(nil)
	_ review.ContentSource = (*Source)(nil)
)

// Source serves changed files and file contents from a local repository by
// diffing two refs.
type Source struct {
	repoDir   string
	baseRef   string
	targetRef string

	mu     sync.Mutex
	target *object.Commit
}

// NewSource constructs a source for the provided repository directory and
// ref pair.
func NewSource(repoDir, baseRef, targetRef string) *Source {
	return &Source{repoDir: repoDir, baseRef: baseRef, targetRef: targetRef}
}

// ChangedFiles diffs base against target and returns one entry per changed
// file. Binary file patches are blanked so the diff walk never sees them.
func (s *Source) ChangedFiles(ctx context.Context) ([]domain.ChangedFile, error) {
	repo, err := goGit.PlainOpenWithOptions(s.repoDir, &goGit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}

	baseCommit, err := resolveCommit(repo, s.baseRef)
	if err != nil {
		return nil, fmt.Errorf("resolve base ref: %w", err)
	}

	targetCommit, err := resolveCommit(repo, s.targetRef)
	if err != nil {
		return nil, fmt.Errorf("resolve target ref: %w", err)
	}

	s.mu.Lock()
	s.target = targetCommit
	s.mu.Unlock()

	patch, err := baseCommit.PatchContext(ctx, targetCommit)
	if err != nil {
		return nil, fmt.Errorf("compute patch: %w", err)
	}

	files := make([]domain.ChangedFile, 0, len(patch.FilePatches()))
	for _, fp := range patch.FilePatches() {
		path, status := filePathAndStatus(fp)
		patchText, err := encodeFilePatch(fp)
		if err != nil {
			return nil, fmt.Errorf("encode patch: %w", err)
		}
		if isBinaryPatch(patchText) {
			patchText = ""
		}
		files = append(files, domain.ChangedFile{
			Path:   path,
			Status: status,
			Patch:  patchText,
		})
	}

	return files, nil
}

// Author returns an empty author. Local dry runs have no pull request
// author, so self-review detection never triggers.
func (s *Source) Author(ctx context.Context) (string, error) {
	return "", nil
}

// FileLines reads the file from the target commit's tree. Missing or
// unreadable files are reported as unavailable, not as errors.
func (s *Source) FileLines(ctx context.Context, path string) (domain.FileContent, error) {
	s.mu.Lock()
	target := s.target
	s.mu.Unlock()

	if target == nil {
		return domain.FileContent{}, fmt.Errorf("target ref not resolved; call ChangedFiles first")
	}

	file, err := target.File(path)
	if err != nil {
		return domain.FileContent{}, nil
	}

	text, err := file.Contents()
	if err != nil {
		return domain.FileContent{}, nil
	}

	return domain.FileContent{Known: true, Lines: splitLines(text)}, nil
}

func resolveCommit(repo *goGit.Repository, ref string) (*object.Commit, error) {
	candidates := []string{
		ref,
		fmt.Sprintf("refs/heads/%s", ref),
		fmt.Sprintf("refs/remotes/origin/%s", ref),
	}

	var lastErr error
	for _, candidate := range candidates {
		hash, err := repo.ResolveRevision(plumbing.Revision(candidate))
		if err != nil {
			lastErr = err
			continue
		}
		return repo.CommitObject(*hash)
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, fmt.Errorf("unable to resolve ref %s", ref)
}

// filePathAndStatus returns the path and status for a file patch. Renames
// report the new path.
func filePathAndStatus(fp formatdiff.FilePatch) (string, string) {
	from, to := fp.Files()

	switch {
	case from == nil && to != nil:
		return to.Path(), domain.FileStatusAdded
	case from != nil && to == nil:
		return from.Path(), domain.FileStatusRemoved
	case from != nil && to != nil:
		if from.Path() != to.Path() {
			return to.Path(), domain.FileStatusRenamed
		}
		return to.Path(), domain.FileStatusModified
	default:
		return "", domain.FileStatusModified
	}
}

// isBinaryPatch checks if a patch represents a binary file. Git uses
// "Binary files ... differ" or "GIT binary patch" for binary files. Only
// lines starting with those markers count, so diff content mentioning
// them does not trigger.
func isBinaryPatch(patchText string) bool {
	for _, line := range strings.Split(patchText, "\n") {
		if strings.HasPrefix(line, "Binary files ") || strings.HasPrefix(line, "GIT binary patch") {
			return true
		}
	}
	return false
}

func encodeFilePatch(fp formatdiff.FilePatch) (string, error) {
	var buf bytes.Buffer
	encoder := formatdiff.NewUnifiedEncoder(&buf, formatdiff.DefaultContextLines)
	if err := encoder.Encode(singlePatch{fp: fp}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

type singlePatch struct {
	fp formatdiff.FilePatch
}

func (s singlePatch) FilePatches() []formatdiff.FilePatch {
	return []formatdiff.FilePatch{s.fp}
}

func (s singlePatch) Message() string {
	return ""
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
