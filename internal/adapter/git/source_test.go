package git_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	goGit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/kestrelci/reviewbot/internal/adapter/git"
	"github.com/kestrelci/reviewbot/internal/domain"
)

func TestChangedFilesBetweenBranches(t *testing.T) {
	ctx := context.Background()
	tmp := t.TempDir()

	repo, err := goGit.PlainInit(tmp, false)
	if err != nil {
		t.Fatalf("failed to init repo: %v", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("failed to get worktree: %v", err)
	}

	writeFile(t, tmp, "main.go", "package main\n\nfunc main() {\n\tprintln(\"hello\")\n}\n")
	if _, err := worktree.Add("main.go"); err != nil {
		t.Fatalf("add error: %v", err)
	}
	if _, err := worktree.Commit("initial", &goGit.CommitOptions{Author: defaultSignature()}); err != nil {
		t.Fatalf("commit error: %v", err)
	}

	if err := checkoutBranch(worktree, "feature"); err != nil {
		t.Fatalf("checkout error: %v", err)
	}
	writeFile(t, tmp, "main.go", "package main\n\nfunc main() {\n\tprintln(\"feature\")\n}\n")
	writeFile(t, tmp, "extra.go", "package main\n")
	if _, err := worktree.Add("main.go"); err != nil {
		t.Fatalf("add error: %v", err)
	}
	if _, err := worktree.Add("extra.go"); err != nil {
		t.Fatalf("add error: %v", err)
	}
	if _, err := worktree.Commit("feature change", &goGit.CommitOptions{Author: defaultSignature()}); err != nil {
		t.Fatalf("feature commit error: %v", err)
	}

	source := git.NewSource(tmp, "master", "feature")
	files, err := source.ChangedFiles(ctx)
	if err != nil {
		t.Fatalf("ChangedFiles returned error: %v", err)
	}

	if len(files) != 2 {
		t.Fatalf("expected 2 changed files, got %d", len(files))
	}

	byPath := map[string]domain.ChangedFile{}
	for _, f := range files {
		byPath[f.Path] = f
	}

	mainFile, ok := byPath["main.go"]
	if !ok {
		t.Fatalf("expected main.go in changed files: %+v", files)
	}
	if mainFile.Status != domain.FileStatusModified {
		t.Fatalf("expected modified status, got %s", mainFile.Status)
	}
	if !strings.Contains(mainFile.Patch, "+\tprintln(\"feature\")") {
		t.Fatalf("expected patch to include the change: %s", mainFile.Patch)
	}

	extraFile, ok := byPath["extra.go"]
	if !ok {
		t.Fatalf("expected extra.go in changed files: %+v", files)
	}
	if extraFile.Status != domain.FileStatusAdded {
		t.Fatalf("expected added status, got %s", extraFile.Status)
	}
}

func TestFileLinesFromTargetCommit(t *testing.T) {
	ctx := context.Background()
	tmp := t.TempDir()

	repo, err := goGit.PlainInit(tmp, false)
	if err != nil {
		t.Fatalf("failed to init repo: %v", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("failed to get worktree: %v", err)
	}

	writeFile(t, tmp, "a.txt", "one\n")
	if _, err := worktree.Add("a.txt"); err != nil {
		t.Fatalf("add error: %v", err)
	}
	if _, err := worktree.Commit("initial", &goGit.CommitOptions{Author: defaultSignature()}); err != nil {
		t.Fatalf("commit error: %v", err)
	}

	if err := checkoutBranch(worktree, "feature"); err != nil {
		t.Fatalf("checkout error: %v", err)
	}
	writeFile(t, tmp, "a.txt", "one\ntwo\nthree\n")
	if _, err := worktree.Add("a.txt"); err != nil {
		t.Fatalf("add error: %v", err)
	}
	if _, err := worktree.Commit("extend", &goGit.CommitOptions{Author: defaultSignature()}); err != nil {
		t.Fatalf("commit error: %v", err)
	}

	source := git.NewSource(tmp, "master", "feature")
	if _, err := source.ChangedFiles(ctx); err != nil {
		t.Fatalf("ChangedFiles returned error: %v", err)
	}

	content, err := source.FileLines(ctx, "a.txt")
	if err != nil {
		t.Fatalf("FileLines returned error: %v", err)
	}
	if !content.Known {
		t.Fatal("expected content to be known")
	}
	if content.LineCount() != 3 {
		t.Fatalf("expected 3 lines, got %d", content.LineCount())
	}
	if content.Lines[1] != "two" {
		t.Fatalf("expected second line %q, got %q", "two", content.Lines[1])
	}

	missing, err := source.FileLines(ctx, "nope.txt")
	if err != nil {
		t.Fatalf("FileLines for missing file returned error: %v", err)
	}
	if missing.Known {
		t.Fatal("expected missing file to be unavailable")
	}
}

func TestFileLinesBeforeChangedFiles(t *testing.T) {
	source := git.NewSource(t.TempDir(), "master", "feature")
	if _, err := source.FileLines(context.Background(), "a.txt"); err == nil {
		t.Fatal("expected error before target ref is resolved")
	}
}

func TestAuthorIsEmptyForLocalRuns(t *testing.T) {
	source := git.NewSource(t.TempDir(), "master", "feature")
	author, err := source.Author(context.Background())
	if err != nil {
		t.Fatalf("Author returned error: %v", err)
	}
	if author != "" {
		t.Fatalf("expected empty author, got %q", author)
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatalf("write file error: %v", err)
	}
}

func defaultSignature() *object.Signature {
	return &object.Signature{
		Name:  "Test",
		Email: "test@example.com",
		When:  time.Unix(0, 0),
	}
}

func checkoutBranch(worktree *goGit.Worktree, branch string) error {
	return worktree.Checkout(&goGit.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
		Create: true,
	})
}
