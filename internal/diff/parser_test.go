package diff_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/kestrelci/reviewbot/internal/diff"
)

func TestNewFileLines_SingleHunk(t *testing.T) {
	patch := `@@ -1,3 +1,4 @@
 line1
+line2
 line3
 line4
`

	got, err := diff.NewFileLines(patch)
	if err != nil {
		t.Fatalf("NewFileLines() error = %v", err)
	}

	want := []int{1, 2, 3, 4}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NewFileLines() = %v, want %v", got, want)
	}
}

func TestNewFileLines_DeletionsDoNotAdvance(t *testing.T) {
	patch := `@@ -10,3 +10,2 @@ func example() {
 context line 10
-deleted line
 context line 11
`

	got, err := diff.NewFileLines(patch)
	if err != nil {
		t.Fatalf("NewFileLines() error = %v", err)
	}

	// The deletion has no new-file coordinate; the line after it
	// continues from 11.
	want := []int{10, 11}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NewFileLines() = %v, want %v", got, want)
	}
}

func TestNewFileLines_MultipleHunks(t *testing.T) {
	patch := `@@ -10,2 +10,3 @@ func first() {
 context 10
+added 11
@@ -20,2 +21,3 @@ func second() {
 context 21
+added 22
`

	got, err := diff.NewFileLines(patch)
	if err != nil {
		t.Fatalf("NewFileLines() error = %v", err)
	}

	want := []int{10, 11, 21, 22}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NewFileLines() = %v, want %v", got, want)
	}
}

func TestNewFileLines_AdditionsOnly(t *testing.T) {
	// New file - all additions
	patch := `@@ -0,0 +1,3 @@
+line one
+line two
+line three
`

	got, err := diff.NewFileLines(patch)
	if err != nil {
		t.Fatalf("NewFileLines() error = %v", err)
	}

	want := []int{1, 2, 3}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NewFileLines() = %v, want %v", got, want)
	}
}

func TestNewFileLines_DeletedFile(t *testing.T) {
	patch := `@@ -1,3 +0,0 @@
-line one
-line two
-line three
`

	got, err := diff.NewFileLines(patch)
	if err != nil {
		t.Fatalf("NewFileLines() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no new-file lines for deleted file, got %v", got)
	}
}

func TestNewFileLines_EmptyPatch(t *testing.T) {
	got, err := diff.NewFileLines("")
	if err != nil {
		t.Fatalf("NewFileLines() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty result for empty patch, got %v", got)
	}
}

func TestNewFileLines_WithFileHeaders(t *testing.T) {
	patch := `diff --git a/file.go b/file.go
index 1234567..abcdefg 100644
--- a/file.go
+++ b/file.go
@@ -10,3 +10,4 @@ func example() {
 context
+added
 more context
`

	got, err := diff.NewFileLines(patch)
	if err != nil {
		t.Fatalf("NewFileLines() error = %v", err)
	}

	want := []int{10, 11, 12}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NewFileLines() = %v, want %v", got, want)
	}
}

func TestNewFileLines_NoNewlineAtEOF(t *testing.T) {
	patch := `@@ -1,2 +1,2 @@
 line one
-line two
\ No newline at end of file
+line two modified
\ No newline at end of file
`

	got, err := diff.NewFileLines(patch)
	if err != nil {
		t.Fatalf("NewFileLines() error = %v", err)
	}

	want := []int{1, 2}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NewFileLines() = %v, want %v", got, want)
	}
}

func TestNewFileLines_ContentBeforeHunkHeader(t *testing.T) {
	tests := []struct {
		name  string
		patch string
	}{
		{"addition first", "+orphan line\n@@ -1,1 +1,2 @@\n context\n"},
		{"context first", " orphan context\n"},
		{"deletion first", "-orphan deletion\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := diff.NewFileLines(tt.patch)
			if !errors.Is(err, diff.ErrMalformedPatch) {
				t.Errorf("NewFileLines() error = %v, want ErrMalformedPatch", err)
			}
		})
	}
}

func TestNewFileLines_MalformedHunkHeader(t *testing.T) {
	patch := `@@ garbage @@
 context
`

	_, err := diff.NewFileLines(patch)
	if !errors.Is(err, diff.ErrMalformedPatch) {
		t.Errorf("NewFileLines() error = %v, want ErrMalformedPatch", err)
	}
}
