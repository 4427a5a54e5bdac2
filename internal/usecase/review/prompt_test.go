package review_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelci/reviewbot/internal/usecase/review"
)

func TestBuildPrompt(t *testing.T) {
	got, err := review.BuildPrompt(review.PromptData{
		Repository: "kestrelci/reviewbot",
		Guidelines: "Prefer early returns.",
		Context:    "File: a.go (Modified)\n1: package a",
	})
	require.NoError(t, err)

	assert.Contains(t, got, "Repository: kestrelci/reviewbot")
	assert.Contains(t, got, "Prefer early returns.")
	assert.Contains(t, got, "File: a.go (Modified)")
	assert.Contains(t, got, `"conclusion"`)
}

func TestBuildPrompt_OmitsEmptySections(t *testing.T) {
	got, err := review.BuildPrompt(review.PromptData{Context: "(no file context available)"})
	require.NoError(t, err)

	assert.NotContains(t, got, "Repository:")
	assert.NotContains(t, got, "## Review Guidelines")
	assert.Contains(t, got, "(no file context available)")
}
