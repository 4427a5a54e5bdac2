package llm_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelci/reviewbot/internal/adapter/llm"
)

func TestRecover_CleanJSON(t *testing.T) {
	raw, err := llm.Recover(`{"conclusion":"APPROVE","comments":[]}`)
	require.NoError(t, err)
	assert.Equal(t, "APPROVE", raw.Conclusion)
	assert.Empty(t, raw.Comments)
}

func TestRecover_FencedWithProse(t *testing.T) {
	text := "Here you go:\n```json\n{\"conclusion\":\"APPROVE\",\"comments\":[]}\n```"

	raw, err := llm.Recover(text)
	require.NoError(t, err)
	assert.Equal(t, "APPROVE", raw.Conclusion)
	assert.Empty(t, raw.Comments)
}

func TestRecover_UntaggedFence(t *testing.T) {
	text := "```\n{\"conclusion\":\"REQUEST_CHANGES\",\"summary\":\"needs work\",\"comments\":[]}\n```"

	raw, err := llm.Recover(text)
	require.NoError(t, err)
	assert.Equal(t, "REQUEST_CHANGES", raw.Conclusion)
	assert.Equal(t, "needs work", raw.Summary)
}

func TestRecover_ProseAroundBareObject(t *testing.T) {
	text := `Sure! The review is: {"conclusion":"APPROVE","comments":[]} Hope that helps.`

	raw, err := llm.Recover(text)
	require.NoError(t, err)
	assert.Equal(t, "APPROVE", raw.Conclusion)
}

func TestRecover_CommentFields(t *testing.T) {
	text := `{"conclusion":"REQUEST_CHANGES","comments":[{"filepath":"a.go","start_line":3,"end_line":5,"comment":"tighten this up"}]}`

	raw, err := llm.Recover(text)
	require.NoError(t, err)
	require.Len(t, raw.Comments, 1)
	assert.Equal(t, "a.go", raw.Comments[0].Filepath)
	assert.Equal(t, float64(3), raw.Comments[0].StartLine)
	assert.Equal(t, "tighten this up", raw.Comments[0].Comment)
}

func TestRecover_RepairsTrailingComma(t *testing.T) {
	text := `{"conclusion":"APPROVE","comments":[{"filepath":"a.go","start_line":1,"comment":"nit",}],}`

	raw, err := llm.Recover(text)
	require.NoError(t, err)
	require.Len(t, raw.Comments, 1)
	assert.Equal(t, "a.go", raw.Comments[0].Filepath)
}

func TestRecover_Unparseable(t *testing.T) {
	text := "I could not produce a review this time, sorry."

	_, err := llm.Recover(text)
	require.Error(t, err)

	var unparseable *llm.UnparseableError
	require.True(t, errors.As(err, &unparseable))
	assert.Equal(t, text, unparseable.Raw)
}

func TestRecover_NestedFenceInComment(t *testing.T) {
	// A fenced example inside a comment body must not terminate extraction
	// early; the greedy fence match reaches the outermost closing fence.
	text := "```json\n{\"conclusion\":\"APPROVE\",\"comments\":[{\"filepath\":\"a.go\",\"start_line\":1,\"comment\":\"try:\\n```go\\nx := 1\\n```\"}]}\n```"

	raw, err := llm.Recover(text)
	require.NoError(t, err)
	require.Len(t, raw.Comments, 1)
	assert.Contains(t, raw.Comments[0].Comment, "x := 1")
}
