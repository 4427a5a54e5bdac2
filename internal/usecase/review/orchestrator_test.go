package review_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelci/reviewbot/internal/domain"
	"github.com/kestrelci/reviewbot/internal/usecase/review"
)

type stubSource struct {
	files  []domain.ChangedFile
	author string
	err    error
}

func (s *stubSource) ChangedFiles(ctx context.Context) ([]domain.ChangedFile, error) {
	return s.files, s.err
}

func (s *stubSource) Author(ctx context.Context) (string, error) {
	return s.author, nil
}

type stubContents struct {
	mu      sync.Mutex
	byPath  map[string]domain.FileContent
	fetched []string
}

func (s *stubContents) FileLines(ctx context.Context, path string) (domain.FileContent, error) {
	s.mu.Lock()
	s.fetched = append(s.fetched, path)
	s.mu.Unlock()

	if c, ok := s.byPath[path]; ok {
		return c, nil
	}
	return domain.FileContent{}, errors.New("not found")
}

type stubModel struct {
	response string
	prompt   string
}

func (s *stubModel) Generate(ctx context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.response, nil
}

type stubSubmitter struct {
	review       *domain.Review
	reviewErr    error
	fallbackBody string
}

func (s *stubSubmitter) SubmitReview(ctx context.Context, r domain.Review) error {
	if s.reviewErr != nil {
		return s.reviewErr
	}
	s.review = &r
	return nil
}

func (s *stubSubmitter) SubmitFallback(ctx context.Context, body string) error {
	s.fallbackBody = body
	return nil
}

type stubStore struct {
	runs []review.RunRecord
}

func (s *stubStore) RecordRun(ctx context.Context, run review.RunRecord) error {
	s.runs = append(s.runs, run)
	return nil
}

func newFixture(modelResponse string) (*review.Orchestrator, *stubModel, *stubSubmitter, *stubStore) {
	source := &stubSource{
		files: []domain.ChangedFile{
			{
				Path:   "a.go",
				Status: domain.FileStatusModified,
				Patch:  "@@ -1,3 +1,4 @@\n line1\n+line2\n line3\n line4\n",
			},
		},
		author: "human",
	}
	contents := &stubContents{byPath: map[string]domain.FileContent{
		"a.go": {Known: true, Lines: []string{"line1", "line2", "line3", "line4"}},
	}}
	model := &stubModel{response: modelResponse}
	submitter := &stubSubmitter{}
	store := &stubStore{}

	orch := review.NewOrchestrator(review.Dependencies{
		Source:    source,
		Contents:  contents,
		Model:     model,
		Submitter: submitter,
		Store:     store,
	})
	return orch, model, submitter, store
}

func testConfig() review.Config {
	return review.Config{
		ContextRadius:   2,
		MaxContextLines: 100,
		Actor:           "reviewbot[bot]",
		Repository:      "kestrelci/reviewbot",
		PullNumber:      7,
		Model:           "test-model",
	}
}

func TestRun_HappyPath(t *testing.T) {
	resp := "```json\n{\"conclusion\":\"REQUEST_CHANGES\",\"summary\":\"needs work\",\"comments\":[{\"filepath\":\"a.go\",\"start_line\":2,\"comment\":\"rename this\"}]}\n```"
	orch, model, submitter, store := newFixture(resp)

	result, err := orch.Run(context.Background(), testConfig())
	require.NoError(t, err)

	assert.Equal(t, domain.VerdictRequestChanges, result.Verdict)
	assert.Equal(t, 1, result.CommentsPosted)
	assert.False(t, result.FellBack)

	require.NotNil(t, submitter.review)
	assert.Equal(t, "needs work", submitter.review.Summary)
	require.Len(t, submitter.review.Comments, 1)
	assert.Equal(t, 2, submitter.review.Comments[0].Line)

	// The prompt carries the numbered excerpt for the changed file.
	assert.Contains(t, model.prompt, "File: a.go (Modified)")
	assert.Contains(t, model.prompt, "2: line2")

	require.Len(t, store.runs, 1)
	assert.Equal(t, "REQUEST_CHANGES", store.runs[0].Verdict)
}

func TestRun_UnparseableResponseFallsBackToRawText(t *testing.T) {
	raw := "I am unable to produce JSON today."
	orch, _, submitter, store := newFixture(raw)

	result, err := orch.Run(context.Background(), testConfig())
	require.NoError(t, err)

	assert.True(t, result.FellBack)
	assert.Nil(t, submitter.review)
	assert.Equal(t, raw, submitter.fallbackBody)
	require.Len(t, store.runs, 1)
	assert.True(t, store.runs[0].FellBack)
}

func TestRun_RejectedReviewFlattens(t *testing.T) {
	resp := `{"conclusion":"APPROVE","summary":"fine overall","comments":[{"filepath":"a.go","start_line":2,"comment":"nit"}]}`
	orch, _, submitter, _ := newFixture(resp)
	submitter.reviewErr = errors.New("422 unprocessable")

	result, err := orch.Run(context.Background(), testConfig())
	require.NoError(t, err)

	assert.True(t, result.FellBack)
	assert.Contains(t, submitter.fallbackBody, "fine overall")
	assert.Contains(t, submitter.fallbackBody, "a.go")
}

func TestRun_EmptyReviewSkipsSubmission(t *testing.T) {
	resp := `{"conclusion":"APPROVE","summary":"","comments":[]}`
	orch, _, submitter, store := newFixture(resp)

	result, err := orch.Run(context.Background(), testConfig())
	require.NoError(t, err)

	assert.True(t, result.Skipped)
	assert.Nil(t, submitter.review)
	assert.Empty(t, submitter.fallbackBody)
	require.Len(t, store.runs, 1)
	assert.True(t, store.runs[0].Skipped)
}

func TestRun_SelfReviewForcedToComment(t *testing.T) {
	resp := `{"conclusion":"REQUEST_CHANGES","summary":"blocking","comments":[]}`
	orch, _, submitter, _ := newFixture(resp)

	cfg := testConfig()
	cfg.Actor = "human" // same as the stub source's author

	_, err := orch.Run(context.Background(), cfg)
	require.NoError(t, err)

	require.NotNil(t, submitter.review)
	assert.Equal(t, domain.VerdictComment, submitter.review.Verdict)
}

func TestRun_MalformedPatchFileIsSkipped(t *testing.T) {
	source := &stubSource{
		files: []domain.ChangedFile{
			{Path: "bad.go", Status: domain.FileStatusModified, Patch: "+orphan line\n"},
			{Path: "ok.go", Status: domain.FileStatusModified, Patch: "@@ -1,1 +1,2 @@\n keep\n+new\n"},
		},
	}
	contents := &stubContents{byPath: map[string]domain.FileContent{
		"bad.go": {Known: true, Lines: []string{"orphan line"}},
		"ok.go":  {Known: true, Lines: []string{"keep", "new"}},
	}}
	model := &stubModel{response: `{"conclusion":"APPROVE","summary":"ok","comments":[]}`}
	submitter := &stubSubmitter{}

	orch := review.NewOrchestrator(review.Dependencies{
		Source:    source,
		Contents:  contents,
		Model:     model,
		Submitter: submitter,
	})

	_, err := orch.Run(context.Background(), testConfig())
	require.NoError(t, err)

	assert.NotContains(t, model.prompt, "File: bad.go")
	assert.Contains(t, model.prompt, "File: ok.go")
}

func TestRun_UnavailableContentRendersFilenameOnly(t *testing.T) {
	source := &stubSource{
		files: []domain.ChangedFile{
			{Path: "mystery.go", Status: domain.FileStatusModified, Patch: "@@ -1,1 +1,2 @@\n a\n+b\n"},
		},
	}
	contents := &stubContents{byPath: map[string]domain.FileContent{}}
	model := &stubModel{response: `{"conclusion":"APPROVE","summary":"ok","comments":[]}`}

	orch := review.NewOrchestrator(review.Dependencies{
		Source:    source,
		Contents:  contents,
		Model:     model,
		Submitter: &stubSubmitter{},
	})

	_, err := orch.Run(context.Background(), testConfig())
	require.NoError(t, err)

	assert.Contains(t, model.prompt, "File: mystery.go (Modified)")
	// No numbered lines for a file without content.
	for _, line := range strings.Split(model.prompt, "\n") {
		if strings.HasPrefix(line, "1: ") {
			t.Fatalf("unexpected numbered line for unknown content: %q", line)
		}
	}
}

func TestFlattenReview(t *testing.T) {
	body := review.FlattenReview(domain.Review{
		Summary: "overall summary",
		Comments: []domain.ReviewComment{
			{Path: "a.go", Line: 3, Body: "single"},
			{Path: "b.go", Line: 9, StartLine: 5, Body: "ranged"},
		},
	})

	assert.Contains(t, body, "overall summary")
	assert.Contains(t, body, "**a.go** line 3: single")
	assert.Contains(t, body, "**b.go** lines 5-9: ranged")
}
