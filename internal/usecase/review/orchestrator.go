// Package review implements the diff-to-context extraction and
// review-comment normalization pipeline: unified-diff patches in, bounded
// line-addressed excerpts out to the model, and the model's freeform output
// back into bounds-checked review comments.
package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kestrelci/reviewbot/internal/adapter/llm"
	"github.com/kestrelci/reviewbot/internal/diff"
	"github.com/kestrelci/reviewbot/internal/domain"
)

// contentFetchLimit bounds how many file-content requests run concurrently.
const contentFetchLimit = 4

// ChangeSource supplies the change-set under review.
type ChangeSource interface {
	// ChangedFiles returns every changed file, patch included when one exists.
	ChangedFiles(ctx context.Context) ([]domain.ChangedFile, error)

	// Author returns the username of the change author, or "" when the
	// source has no author concept (local diffs).
	Author(ctx context.Context) (string, error)
}

// ContentSource retrieves full file text at the head revision. A file that
// cannot be retrieved (deleted, binary, unreadable) is reported as
// FileContent{Known: false}, never as an error that stops the run.
type ContentSource interface {
	FileLines(ctx context.Context, path string) (domain.FileContent, error)
}

// ModelClient invokes the model with an assembled prompt and returns its
// raw text output. No structural guarantee is made about the response.
type ModelClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Submitter posts the finished review. SubmitFallback posts a single
// flattened text comment; it is used when the structured submission is
// rejected or when the model output could not be parsed at all.
type Submitter interface {
	SubmitReview(ctx context.Context, review domain.Review) error
	SubmitFallback(ctx context.Context, body string) error
}

// Store records run history. A nil Store disables recording.
type Store interface {
	RecordRun(ctx context.Context, run RunRecord) error
}

// RunRecord is one row of run history.
type RunRecord struct {
	Repository string
	PullNumber int
	Verdict    string
	Comments   int
	Model      string
	FellBack   bool
	Skipped    bool
	CreatedAt  time.Time
}

// Config carries the pipeline constants for one run. It is passed
// explicitly so tests can pin every knob; the orchestrator reads no
// ambient state.
type Config struct {
	ContextRadius   int
	MaxContextLines int
	Actor           string // username the bot acts as; enables self-review detection
	Guidelines      string // pre-selected guideline text for the prompt
	Repository      string
	PullNumber      int
	Model           string // recorded in run history only
}

// Dependencies captures the collaborators for the orchestrator.
type Dependencies struct {
	Source    ChangeSource
	Contents  ContentSource
	Model     ModelClient
	Submitter Submitter
	Store     Store  // optional
	Logger    Logger // optional
}

// Orchestrator drives one review run end to end.
type Orchestrator struct {
	deps Dependencies
}

// NewOrchestrator constructs an orchestrator from its collaborators.
func NewOrchestrator(deps Dependencies) *Orchestrator {
	return &Orchestrator{deps: deps}
}

// Result summarizes what a run did.
type Result struct {
	Verdict        domain.Verdict
	CommentsPosted int
	FellBack       bool // raw text or flattened comment was posted instead of a structured review
	Skipped        bool // nothing to submit
}

// Run executes the pipeline: map patches to new-file lines, build bounded
// context windows, render snippets, call the model, recover and normalize
// its output, and submit the review.
//
// Per-file failures (malformed patch, unavailable content) and per-comment
// validation failures are contained; partial success is the normal case.
// Only response-level unparseability changes the flow, and even that
// degrades to posting the raw text rather than losing the review.
func (o *Orchestrator) Run(ctx context.Context, cfg Config) (Result, error) {
	files, err := o.deps.Source.ChangedFiles(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("fetch changed files: %w", err)
	}
	if len(files) == 0 {
		logInfo(ctx, o.deps.Logger, "no changed files; nothing to review", nil)
		return o.finish(ctx, cfg, Result{Skipped: true})
	}

	author, err := o.deps.Source.Author(ctx)
	if err != nil {
		logWarning(ctx, o.deps.Logger, "could not resolve change author", fields("error", err.Error()))
		author = ""
	}

	contents := o.fetchContents(ctx, files)
	contextBlock := o.buildContext(ctx, cfg, files, contents)

	prompt, err := BuildPrompt(PromptData{
		Repository: cfg.Repository,
		Guidelines: cfg.Guidelines,
		Context:    contextBlock,
	})
	if err != nil {
		return Result{}, err
	}

	rawText, err := o.deps.Model.Generate(ctx, prompt)
	if err != nil {
		return Result{}, fmt.Errorf("model invocation: %w", err)
	}

	raw, err := llm.Recover(rawText)
	if err != nil {
		var unparseable *llm.UnparseableError
		if !errors.As(err, &unparseable) {
			return Result{}, err
		}
		// No structured data left to salvage; post the model's own words.
		logWarning(ctx, o.deps.Logger, "model response unparseable, posting raw text", fields("bytes", len(unparseable.Raw)))
		if err := o.deps.Submitter.SubmitFallback(ctx, unparseable.Raw); err != nil {
			return Result{}, fmt.Errorf("fallback submission: %w", err)
		}
		return o.finish(ctx, cfg, Result{FellBack: true})
	}

	review, err := BuildReview(raw, contents, cfg.Actor, author)
	if err != nil {
		if errors.Is(err, ErrEmptyReview) {
			logInfo(ctx, o.deps.Logger, "empty review after normalization; skipping submission", nil)
			return o.finish(ctx, cfg, Result{Skipped: true})
		}
		return Result{}, err
	}

	result := Result{Verdict: review.Verdict, CommentsPosted: len(review.Comments)}

	if err := o.deps.Submitter.SubmitReview(ctx, review); err != nil {
		// The remote may reject anchors it judges invalid despite local
		// validation; flatten everything into one text comment instead.
		logWarning(ctx, o.deps.Logger, "structured review rejected, posting flattened comment", fields("error", err.Error()))
		if err := o.deps.Submitter.SubmitFallback(ctx, FlattenReview(review)); err != nil {
			return Result{}, fmt.Errorf("fallback submission: %w", err)
		}
		result.FellBack = true
	}

	return o.finish(ctx, cfg, result)
}

// fetchContents retrieves full file text for every changed file, fanning
// out across files. Each file is independent, so order does not matter.
// Failures degrade to Known=false: the file renders filename-only and its
// comments skip length validation.
//
// The returned map has an entry for every changed file; its key set is the
// authority on which files were part of the change.
func (o *Orchestrator) fetchContents(ctx context.Context, files []domain.ChangedFile) map[string]domain.FileContent {
	fetched := make([]domain.FileContent, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(contentFetchLimit)
	for i, f := range files {
		g.Go(func() error {
			content, err := o.deps.Contents.FileLines(gctx, f.Path)
			if err != nil {
				logWarning(gctx, o.deps.Logger, "file content unavailable", fields("path", f.Path, "error", err.Error()))
				content = domain.FileContent{}
			}
			fetched[i] = content
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; degradation is per-file

	contents := make(map[string]domain.FileContent, len(files))
	for i, f := range files {
		contents[f.Path] = fetched[i]
	}
	return contents
}

// buildContext maps each file's patch to addressable new-file lines,
// expands them into bounded windows, and renders the combined excerpt.
func (o *Orchestrator) buildContext(ctx context.Context, cfg Config, files []domain.ChangedFile, contents map[string]domain.FileContent) string {
	var blocks []string

	for _, f := range files {
		if !f.HasPatch() {
			continue
		}

		seeds, err := diff.NewFileLines(f.Patch)
		if err != nil {
			logWarning(ctx, o.deps.Logger, "skipping file with malformed patch", fields("path", f.Path, "error", err.Error()))
			continue
		}
		if len(seeds) == 0 {
			continue
		}

		content := contents[f.Path]
		if !content.Known {
			// Filename-only context.
			blocks = append(blocks, RenderSnippet(f, content, nil))
			continue
		}

		window := BuildContextWindow(seeds, cfg.ContextRadius, len(content.Lines), cfg.MaxContextLines)
		blocks = append(blocks, RenderSnippet(f, content, window))
	}

	return JoinSnippets(blocks)
}

// FlattenReview renders a structured review as one text comment for the
// fallback submission path.
func FlattenReview(review domain.Review) string {
	var sb strings.Builder
	sb.WriteString(review.Summary)

	for _, c := range review.Comments {
		sb.WriteString("\n\n")
		if c.IsRange() {
			sb.WriteString(fmt.Sprintf("**%s** lines %d-%d: %s", c.Path, c.StartLine, c.Line, c.Body))
		} else {
			sb.WriteString(fmt.Sprintf("**%s** line %d: %s", c.Path, c.Line, c.Body))
		}
	}

	return strings.TrimSpace(sb.String())
}

// finish records run history (best effort) and returns the result.
func (o *Orchestrator) finish(ctx context.Context, cfg Config, result Result) (Result, error) {
	if o.deps.Store == nil {
		return result, nil
	}

	record := RunRecord{
		Repository: cfg.Repository,
		PullNumber: cfg.PullNumber,
		Verdict:    string(result.Verdict),
		Comments:   result.CommentsPosted,
		Model:      cfg.Model,
		FellBack:   result.FellBack,
		Skipped:    result.Skipped,
		CreatedAt:  time.Now().UTC(),
	}
	if err := o.deps.Store.RecordRun(ctx, record); err != nil {
		logWarning(ctx, o.deps.Logger, "failed to record run history", fields("error", err.Error()))
	}

	return result, nil
}

// fields builds a log field map from alternating key/value pairs.
func fields(kv ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		m[key] = kv[i+1]
	}
	return m
}
