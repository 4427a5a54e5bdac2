// Package github implements the review pipeline's GitHub-facing ports
// using the go-github library.
package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	gh "github.com/google/go-github/v82/github"

	"github.com/kestrelci/reviewbot/internal/domain"
	"github.com/kestrelci/reviewbot/internal/usecase/review"
)

// Compile-time port satisfaction checks.
var (
	_ review.ChangeSource  = (*Client)(nil)
	_ review.ContentSource = (*Client)(nil)
	_ review.Submitter     = (*Client)(nil)
)

// Client serves changed files, file contents, and review submission for a
// single pull request.
type Client struct {
	gh     *gh.Client
	owner  string
	repo   string
	number int

	// Cached result of the first PullRequests.Get call. Guarded by mu
	// because file contents are fetched concurrently.
	mu sync.Mutex
	pr *gh.PullRequest
}

// NewClient creates a client for one pull request. The transport stack is
// go-github-ratelimit (sleeps on secondary rate limits) under go-github
// with PAT auth.
func NewClient(token, owner, repo string, number int) *Client {
	rateLimitClient := github_ratelimit.NewClient(nil)
	client := gh.NewClient(rateLimitClient).WithAuthToken(token)

	return &Client{gh: client, owner: owner, repo: repo, number: number}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and
// base URL. This constructor is intended for testing, allowing injection
// of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, owner, repo string, number int) (*Client, error) {
	client := gh.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	client.BaseURL = u

	return &Client{gh: client, owner: owner, repo: repo, number: number}, nil
}

// ChangedFiles lists the files changed by the pull request, with their
// unified diff patches. Pagination is handled here; binary files arrive
// from the API with an empty patch and are passed through as such.
func (c *Client) ChangedFiles(ctx context.Context) ([]domain.ChangedFile, error) {
	opts := &gh.ListOptions{PerPage: 100}

	var files []domain.ChangedFile
	for {
		page, resp, err := c.gh.PullRequests.ListFiles(ctx, c.owner, c.repo, c.number, opts)
		if err != nil {
			return nil, fmt.Errorf("listing files for %s/%s#%d (page %d): %w", c.owner, c.repo, c.number, opts.Page, err)
		}

		for _, f := range page {
			files = append(files, domain.ChangedFile{
				Path:   f.GetFilename(),
				Status: mapStatus(f.GetStatus()),
				Patch:  f.GetPatch(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return files, nil
}

// Author returns the login of the pull request author.
func (c *Client) Author(ctx context.Context) (string, error) {
	pr, err := c.pullRequest(ctx)
	if err != nil {
		return "", err
	}
	return pr.GetUser().GetLogin(), nil
}

// FileLines fetches the file's content at the pull request head commit and
// splits it into lines. A fetch failure is not an error: the file is
// reported as unavailable and the review proceeds without its content.
func (c *Client) FileLines(ctx context.Context, path string) (domain.FileContent, error) {
	pr, err := c.pullRequest(ctx)
	if err != nil {
		return domain.FileContent{}, err
	}

	opts := &gh.RepositoryContentGetOptions{Ref: pr.GetHead().GetSHA()}
	fileContent, _, _, err := c.gh.Repositories.GetContents(ctx, c.owner, c.repo, path, opts)
	if err != nil || fileContent == nil {
		return domain.FileContent{}, nil
	}

	text, err := fileContent.GetContent()
	if err != nil {
		return domain.FileContent{}, nil
	}

	return domain.FileContent{Known: true, Lines: splitLines(text)}, nil
}

// SubmitReview posts the review with its inline comments in a single API
// call. Comments anchor to the new side of the diff.
func (c *Client) SubmitReview(ctx context.Context, r domain.Review) error {
	pr, err := c.pullRequest(ctx)
	if err != nil {
		return err
	}

	comments := make([]*gh.DraftReviewComment, 0, len(r.Comments))
	for _, comment := range r.Comments {
		draft := &gh.DraftReviewComment{
			Path: gh.Ptr(comment.Path),
			Body: gh.Ptr(comment.Body),
			Line: gh.Ptr(comment.Line),
			Side: gh.Ptr("RIGHT"),
		}
		if comment.IsRange() {
			draft.StartLine = gh.Ptr(comment.StartLine)
			draft.StartSide = gh.Ptr("RIGHT")
		}
		comments = append(comments, draft)
	}

	req := &gh.PullRequestReviewRequest{
		CommitID: gh.Ptr(pr.GetHead().GetSHA()),
		Body:     gh.Ptr(r.Summary),
		Event:    gh.Ptr(string(r.Verdict)),
		Comments: comments,
	}

	if _, _, err := c.gh.PullRequests.CreateReview(ctx, c.owner, c.repo, c.number, req); err != nil {
		return fmt.Errorf("creating review for %s/%s#%d: %w", c.owner, c.repo, c.number, err)
	}
	return nil
}

// SubmitFallback posts the body as a plain issue comment on the pull
// request. Used when a structured review cannot be built or is rejected.
func (c *Client) SubmitFallback(ctx context.Context, body string) error {
	comment := &gh.IssueComment{Body: gh.Ptr(body)}
	if _, _, err := c.gh.Issues.CreateComment(ctx, c.owner, c.repo, c.number, comment); err != nil {
		return fmt.Errorf("creating comment on %s/%s#%d: %w", c.owner, c.repo, c.number, err)
	}
	return nil
}

func (c *Client) pullRequest(ctx context.Context) (*gh.PullRequest, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pr != nil {
		return c.pr, nil
	}

	pr, _, err := c.gh.PullRequests.Get(ctx, c.owner, c.repo, c.number)
	if err != nil {
		return nil, fmt.Errorf("fetching %s/%s#%d: %w", c.owner, c.repo, c.number, err)
	}
	c.pr = pr
	return pr, nil
}

// mapStatus converts a GitHub file status string to a domain status.
func mapStatus(status string) string {
	switch status {
	case "added", "copied":
		return domain.FileStatusAdded
	case "removed":
		return domain.FileStatusRemoved
	case "renamed":
		return domain.FileStatusRenamed
	default:
		return domain.FileStatusModified
	}
}

// splitLines splits file content into lines without a trailing phantom
// line for content ending in a newline.
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
