package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/kestrelci/reviewbot/internal/adapter/cli"
	gitadapter "github.com/kestrelci/reviewbot/internal/adapter/git"
	githubadapter "github.com/kestrelci/reviewbot/internal/adapter/github"
	"github.com/kestrelci/reviewbot/internal/adapter/llm/anthropic"
	"github.com/kestrelci/reviewbot/internal/adapter/observability"
	"github.com/kestrelci/reviewbot/internal/adapter/store/sqlite"
	"github.com/kestrelci/reviewbot/internal/config"
	"github.com/kestrelci/reviewbot/internal/domain"
	"github.com/kestrelci/reviewbot/internal/usecase/review"
)

// version is injected at build time via ldflags.
var version = "v0.0.0-dev"

func main() {
	if err := run(); err != nil {
		if errors.Is(err, cli.ErrVersionRequested) {
			return
		}
		log.Println(err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(config.LoaderOptions{
		ConfigPaths: defaultConfigPaths(),
		FileName:    "reviewbot",
		EnvPrefix:   "REVIEWBOT",
	})
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	logger := buildLogger(cfg.Logging)
	store := buildStore(cfg.Store)
	if store != nil {
		defer store.Close()
	}

	guidelines, err := loadGuidelines(cfg.Review)
	if err != nil {
		log.Printf("warning: %v", err)
	}

	runPR := func(ctx context.Context, req cli.PRRequest) (review.Result, error) {
		if cfg.GitHub.Token == "" {
			return review.Result{}, fmt.Errorf("github token not configured; set github.token or REVIEWBOT_GITHUB_TOKEN")
		}
		if cfg.Anthropic.APIKey == "" {
			return review.Result{}, fmt.Errorf("anthropic API key not configured; set anthropic.apiKey or REVIEWBOT_ANTHROPIC_APIKEY")
		}

		client := githubadapter.NewClient(cfg.GitHub.Token, req.Owner, req.Repo, req.Number)
		model := anthropic.NewClient(cfg.Anthropic.APIKey, cfg.Anthropic.Model)

		orch := review.NewOrchestrator(review.Dependencies{
			Source:    client,
			Contents:  client,
			Model:     model,
			Submitter: client,
			Store:     storeOrNil(store),
			Logger:    logger,
		})

		return orch.Run(ctx, review.Config{
			ContextRadius:   req.ContextRadius,
			MaxContextLines: req.MaxContextLines,
			Actor:           cfg.Review.BotUsername,
			Guidelines:      guidelines,
			Repository:      req.Owner + "/" + req.Repo,
			PullNumber:      req.Number,
			Model:           cfg.Anthropic.Model,
		})
	}

	runLocal := func(ctx context.Context, req cli.LocalRequest) (review.Result, error) {
		if cfg.Anthropic.APIKey == "" {
			return review.Result{}, fmt.Errorf("anthropic API key not configured; set anthropic.apiKey or REVIEWBOT_ANTHROPIC_APIKEY")
		}

		source := gitadapter.NewSource(req.RepositoryDir, req.BaseRef, req.TargetRef)
		model := anthropic.NewClient(cfg.Anthropic.APIKey, cfg.Anthropic.Model)

		orch := review.NewOrchestrator(review.Dependencies{
			Source:    source,
			Contents:  source,
			Model:     model,
			Submitter: &terminalSubmitter{},
			Store:     storeOrNil(store),
			Logger:    logger,
		})

		return orch.Run(ctx, review.Config{
			ContextRadius:   req.ContextRadius,
			MaxContextLines: req.MaxContextLines,
			Actor:           cfg.Review.BotUsername,
			Guidelines:      guidelines,
			Repository:      repositoryName(req.RepositoryDir),
			Model:           cfg.Anthropic.Model,
		})
	}

	root := cli.NewRootCommand(cli.Dependencies{
		RunPR:    runPR,
		RunLocal: runLocal,
		Defaults: cli.Defaults{
			ContextRadius:   cfg.Review.ContextRadius,
			MaxContextLines: cfg.Review.MaxContextLines,
			RepositoryDir:   cfg.Git.RepositoryDir,
		},
		Version: version,
	})

	return root.ExecuteContext(ctx)
}

// buildLogger picks JSON output when stdout is not a terminal, unless the
// config pins a format.
func buildLogger(cfg config.LoggingConfig) *observability.Logger {
	format := observability.FormatHuman
	switch cfg.Format {
	case "json":
		format = observability.FormatJSON
	case "human":
	default:
		if !review.IsOutputTerminal() {
			format = observability.FormatJSON
		}
	}
	return observability.NewLogger(observability.ParseLevel(cfg.Level), format, os.Stderr)
}

// buildStore initializes run history. Store failures degrade to no
// recording rather than blocking the review.
func buildStore(cfg config.StoreConfig) *sqlite.Store {
	if !cfg.Enabled {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		log.Printf("warning: failed to create store directory: %v", err)
		return nil
	}

	store, err := sqlite.NewStore(cfg.Path)
	if err != nil {
		log.Printf("warning: failed to initialize store: %v", err)
		return nil
	}
	return store
}

// storeOrNil avoids handing the orchestrator a typed nil.
func storeOrNil(store *sqlite.Store) review.Store {
	if store == nil {
		return nil
	}
	return store
}

func loadGuidelines(cfg config.ReviewConfig) (string, error) {
	if cfg.GuidelinesPath == "" {
		return "", nil
	}

	sections, err := review.LoadGuidelines(cfg.GuidelinesPath)
	if err != nil {
		return "", fmt.Errorf("load guidelines: %w", err)
	}
	return review.SelectSections(sections, cfg.GuidelineSections), nil
}

// terminalSubmitter prints the review instead of posting it, for local
// dry runs.
type terminalSubmitter struct{}

func (terminalSubmitter) SubmitReview(ctx context.Context, r domain.Review) error {
	fmt.Printf("Verdict: %s\n\n%s\n", r.Verdict, review.FlattenReview(r))
	return nil
}

func (terminalSubmitter) SubmitFallback(ctx context.Context, body string) error {
	fmt.Println(body)
	return nil
}

func repositoryName(repoDir string) string {
	abs, err := filepath.Abs(repoDir)
	if err != nil {
		return repoDir
	}
	return filepath.Base(abs)
}

func defaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "reviewbot"))
	}
	return paths
}
