// Package cli wires the cobra command tree. Commands delegate to runner
// functions injected by the host process, so the tree is testable without
// real adapters.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kestrelci/reviewbot/internal/usecase/review"
)

// ErrVersionRequested indicates the user requested the CLI version and no
// further work should be done.
var ErrVersionRequested = errors.New("version requested")

// PRRequest carries the parameters for reviewing a pull request.
type PRRequest struct {
	Owner           string
	Repo            string
	Number          int
	ContextRadius   int
	MaxContextLines int
}

// LocalRequest carries the parameters for a local dry run between two refs.
type LocalRequest struct {
	RepositoryDir   string
	BaseRef         string
	TargetRef       string
	ContextRadius   int
	MaxContextLines int
}

// Defaults holds config-file values that flags may override.
type Defaults struct {
	ContextRadius   int
	MaxContextLines int
	RepositoryDir   string
}

// Arguments encapsulates IO writers injected from the host process.
type Arguments struct {
	OutWriter io.Writer
	ErrWriter io.Writer
}

// Dependencies captures the collaborators for the CLI.
type Dependencies struct {
	RunPR    func(ctx context.Context, req PRRequest) (review.Result, error)
	RunLocal func(ctx context.Context, req LocalRequest) (review.Result, error)
	Args     Arguments
	Defaults Defaults
	Version  string
}

// NewRootCommand constructs the root Cobra command.
func NewRootCommand(deps Dependencies) *cobra.Command {
	versionString := deps.Version
	if versionString == "" {
		versionString = "v0.0.0"
	}

	root := &cobra.Command{
		Use:   "reviewbot",
		Short: "Model-assisted pull request review CLI",
	}
	root.SilenceUsage = true
	root.SilenceErrors = true

	outWriter := deps.Args.OutWriter
	if outWriter == nil {
		outWriter = os.Stdout
	}
	errWriter := deps.Args.ErrWriter
	if errWriter == nil {
		errWriter = os.Stderr
	}
	root.SetOut(outWriter)
	root.SetErr(errWriter)

	reviewCmd := &cobra.Command{
		Use:   "review",
		Short: "Run a review",
	}
	reviewCmd.AddCommand(prCommand(deps))
	reviewCmd.AddCommand(localCommand(deps))
	root.AddCommand(reviewCmd)

	var showVersion bool
	root.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "Show version and exit")
	versionHandler := func(cmd *cobra.Command, args []string) error {
		if showVersion {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), versionString)
			return ErrVersionRequested
		}
		return nil
	}
	root.PersistentPreRunE = versionHandler
	root.RunE = func(cmd *cobra.Command, args []string) error {
		if err := versionHandler(cmd, args); err != nil {
			return err
		}
		return cmd.Help()
	}

	return root
}

func prCommand(deps Dependencies) *cobra.Command {
	var owner string
	var repo string
	var number int
	var contextRadius int
	var maxContextLines int

	cmd := &cobra.Command{
		Use:   "pr",
		Short: "Review a pull request and post the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			if owner == "" || repo == "" {
				return fmt.Errorf("--owner and --repo are required")
			}
			if number <= 0 {
				return fmt.Errorf("--pr must be a positive integer")
			}

			result, err := deps.RunPR(cmd.Context(), PRRequest{
				Owner:           owner,
				Repo:            repo,
				Number:          number,
				ContextRadius:   resolveInt(cmd, "context-radius", contextRadius, deps.Defaults.ContextRadius),
				MaxContextLines: resolveInt(cmd, "max-context-lines", maxContextLines, deps.Defaults.MaxContextLines),
			})
			if err != nil {
				return err
			}

			printResult(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Repository owner")
	cmd.Flags().StringVar(&repo, "repo", "", "Repository name")
	cmd.Flags().IntVar(&number, "pr", 0, "Pull request number")
	addContextFlags(cmd, &contextRadius, &maxContextLines)

	return cmd
}

func localCommand(deps Dependencies) *cobra.Command {
	var repositoryDir string
	var baseRef string
	var targetRef string
	var contextRadius int
	var maxContextLines int

	cmd := &cobra.Command{
		Use:   "local [target]",
		Short: "Dry-run a review of local changes between two refs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				targetRef = args[0]
			}
			if targetRef == "" {
				return fmt.Errorf("target ref not specified; pass as an argument or use --target")
			}

			dir := repositoryDir
			if !cmd.Flags().Changed("repository-dir") && deps.Defaults.RepositoryDir != "" {
				dir = deps.Defaults.RepositoryDir
			}

			result, err := deps.RunLocal(cmd.Context(), LocalRequest{
				RepositoryDir:   dir,
				BaseRef:         baseRef,
				TargetRef:       targetRef,
				ContextRadius:   resolveInt(cmd, "context-radius", contextRadius, deps.Defaults.ContextRadius),
				MaxContextLines: resolveInt(cmd, "max-context-lines", maxContextLines, deps.Defaults.MaxContextLines),
			})
			if err != nil {
				return err
			}

			printResult(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().StringVar(&repositoryDir, "repository-dir", ".", "Local repository directory")
	cmd.Flags().StringVar(&baseRef, "base", "main", "Base reference to diff against")
	cmd.Flags().StringVar(&targetRef, "target", "", "Target ref to review (overrides positional)")
	addContextFlags(cmd, &contextRadius, &maxContextLines)

	return cmd
}

func addContextFlags(cmd *cobra.Command, contextRadius, maxContextLines *int) {
	cmd.Flags().IntVar(contextRadius, "context-radius", 0, "Lines of context on each side of a change (0 uses config default)")
	cmd.Flags().IntVar(maxContextLines, "max-context-lines", 0, "Per-file excerpt cap (0 uses config default)")
}

func printResult(w io.Writer, result review.Result) {
	switch {
	case result.Skipped:
		_, _ = fmt.Fprintln(w, "Nothing to review.")
	case result.FellBack:
		_, _ = fmt.Fprintln(w, "Posted review as a plain comment (structured submission unavailable).")
	default:
		_, _ = fmt.Fprintf(w, "Posted %s review with %d comment(s).\n", result.Verdict, result.CommentsPosted)
	}
}

// resolveInt returns the CLI value if the flag was explicitly set and
// valid, otherwise the config default.
func resolveInt(cmd *cobra.Command, flagName string, cliValue, configDefault int) int {
	if !cmd.Flags().Changed(flagName) {
		return configDefault
	}
	if cliValue < 0 {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: negative value %d for --%s, using config default %d\n", cliValue, flagName, configDefault)
		return configDefault
	}
	return cliValue
}
