package cli

import (
	"context"
	"errors"
	"fmt"

	charmlog "github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/git-pkgs/catalog"
	"github.com/git-pkgs/catalog/internal/cache"
)

var (
	version = "dev" // set via ldflags
	commit  string
	date    string
)

// SetVersion sets the build information printed by `catalog version`.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

type rootOptions struct {
	verbose    bool
	logFormat  string
	configFile string
}

// NewRootCommand builds the command tree. Running the root command without a
// subcommand builds the registry.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "catalog",
		Short:         "Build a ranked library catalog",
		Long:          `catalog merges the published library index with live repository metadata and writes a registry ranked by popularity.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := charmlog.InfoLevel
			if opts.verbose {
				level = charmlog.DebugLevel
			}
			logger, err := newLogger(cmd.ErrOrStderr(), level, opts.logFormat)
			if err != nil {
				return err
			}
			cmd.SetContext(withLogger(cmd.Context(), logger))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, opts)
		},
	}

	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "log format: text, json or logfmt")
	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (yaml, toml or json)")
	addBuildFlags(root)

	root.AddCommand(newBuildCmd(opts))
	root.AddCommand(newVersionCmd())
	return root
}

func newBuildCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Fetch, enrich, rank and write the registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, opts)
		},
	}
	addBuildFlags(cmd)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "catalog %s\n", version)
			if commit != "" {
				_, _ = fmt.Fprintf(out, "commit: %s\n", commit)
			}
			if date != "" {
				_, _ = fmt.Fprintf(out, "built: %s\n", date)
			}
		},
	}
}

func runBuild(cmd *cobra.Command, opts *rootOptions) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd, opts.configFile)
	if err != nil {
		return err
	}

	logger := loggerFromContext(ctx).With("run", uuid.NewString())
	if cfg.GitHubToken == "" {
		logger.Warn("no GITHUB_TOKEN set, metadata lookups use the unauthenticated rate limit")
	}

	store, err := cache.Open(ctx, cfg.RedisURL, cfg.CacheDir)
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}
	defer func() { _ = store.Close() }()

	buildOpts := cfg.options()
	buildOpts.Cache = store
	buildOpts.Logger = logger

	prog := newProgress(logger)
	reg, summary, err := catalog.Build(ctx, buildOpts)
	if err != nil {
		return err
	}

	if err := catalog.Write(cfg.Output, reg); err != nil {
		return fmt.Errorf("writing registry: %w", err)
	}

	prog.done("registry written",
		"output", cfg.Output,
		"entries", summary.Entries,
		"skipped_entries", summary.SkippedEntries,
		"malformed_entries", summary.Malformed,
		"libraries", summary.Packages,
		"enriched", summary.Enrichment.Enriched,
		"not_found", summary.Enrichment.NotFound,
		"rate_limited", summary.Enrichment.RateLimited,
		"failed", summary.Enrichment.Failed,
		"no_repository", summary.Enrichment.Skipped,
		"retained", summary.Retained,
	)
	return nil
}

// Execute runs the CLI with ctx. Errors are logged before being returned.
func Execute(ctx context.Context) error {
	return execute(ctx, NewRootCommand())
}

// execute runs root and reports a failure through the logger configured for
// the command that actually ran, which may be a subcommand.
func execute(ctx context.Context, root *cobra.Command) error {
	cmd, err := root.ExecuteContextC(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		if cmd == nil {
			cmd = root
		}
		loggerFromContext(cmd.Context()).Error("catalog failed", "err", err)
	}
	return err
}
