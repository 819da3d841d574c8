package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/okian/coach/internal/adapters/backend"
	"github.com/okian/coach/internal/cli"
	"github.com/okian/coach/internal/domain/analysis"
	"github.com/okian/coach/internal/render"
	"github.com/okian/coach/pkg/logger"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type options struct {
	backendURL string
	timeout    time.Duration
	output     string
	verbose    bool
	noColor    bool
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	if err != nil {
		_, _ = color.New(color.FgRed).Fprintln(os.Stderr, "Error: "+cli.Describe(err))
	}
	stop()
	os.Exit(cli.ExitCode(err))
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "coachctl",
		Short:         "Command line client for the coding coach",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if opts.noColor {
				color.NoColor = true
			}
			if err := logger.InitWith(cmd.ErrOrStderr(), "text"); err != nil {
				return err
			}
			if opts.verbose {
				return logger.SetLevelString("debug")
			}
			return logger.SetLevelString("warn")
		},
	}

	defaultBackend := os.Getenv("COACH_BACKEND_URL")
	if defaultBackend == "" {
		defaultBackend = "http://localhost:8080"
	}
	cmd.PersistentFlags().StringVar(&opts.backendURL, "backend", defaultBackend, "Base URL of the analysis service (or set COACH_BACKEND_URL)")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", cli.DefaultTimeout, "Request timeout")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	cmd.AddCommand(newAnalyzeCmd(opts), newHealthCmd(opts), newLoadCmd(opts), newVersionCmd())
	return cmd
}

func newClient(opts *options) *backend.Client {
	return backend.New(opts.backendURL,
		backend.WithTimeout(opts.timeout),
		backend.WithLogger(logger.Get()),
	)
}

func newAnalyzeCmd(opts *options) *cobra.Command {
	var in analysis.FormInput

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a user's coding profile",
		Long: `Send one analysis request to the analysis service and print the result.

Examples:
  # Analyze a Codeforces handle
  coachctl analyze --user alice --codeforces tourist

  # Both platforms, as YAML
  coachctl analyze --user alice --codeforces tourist --leetcode neal -o yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cli.Analyze(cmd.Context(), newClient(opts), in, cmd.OutOrStdout(), cmd.ErrOrStderr(), opts.output)
		},
	}

	cmd.Flags().StringVarP(&in.UserID, "user", "u", "", "User ID")
	cmd.Flags().StringVar(&in.Codeforces, "codeforces", "", "Codeforces handle")
	cmd.Flags().StringVar(&in.LeetCode, "leetcode", "", "LeetCode handle")
	cmd.Flags().StringVarP(&opts.output, "output", "o", render.FormatHuman, "Output format (human, json, yaml)")
	return cmd
}

func newHealthCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the analysis service is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cli.Health(cmd.Context(), newClient(opts), cmd.OutOrStdout())
		},
	}
}

func newLoadCmd(opts *options) *cobra.Command {
	cfg := cli.LoadConfig{}

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Submit concurrent analyses through the coach front end",
		Long: `Submit one analysis per generated user to the front end's /api/analyze
with a pool of workers, then report outcomes and latency.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg.Timeout = opts.timeout
			cfg.Logger = logger.Get()
			stats, err := cli.Load(cmd.Context(), cfg)
			if stats != nil {
				cli.PrintLoadStats(cmd.OutOrStdout(), stats)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&cfg.FrontURL, "url", "http://localhost:9080", "Base URL of the coach front end")
	cmd.Flags().IntVar(&cfg.Users, "users", cli.DefaultUsers, "Number of distinct users")
	cmd.Flags().IntVar(&cfg.Workers, "workers", cli.DefaultWorkers, "Number of concurrent workers")
	cmd.Flags().StringVar(&cfg.Codeforces, "codeforces", "", "Codeforces handle sent for every user")
	cmd.Flags().StringVar(&cfg.LeetCode, "leetcode", "", "LeetCode handle sent for every user")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "coachctl "+version)
		},
	}
}
