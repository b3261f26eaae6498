// Package cli implements the ddichecker command tree: the end-to-end run,
// one command per pipeline stage for checkpoint resume, and validation.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/turtacn/KeyDDI-Intelligence/internal/config"
	"github.com/turtacn/KeyDDI-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyDDI-Intelligence/pkg/errors"
	"github.com/turtacn/KeyDDI-Intelligence/pkg/types/ddi"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// cliContextKey is the context key for CLIContext.
type cliContextKey struct{}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string
	Verbose    bool
	NoColor    bool
}

// CLIContext carries initialized dependencies through the command tree.
type CLIContext struct {
	Config *config.Config
	Logger logging.Logger
}

// NewRootCommand creates the root command with its global flags and every
// subcommand.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "ddichecker",
		Short: "ddichecker predicts drug-drug interactions from molecular structure",
		Long: "ddichecker scores candidate drugs against an approved reference set by structural\n" +
			"similarity, projects the profiles onto a fitted PCA basis, runs the multitask\n" +
			"interaction classifier over every drug pair and reports each predicted\n" +
			"interaction with the approved drugs known to behave the same way.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return persistentPreRun(cmd, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: ./ddichecker.yaml, ~/.ddichecker/config.yaml, /etc/ddichecker/config.yaml)")
	pf.StringVar(&opts.LogLevel, "log-level", "", "log level override (debug, info, warn, error)")
	pf.StringVar(&opts.LogFormat, "log-format", "", "log format override (json, console)")
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVar(&opts.NoColor, "no-color", false, "disable colored output")

	cmd.AddCommand(
		NewRunCmd(),
		NewSimilarityCmd(),
		NewReduceCmd(),
		NewProfileCmd(),
		NewPredictCmd(),
		NewSummarizeCmd(),
		NewAnnotateCmd(),
		NewValidateCmd(),
		NewCacheCmd(),
		NewVersionCmd(),
	)
	return cmd
}

// persistentPreRun loads config and builds the logger, then stores CLIContext.
func persistentPreRun(cmd *cobra.Command, opts *RootOptions) error {
	if opts.NoColor {
		color.NoColor = true
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = strings.ToLower(opts.LogLevel)
	}
	if opts.LogFormat != "" {
		cfg.Log.Format = strings.ToLower(opts.LogFormat)
	}
	if opts.Verbose {
		cfg.Log.Level = logging.LevelDebug
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		OutputPaths: []string{cfg.Log.Output},
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeValidation, "logger initialization failed")
	}
	logging.SetDefault(logger)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, &CLIContext{Config: cfg, Logger: logger}))
	return nil
}

// GetCLIContext extracts CLIContext from a cobra command's context.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.New(errors.ErrCodeInternal, "command context is nil")
	}
	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, errors.New(errors.ErrCodeInternal, "CLIContext not found in command context")
	}
	return cliCtx, nil
}

// Execute is the main entry point for the CLI application.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the command tree under ctx; cancelling ctx stops a run
// between records.
func ExecuteContext(ctx context.Context) error {
	rootCmd := NewRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		PrintError(rootCmd, err)
		return err
	}
	return nil
}

// NewVersionCmd prints build information.  It needs no configuration.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "version",
		Short:             "Print version information",
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "ddichecker %s\ncommit: %s\nbuilt: %s\n", Version, GitCommit, BuildDate)
			return nil
		},
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Output helpers
// ─────────────────────────────────────────────────────────────────────────────

var (
	successColor = color.New(color.FgHiGreen).SprintFunc()
	warnColor    = color.New(color.FgHiYellow).SprintFunc()
	errorColor   = color.New(color.FgHiRed).SprintFunc()
)

// PrintError writes a formatted error message to stderr.  Application
// errors show their code.
func PrintError(cmd *cobra.Command, err error) {
	if err == nil {
		return
	}
	label := "Error"
	if code := errors.GetCode(err); code != "" && code != errors.CodeUnknown {
		label = "Error [" + string(code) + "]"
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", errorColor(label), err.Error())
}

// PrintSuccess writes a formatted success message to stdout.
func PrintSuccess(cmd *cobra.Command, msg string) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", successColor("OK:"), msg)
}

// PrintWarning writes a formatted warning to stderr.
func PrintWarning(cmd *cobra.Command, msg string) {
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", warnColor("WARN:"), msg)
}

// RenderReports writes one table row per stage report.
func RenderReports(w io.Writer, reports []*ddi.StageReport) {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Stage", "In", "Out", "Elapsed", "Warnings"})
	for _, r := range reports {
		warnings := "-"
		if len(r.Warnings) > 0 {
			warnings = warnColor(r.WarningSummary())
		}
		table.Append([]string{
			r.Stage,
			fmt.Sprintf("%d", r.InputRows),
			fmt.Sprintf("%d", r.OutputRows),
			r.Elapsed.Round(time.Millisecond).String(),
			warnings,
		})
	}
	table.Render()
}

//Personal.AI order the ending
