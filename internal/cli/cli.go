package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/collegenav/internal/config"
	"github.com/pfrederiksen/collegenav/internal/extractor"
	"github.com/pfrederiksen/collegenav/internal/input"
	"github.com/pfrederiksen/collegenav/internal/logger"
	"github.com/pfrederiksen/collegenav/internal/matcher"
	"github.com/pfrederiksen/collegenav/internal/output"
	"github.com/pfrederiksen/collegenav/internal/registry"
	"github.com/pfrederiksen/collegenav/internal/runner"
	"github.com/pfrederiksen/collegenav/internal/session"
)

const (
	ExitSuccess   = 0
	ExitError     = 1
	ExitAbandoned = 2
)

// ErrRecordsAbandoned is returned when some records exhausted their retries
var ErrRecordsAbandoned = errors.New("some records were abandoned after exhausting retries")

type rootFlags struct {
	configPath string
	input      string
	idsFile    string
	outputDir  string
	format     string
	baseURL    string
	attempts   int
	timeout    time.Duration
	retryDelay time.Duration
	rate       float64
	summary    string
	sortOrder  string
	verbose    bool
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	defaults := config.Default()
	f := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "collegenav",
		Short: "Collect institution statistics and programs from College Navigator",
		Long: `A CLI tool that looks up each institution of an input file on College Navigator,
extracts enrollment, crime statistics and academic programs, and writes them to
School and Program tables. Major and program ids stay stable across runs.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollect(cmd, f)
		},
	}

	cmd.Flags().StringVar(&f.configPath, "config", "", "JSON5 config file")
	cmd.Flags().StringVar(&f.input, "input", defaults.Input, "Input file (.csv or .xlsx) with INST_NAME, CITY, STATE columns")
	cmd.Flags().StringVar(&f.idsFile, "ids-file", defaults.IDsFile, "Major/program id registry file")
	cmd.Flags().StringVar(&f.outputDir, "output-dir", defaults.OutputDir, "Directory for the output file")
	cmd.Flags().StringVar(&f.format, "format", defaults.Format, "Output format: xlsx or sqlite")
	cmd.Flags().StringVar(&f.baseURL, "base-url", defaults.BaseURL, "College Navigator search URL")
	cmd.Flags().IntVar(&f.attempts, "attempts", defaults.MaxAttempts, "Attempts per record before it is abandoned")
	cmd.Flags().DurationVar(&f.timeout, "timeout", time.Duration(defaults.WaitTimeout), "How long to wait for page elements")
	cmd.Flags().DurationVar(&f.retryDelay, "retry-delay", time.Duration(defaults.RetryDelay), "Pause between attempts")
	cmd.Flags().Float64Var(&f.rate, "rate", defaults.RequestsPerSecond, "Maximum requests per second (0 for no limit)")
	cmd.Flags().StringVar(&f.summary, "summary", string(FormatText), "Summary format: text or json")
	cmd.Flags().StringVar(&f.sortOrder, "sort", string(SortByPosition), "Summary order: position, status or name")
	cmd.Flags().BoolVar(&f.verbose, "verbose", false, "Enable verbose logging")

	return cmd
}

// loadConfig merges the config file and explicitly set flags
func loadConfig(cmd *cobra.Command, f *rootFlags) (*config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		loaded, err := config.Load(f.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("input") {
		cfg.Input = f.input
	}
	if flags.Changed("ids-file") {
		cfg.IDsFile = f.idsFile
	}
	if flags.Changed("output-dir") {
		cfg.OutputDir = f.outputDir
	}
	if flags.Changed("format") {
		cfg.Format = f.format
	}
	if flags.Changed("base-url") {
		cfg.BaseURL = f.baseURL
	}
	if flags.Changed("attempts") {
		cfg.MaxAttempts = f.attempts
	}
	if flags.Changed("timeout") {
		cfg.WaitTimeout = config.Duration(f.timeout)
	}
	if flags.Changed("retry-delay") {
		cfg.RetryDelay = config.Duration(f.retryDelay)
	}
	if flags.Changed("rate") {
		cfg.RequestsPerSecond = f.rate
	}
	if f.verbose {
		cfg.LogLevel = string(logger.LevelDebug)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// runCollect is the main command logic
func runCollect(cmd *cobra.Command, f *rootFlags) error {
	summaryFormat := OutputFormat(strings.ToLower(f.summary))
	if summaryFormat != FormatText && summaryFormat != FormatJSON {
		return fmt.Errorf("invalid summary format: %s (must be 'text' or 'json')", f.summary)
	}
	sortOrder, err := ParseSortOrder(f.sortOrder)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd, f)
	if err != nil {
		return err
	}

	level, _ := logger.ParseLevel(cfg.LogLevel)
	log := logger.New(level, cmd.ErrOrStderr())
	logger.SetDefault(log)

	records, err := input.Load(cfg.Input)
	if err != nil {
		return fmt.Errorf("loading input: %w", err)
	}
	log.Info("Loaded input", logger.Fields{"path": cfg.Input, "records": len(records)})

	ids, err := registry.Load(cfg.IDsFile)
	if err != nil {
		return fmt.Errorf("loading id registry: %w", err)
	}

	format, _ := output.ParseFormat(cfg.Format)
	startedAt := time.Now()
	writer, err := output.New(format, cfg.OutputDir, startedAt)
	if err != nil {
		return err
	}

	sess, err := session.NewHTTPSession(session.Options{
		UserAgent:         cfg.UserAgent,
		RequestTimeout:    time.Duration(cfg.RequestTimeout),
		RequestsPerSecond: cfg.RequestsPerSecond,
	})
	if err != nil {
		return fmt.Errorf("starting session: %w", err)
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.Warn("Closing session failed", nil, err)
		}
	}()

	finder := matcher.New(sess, matcher.Options{
		BaseURL:     cfg.BaseURL,
		WaitTimeout: time.Duration(cfg.WaitTimeout),
		MaxPages:    cfg.MaxPages,
		Logger:      log,
	})
	extract, err := extractor.New(sess, ids, extractor.Options{
		BaseURL:     cfg.BaseURL,
		WaitTimeout: time.Duration(cfg.WaitTimeout),
		Logger:      log,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run := runner.New(finder, extract, writer, runner.Options{
		MaxAttempts: cfg.MaxAttempts,
		RetryDelay:  time.Duration(cfg.RetryDelay),
		Logger:      log,
	})
	summary, runErr := run.Run(ctx, records)

	majors, programs := ids.Len()
	report := NewReport(summary, startedAt, cfg.Input, majors, programs, runErr)
	sortRecords(report.Records, sortOrder)
	if err := WriteOutput(cmd.OutOrStdout(), report, summaryFormat, f.verbose); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}

	switch {
	case errors.Is(runErr, context.Canceled):
		return fmt.Errorf("run interrupted: %w", runErr)
	case runErr != nil:
		return fmt.Errorf("run halted: %w", runErr)
	case summary.Abandoned > 0:
		return ErrRecordsAbandoned
	}
	return nil
}

// Run executes the CLI with args and returns the process exit code
func Run(args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, ErrRecordsAbandoned):
		fmt.Fprintf(stderr, "Warning: %v\n", err)
		return ExitAbandoned
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return ExitError
}

// Execute runs the CLI
func Execute() {
	os.Exit(Run(os.Args[1:], os.Stdout, os.Stderr))
}
