package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/hookspec/packages/builtin"
	"github.com/abdul-hamid-achik/hookspec/packages/core/config"
	"github.com/abdul-hamid-achik/hookspec/packages/core/definition"
	"github.com/abdul-hamid-achik/hookspec/packages/core/env"
	"github.com/abdul-hamid-achik/hookspec/packages/core/eval"
	"github.com/abdul-hamid-achik/hookspec/packages/core/parser"
	"github.com/abdul-hamid-achik/hookspec/packages/core/runner"
	"github.com/abdul-hamid-achik/hookspec/packages/db"
	"github.com/abdul-hamid-achik/hookspec/packages/hooks"
	"github.com/abdul-hamid-achik/hookspec/packages/http"
	"github.com/abdul-hamid-achik/hookspec/packages/output"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <file|directory>...",
	Short: "Run test suites",
	Long: `Run the YAML test suites named on the command line. Directories are
searched recursively for .yaml and .yml files; hookspec config files are
skipped.

Examples:
  hookspec run suites/orders.yaml
  hookspec run suites/ --env staging
  hookspec run suites/ --tags smoke --concurrency 10
  hookspec run suites/ --name "create*" -o junit --output-file report.xml
  hookspec run suites/ --watch`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCommand,
}

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond
)

var (
	envFlag         string
	envFileFlag     []string
	configFlag      string
	nameFlag        string
	tagsFlag        string
	verboseFlag     int // 0=off, 1=-v, 2=-vv adds debug logs
	noColorFlag     bool
	dryRunFlag      bool
	outputFlag      string
	outputFileFlag  string
	bailFlag        bool
	timeoutFlag     string
	concurrencyFlag int
	rateLimitFlag   float64
	baseURLFlag     string
	watchFlag       bool
	proxyFlag       string
	insecureFlag    bool
)

func init() {
	// Core flags
	runCmd.Flags().StringVarP(&envFlag, "env", "e", getEnvString("HOOKSPEC_ENV", ""), "Environment block from the config file (env: HOOKSPEC_ENV)")
	runCmd.Flags().StringSliceVar(&envFileFlag, "env-file", getEnvList("HOOKSPEC_ENV_FILE"), "Extra .env files, read after the configured ones (env: HOOKSPEC_ENV_FILE)")
	runCmd.Flags().StringVar(&configFlag, "config", getEnvString("HOOKSPEC_CONFIG", ""), "Path to config file (env: HOOKSPEC_CONFIG)")
	runCmd.Flags().StringVarP(&nameFlag, "name", "n", "", "Run only cases matching name pattern (* wildcards)")
	runCmd.Flags().StringVarP(&tagsFlag, "tags", "t", getEnvString("HOOKSPEC_TAGS", ""), "Run only cases with any of these tags (comma-separated) (env: HOOKSPEC_TAGS)")

	// Output flags
	runCmd.Flags().CountVarP(&verboseFlag, "verbose", "v", "Verbose output (-v shows requests and traces, -vv adds debug logs)")
	runCmd.Flags().BoolVar(&noColorFlag, "no-color", getEnvBool("HOOKSPEC_NO_COLOR", false), "Disable colored output (env: HOOKSPEC_NO_COLOR)")
	runCmd.Flags().StringVarP(&outputFlag, "output", "o", getEnvString("HOOKSPEC_OUTPUT", ""), "Output format: "+strings.Join(output.Names(), ", ")+" (env: HOOKSPEC_OUTPUT)")
	runCmd.Flags().StringVar(&outputFileFlag, "output-file", getEnvString("HOOKSPEC_OUTPUT_FILE", ""), "Write output to file (default: stdout) (env: HOOKSPEC_OUTPUT_FILE)")

	// Execution flags
	runCmd.Flags().BoolVar(&bailFlag, "bail", getEnvBool("HOOKSPEC_BAIL", false), "Stop scheduling cases after the first that does not pass (env: HOOKSPEC_BAIL)")
	runCmd.Flags().StringVar(&timeoutFlag, "timeout", getEnvString("HOOKSPEC_TIMEOUT", ""), "Default step timeout (e.g., 30s, 1m) (env: HOOKSPEC_TIMEOUT)")
	runCmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "Parse suites and show what would run without executing")
	runCmd.Flags().IntVar(&concurrencyFlag, "concurrency", getEnvInt("HOOKSPEC_CONCURRENCY", 0), "Number of cases run at once (env: HOOKSPEC_CONCURRENCY)")
	runCmd.Flags().Float64Var(&rateLimitFlag, "rate-limit", getEnvFloat("HOOKSPEC_RATE_LIMIT", 0), "Cases started per second, 0 for no limit (env: HOOKSPEC_RATE_LIMIT)")
	runCmd.Flags().StringVar(&baseURLFlag, "base-url", getEnvString("HOOKSPEC_BASE_URL", ""), "Base URL for suites that declare none (env: HOOKSPEC_BASE_URL)")
	runCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch suite files for changes and re-run them")

	// Network flags
	runCmd.Flags().StringVar(&proxyFlag, "proxy", getEnvString("HOOKSPEC_PROXY", ""), "Proxy URL for HTTP requests (env: HOOKSPEC_PROXY)")
	runCmd.Flags().BoolVarP(&insecureFlag, "insecure", "k", getEnvBool("HOOKSPEC_INSECURE", false), "Disable SSL certificate validation (env: HOOKSPEC_INSECURE)")

	_ = runCmd.RegisterFlagCompletionFunc("output", cobra.FixedCompletions(output.Names(), cobra.ShellCompDirectiveNoFileComp))
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvList(key string) []string {
	return splitList(os.Getenv(key))
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

func withExitCode(code int, err error) error {
	return &exitError{code: code, err: err}
}

// loadProjectConfig reads --config, or the first config file found in the
// working directory, and applies the run flags on top.
func loadProjectConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configFlag != "" {
		cfg, err = config.LoadConfig(configFlag)
	} else {
		cfg, err = config.FindAndLoadConfig(".")
	}
	if err != nil {
		return nil, err
	}

	overrides := &config.Config{
		DefaultEnvironment: envFlag,
		Concurrency:        concurrencyFlag,
		RateLimit:          rateLimitFlag,
		Proxy:              proxyFlag,
		BaseURL:            baseURLFlag,
	}
	if timeoutFlag != "" {
		timeout, err := time.ParseDuration(timeoutFlag)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout value %q: %w (use format like 30s, 1m, 500ms)", timeoutFlag, err)
		}
		overrides.Timeout = int(timeout / time.Millisecond)
	}
	if bailFlag {
		overrides.Bail = config.BoolPtr(true)
	}
	if insecureFlag {
		overrides.ValidateSSL = config.BoolPtr(false)
	}
	if noColorFlag {
		overrides.NoColor = config.BoolPtr(true)
	}
	if outputFlag != "" {
		overrides.Reporters = []string{outputFlag}
	}
	if len(envFileFlag) > 0 {
		overrides.DotEnv = append(append([]string{}, cfg.DotEnv...), envFileFlag...)
	}

	merged := cfg.Merge(overrides)
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return merged, nil
}

// newRegistry returns a frozen registry holding the built-ins and the hook
// functions. A nil databases value leaves the SQL helpers unbound.
func newRegistry(databases hooks.Databases) (*builtin.Registry, error) {
	reg := builtin.NewRegistry()
	if err := hooks.Register(reg, hooks.Deps{DB: databases}); err != nil {
		return nil, err
	}
	reg.Freeze()
	return reg, nil
}

// session holds everything a run needs across watch iterations.
type session struct {
	cfg         *config.Config
	logger      *slog.Logger
	environment *env.Environment
	runner      *runner.Runner
	databases   *db.Proxy
}

func newSession(cfg *config.Config) (*session, error) {
	level := cfg.LogLevel
	if verboseFlag > 1 {
		level = "debug"
	}
	logger := newLogger(level, cfg.LogFormat)

	environment, err := env.LoadEnvironment(env.LoadOptions{
		Name:         cfg.DefaultEnvironment,
		Prefix:       cfg.EnvPrefix,
		DotEnvFiles:  cfg.DotEnv,
		Environments: cfg.Environments,
	})
	if err != nil {
		return nil, withExitCode(ExitConfigError, err)
	}

	databases := db.NewProxy(cfg.Databases, db.WithLogger(logger))
	reg, err := newRegistry(databases)
	if err != nil {
		_ = databases.Close()
		return nil, err
	}

	cache := parser.NewCache()
	evaluator := eval.New(reg, eval.WithCache(cache), eval.WithLogger(logger))

	clientOpts := []http.ClientOption{
		http.WithFollowRedirects(cfg.GetFollowRedirects()),
		http.WithValidateSSL(cfg.GetValidateSSL()),
		http.WithDefaultHeaders(cfg.Headers),
	}
	if cfg.MaxRedirects > 0 {
		clientOpts = append(clientOpts, http.WithMaxRedirects(cfg.MaxRedirects))
	}
	if cfg.Proxy != "" {
		clientOpts = append(clientOpts, http.WithProxy(cfg.Proxy))
	}
	if timeout := cfg.StepTimeout(); timeout > 0 {
		clientOpts = append(clientOpts, http.WithTimeout(timeout))
	}

	rcfg := runner.FromConfig(cfg)
	rcfg.NameFilter = nameFlag
	rcfg.TagsFilter = splitList(tagsFlag)

	return &session{
		cfg:         cfg,
		logger:      logger,
		environment: environment,
		databases:   databases,
		runner: runner.NewRunner(evaluator, http.NewClient(clientOpts...), rcfg,
			runner.WithLogger(logger),
			runner.WithParserCache(cache),
		),
	}, nil
}

func (s *session) Close() error {
	return s.databases.Close()
}

// outcome summarizes one pass over the suite files.
type outcome struct {
	parseFailed bool
	failed      bool
	errored     bool
}

func (o outcome) exitCode() int {
	switch {
	case o.parseFailed:
		return ExitParseError
	case o.errored:
		return ExitEngineError
	case o.failed:
		return ExitTestFailure
	default:
		return ExitSuccess
	}
}

func (s *session) newFormatter(w io.Writer) (output.Formatter, error) {
	name := "console"
	if len(s.cfg.Reporters) > 0 {
		name = strings.ToLower(s.cfg.Reporters[0])
	}
	return output.New(name, output.Options{
		Writer:  w,
		Verbose: verboseFlag > 0 || s.cfg.GetVerbose(),
		NoColor: s.cfg.GetNoColor(),
	})
}

// runFiles runs every file in order and reports through a fresh formatter.
func (s *session) runFiles(ctx context.Context, w io.Writer, files []string) (outcome, error) {
	formatter, err := s.newFormatter(w)
	if err != nil {
		return outcome{}, withExitCode(ExitUsageError, err)
	}
	formatter.FormatHeader(version)

	var out outcome
	start := time.Now()
	for _, file := range files {
		if ctx.Err() != nil {
			break
		}

		result, err := s.runner.RunFile(ctx, file, s.environment.Scope())
		if result == nil {
			formatter.FormatError(fmt.Errorf("%s: %w", file, err))
			out.parseFailed = true
			continue
		}
		formatter.FormatResult(result)

		switch {
		case errors.Is(err, runner.ErrSuiteAborted):
			out.errored = true
		case result.Status() == runner.StatusErrored:
			out.errored = true
		case result.Status() == runner.StatusFailed:
			out.failed = true
		}

		if s.runner.Config().Bail && (out.failed || out.errored) {
			break
		}
	}

	if flushable, ok := formatter.(output.Flushable); ok {
		if err := flushable.Flush(time.Since(start)); err != nil {
			return out, fmt.Errorf("error writing output: %w", err)
		}
	}
	return out, nil
}

func runCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadProjectConfig()
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}

	files, err := definition.Discover(args)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}
	if len(files) == 0 {
		return withExitCode(ExitUsageError, fmt.Errorf("no suite files found"))
	}

	if dryRunFlag {
		return dryRun(cmd.OutOrStdout(), files)
	}

	// Setup output writer
	var w io.Writer = cmd.OutOrStdout()
	if outputFileFlag != "" {
		f, err := os.Create(outputFileFlag)
		if err != nil {
			return fmt.Errorf("cannot create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	sess, err := newSession(cfg)
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out, err := sess.runFiles(ctx, w, files)
	if err != nil {
		return err
	}

	if !watchFlag {
		if code := out.exitCode(); code != ExitSuccess {
			return withExitCode(code, errSilent)
		}
		return nil
	}

	return sess.watch(ctx, cmd.OutOrStdout(), w, args, files)
}

// errSilent marks an exit whose cause the formatter already reported.
var errSilent = errors.New("run did not pass")

// watch re-runs the suites whenever a suite file is written, until ctx is
// cancelled.
func (s *session) watch(ctx context.Context, status, w io.Writer, args, files []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	watchedDirs := make(map[string]bool)
	addDir := func(dir string) {
		if watchedDirs[dir] {
			return
		}
		if err := watcher.Add(dir); err != nil {
			s.logger.Warn("cannot watch directory", "dir", dir, "error", err)
		}
		watchedDirs[dir] = true
	}
	for _, file := range files {
		addDir(filepath.Dir(file))
	}
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil || !info.IsDir() {
			continue
		}
		_ = filepath.WalkDir(arg, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				addDir(path)
			}
			return nil
		})
	}

	fmt.Fprintf(status, "\nWatching for changes... (press Ctrl+C to stop)\n\n")

	// Debounced re-runs go through this channel so only one pass runs at a time.
	rerun := make(chan string, 1)
	var debounceTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !definition.IsSuiteFile(event.Name) {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			name := event.Name
			debounceTimer = time.AfterFunc(WatchDebounceDelay, func() {
				select {
				case rerun <- name:
				default:
				}
			})

		case name := <-rerun:
			fmt.Fprintf(status, "\n\nFile changed: %s\nRe-running suites...\n\n", name)
			current, err := definition.Discover(args)
			if err != nil {
				s.logger.Error("cannot collect suite files", "error", err)
				continue
			}
			if _, err := s.runFiles(ctx, w, current); err != nil {
				s.logger.Error("re-run failed", "error", err)
			}
			fmt.Fprintf(status, "\nWatching for changes... (press Ctrl+C to stop)\n")

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("watcher error", "error", err)
		}
	}
}

// dryRun loads every file and prints the cases that would run.
func dryRun(w io.Writer, files []string) error {
	failed := false
	for _, file := range files {
		suite, err := definition.Load(file)
		if err != nil {
			fmt.Fprintf(w, "Error in %s: %v\n", file, err)
			failed = true
			continue
		}
		fmt.Fprintf(w, "Would run: %s (%d cases)\n", file, len(suite.Cases))
	}
	if failed {
		return withExitCode(ExitParseError, errSilent)
	}
	return nil
}
