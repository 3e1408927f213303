package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/abdul-hamid-achik/hookspec/packages/logging"
	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	logLevelFlag  string
	logFormatFlag string
)

var rootCmd = &cobra.Command{
	Use:   "hookspec",
	Short: "YAML API test suites with lifecycle hooks.",
	Long: `hookspec runs HTTP API test suites written in YAML. Every string may
hold ${...} expressions that call built-in functions, and suites, cases
and steps can run setup and teardown hooks that sign requests, query
databases and seed variables for later steps.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. On error it exits with the matching exit code.
func Execute(v, bt string) {
	version = v
	buildTime = bt
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errSilent) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		os.Exit(ExitUsageError)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", getEnvString("HOOKSPEC_LOG_LEVEL", ""), "Log level: debug, info, warn, error (env: HOOKSPEC_LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", getEnvString("HOOKSPEC_LOG_FORMAT", ""), "Log format: text, json (env: HOOKSPEC_LOG_FORMAT)")

	_ = rootCmd.RegisterFlagCompletionFunc("log-level", cobra.FixedCompletions(
		[]string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp))
	_ = rootCmd.RegisterFlagCompletionFunc("log-format", cobra.FixedCompletions(
		[]string{"text", "json"}, cobra.ShellCompDirectiveNoFileComp))

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(funcsCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
}

// newLogger builds the diagnostics logger. Flags win over the config file.
// Logs go to stderr so reporter output on stdout stays machine readable.
func newLogger(level, format string) *slog.Logger {
	if logLevelFlag != "" {
		level = logLevelFlag
	}
	if logFormatFlag != "" {
		format = logFormatFlag
	}
	cfg := logging.DefaultConfig()
	cfg.Output = os.Stderr
	if level != "" {
		cfg.Level = logging.ParseLevel(level)
	}
	if format != "" {
		cfg.Format = logging.ParseFormat(format)
	}
	return logging.New(cfg)
}
