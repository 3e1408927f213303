package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/abdul-hamid-achik/hookspec/packages/core/definition"
	"github.com/abdul-hamid-achik/hookspec/packages/core/eval"
	"github.com/abdul-hamid-achik/hookspec/packages/core/parser"
	"github.com/abdul-hamid-achik/hookspec/packages/core/runner"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file|directory>...",
	Short: "Validate suites without sending requests",
	Long: `Load suite files, parse every template and hook, and report calls to
functions that are not registered.

Examples:
  hookspec validate suites/orders.yaml
  hookspec validate suites/`,
	Args: cobra.MinimumNArgs(1),
	RunE: validateCommand,
}

func validateCommand(cmd *cobra.Command, args []string) error {
	files, err := definition.Discover(args)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}
	if len(files) == 0 {
		return withExitCode(ExitUsageError, fmt.Errorf("no suite files found"))
	}

	reg, err := newRegistry(nil)
	if err != nil {
		return err
	}
	ev := eval.New(reg)

	hasErrors := false
	for _, file := range files {
		problems := validateFile(ev, file)
		if len(problems) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "Valid: %s\n", file)
			continue
		}
		hasErrors = true
		fmt.Fprintf(cmd.ErrOrStderr(), "Error in %s:\n", file)
		printProblems(cmd.ErrOrStderr(), problems)
	}

	if hasErrors {
		return withExitCode(ExitParseError, fmt.Errorf("validation failed"))
	}
	return nil
}

// validateFile returns one line per problem found in file.
func validateFile(ev *eval.Evaluator, file string) []string {
	suite, err := definition.Load(file)
	if err != nil {
		return []string{err.Error()}
	}

	var problems []string
	for _, ref := range suite.Templates() {
		var node parser.Node
		if ref.Hook {
			hook, err := runner.ParseHook(hookPhase(ref.Location), ref.Source)
			if err != nil {
				problems = append(problems, fmt.Sprintf("%s: %v", ref.Location, err))
				continue
			}
			node = hook.Call
		} else {
			tmpl, err := parser.ParseTemplate(ref.Source)
			if err != nil {
				problems = append(problems, fmt.Sprintf("%s: %v", ref.Location, err))
				continue
			}
			node = tmpl
		}
		for _, name := range ev.UnknownFunctions(node) {
			problems = append(problems, fmt.Sprintf("%s: unknown function %s()", ref.Location, name))
		}
	}
	return problems
}

// hookPhase derives the phase of a hook from its TemplateRef location.
func hookPhase(location string) runner.Phase {
	teardown := strings.Contains(location, "teardown_hooks")
	switch {
	case strings.HasPrefix(location, "config."):
		if teardown {
			return runner.PhaseSuiteTeardown
		}
		return runner.PhaseSuiteSetup
	case strings.Contains(location, ".config."):
		if teardown {
			return runner.PhaseCaseTeardown
		}
		return runner.PhaseCaseSetup
	case teardown:
		return runner.PhaseStepTeardown
	default:
		return runner.PhaseStepSetup
	}
}

func printProblems(w io.Writer, problems []string) {
	for _, p := range problems {
		fmt.Fprintf(w, "  %s\n", p)
	}
}
