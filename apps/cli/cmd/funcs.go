package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var funcsCmd = &cobra.Command{
	Use:   "funcs [name]...",
	Short: "List the functions available in templates and hooks",
	Long: `List every registered function with its signature and description.
Names given as arguments narrow the list.

Examples:
  hookspec funcs
  hookspec funcs setup_hook_sign_request md5`,
	ValidArgsFunction: completeFunctionNames,
	RunE:              funcsCommand,
}

func funcsCommand(cmd *cobra.Command, args []string) error {
	reg, err := newRegistry(nil)
	if err != nil {
		return err
	}

	want := make(map[string]bool, len(args))
	for _, name := range args {
		if _, ok := reg.Lookup(name); !ok {
			return withExitCode(ExitUsageError, fmt.Errorf("unknown function %q", name))
		}
		want[name] = true
	}

	out := cmd.OutOrStdout()
	for _, fn := range reg.Functions() {
		if len(want) > 0 && !want[fn.Name] {
			continue
		}
		fmt.Fprintf(out, "%s -> %s\n", fn.Signature(), fn.Returns)
		if fn.Doc != "" {
			for _, line := range strings.Split(strings.TrimSpace(fn.Doc), "\n") {
				fmt.Fprintf(out, "    %s\n", line)
			}
		}
	}
	return nil
}
