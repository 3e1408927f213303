package cmd

import (
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/hookspec/packages/core/definition"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list <file|directory>...",
	Short: "List the cases and steps of suites",
	Long: `List the cases and steps defined in suite files.

Examples:
  hookspec list suites/orders.yaml
  hookspec list suites/`,
	Args: cobra.MinimumNArgs(1),
	RunE: listCommand,
}

func listCommand(cmd *cobra.Command, args []string) error {
	files, err := definition.Discover(args)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}
	if len(files) == 0 {
		return withExitCode(ExitUsageError, fmt.Errorf("no suite files found"))
	}

	out := cmd.OutOrStdout()
	for _, file := range files {
		suite, err := definition.Load(file)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error parsing %s: %v\n", file, err)
			continue
		}

		fmt.Fprintf(out, "\n%s (%s):\n", suite.Config.Name, file)
		for _, c := range suite.Cases {
			fmt.Fprintf(out, "  - %s\n", c.Name())
			if len(c.Config.Tags) > 0 {
				fmt.Fprintf(out, "    tags: %s\n", strings.Join(c.Config.Tags, ", "))
			}
			for i, st := range c.Steps {
				name := st.Name
				if name == "" {
					name = fmt.Sprintf("%s %s", strings.ToUpper(st.Request.Method), st.Request.Target())
				}
				fmt.Fprintf(out, "      %d. %s\n", i+1, name)
			}
		}
	}

	return nil
}
