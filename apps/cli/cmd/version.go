package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var shortVersion bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		if shortVersion {
			fmt.Fprintln(out, version)
			return
		}
		fmt.Fprintf(out, "hookspec %s (%s, %s/%s)\n", version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		fmt.Fprintf(out, "Built: %s\n", buildTime)
	},
}

func init() {
	versionCmd.Flags().BoolVar(&shortVersion, "short", false, "Print only the version number")
}
