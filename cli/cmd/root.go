package cmd

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:          "cddl",
		Short:        "cddl",
		SilenceUsage: true,
		Long:         `Tool for verifying conformance of CDDL definitions against RFC 8610 and for validating JSON and CBOR documents.`,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func successln(format string, args ...any) {
	color.New(color.FgGreen).Printf(format+"\n", args...)
}

func failureln(format string, args ...any) {
	color.New(color.FgRed).Fprintf(os.Stderr, format+"\n", args...)
}
