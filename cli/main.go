package main

import (
	"os"

	"github.com/datapact/cddl/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
