package main

import (
	"os"

	"github.com/temirov/reposync/cmd/cli"
)

// main executes the reposync command-line application.
func main() {
	if executionError := cli.Execute(); executionError != nil {
		cli.ReportError(os.Stderr, executionError)
		os.Exit(1)
	}
}
