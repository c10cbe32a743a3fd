// proofback-cli is the command-line client for the Proofback
// backup-validation platform.
package main

import (
	"fmt"
	"os"

	"github.com/proofback/proofback-cli/internal/cli"
)

// Overridden at release time via -ldflags.
var (
	version   = "v1.2.0-dev"
	buildTime = "unknown"
)

func main() {
	cli.Version = version
	cli.BuildTime = buildTime

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
