// Command aska is the entry point for the aska CLI.
package main

import (
	"fmt"
	"os"

	"github.com/custodia-labs/aska-cli/internal/adapters/driving/cli"
)

// version is overridden at build time via -ldflags.
var version = "dev"

func main() {
	cli.SetVersion(version)
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
