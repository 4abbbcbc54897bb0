// Command attest runs attribute-driven Starlark test scripts.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/attest/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		if !cli.IsReported(err) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
