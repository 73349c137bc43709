package main

import (
	"os"

	"github.com/modware/udfhost/cmd/udfhost/cmd"
)

// main dispatches to the CLI command tree.
func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
