// Package main provides the entry point for the parsley CLI.
package main

import (
	"fmt"
	"os"

	"github.com/odvcencio/parsley/cmd/parsley/commands"
)

// Set by the linker: -ldflags "-X main.version=v1.2.3".
var version = "dev"

func main() {
	if err := commands.NewRootCommand(version).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
