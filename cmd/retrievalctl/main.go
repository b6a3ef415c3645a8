// Package main provides the entry point for the retrievalctl CLI.
package main

import (
	"os"

	"github.com/codegraph/retrieval/cmd/retrievalctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
