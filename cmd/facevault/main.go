// Package main is the entry point for the facevault CLI.
package main

import (
	"os"

	"github.com/facevault/facevault/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
