// Package main is the entry point of the leapexplore CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/leapexplore/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
