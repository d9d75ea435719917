// Package main provides the LeapMerge command-line tool.
package main

import (
	"os"

	"github.com/leapstack-labs/leapmerge/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
