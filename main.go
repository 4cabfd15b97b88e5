// Package main is the entry point for mwctl.
package main

import (
	"fmt"
	"os"

	"middleware.otus.dev/mw/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
