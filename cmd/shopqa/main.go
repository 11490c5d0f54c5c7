// Package main is the entry point for the shopqa CLI.
package main

import (
	"os"

	"github.com/jmylchreest/shopqa/cmd/shopqa/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
