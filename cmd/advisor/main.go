package main

import (
	"os"

	"github.com/vnquant/advisor/cmd/advisor/commands"
)

// main is the entry point for the advisor CLI
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
