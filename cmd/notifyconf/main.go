package main

import (
	"context"
	"os"
)

// main runs the notifyconf CLI.
// Params: CLI args (see --help).
// Returns: process exit code 1 on any command failure.
func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
