// Command mnemokit is the thin CLI layer around the memory store: an
// `export` subcommand that renders a store's contents as the history
// JSON a visualiser consumes, a `serve` subcommand that serves that
// same JSON read-only over HTTP, and an `absorb` subcommand that
// absorbs one turn of text and prints the resulting context. None of
// the subcommands is part of the core — all sit on top of its public
// API.
package main

import (
	"fmt"
	"os"

	"github.com/kittclouds/mnemokit/cmd/mnemokit/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
