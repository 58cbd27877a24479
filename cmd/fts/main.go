// Package main provides the entry point for the fts command-line tool.
package main

import (
	"os"

	"github.com/Adithya-Monish-Kumar-K/fts/cmd/fts/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
