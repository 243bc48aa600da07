// Package main is the entry point for the loft CLI and daemon.
package main

import (
	"os"

	"github.com/loft-linux/loft/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
