// Package main is the entry point for the lunest CLI tool.
package main

import (
	"os"

	"github.com/lunest-run/lunest/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
