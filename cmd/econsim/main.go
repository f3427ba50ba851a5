package main

import (
	"os"

	"github.com/talgya/econsim/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
