package main

import (
	"os"

	"github.com/existflow/devpilot/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
