package main

import (
	"os"

	"github.com/ngenohkevin/hivedeck-drive/internal/cli"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "v1.0.0-dev"

func main() {
	cli.Version = version
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
