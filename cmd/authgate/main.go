package main

import (
	"log/slog"
	"os"

	"github.com/Anvoria/authgate/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}
