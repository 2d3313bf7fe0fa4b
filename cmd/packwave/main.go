package main

import (
	"os"

	"github.com/banshee-data/packwave/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
