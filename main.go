package main

import (
	"os"

	"github.com/latent-rl/cem-planning/benchmarks/cmd"
)

func main() {
	if err := cmd.RootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
