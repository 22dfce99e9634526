package main

import (
	"os"

	"github.com/Hankatuur/englishpod/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
