package main

import (
	"os"

	"github.com/rustyeddy/carteira/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
