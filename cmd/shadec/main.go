package main

import (
	"fmt"
	"os"

	"github.com/luxforge/shadec/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "shadec: %v\n", err)
		os.Exit(1)
	}
}
