package main

import (
	"fmt"
	"os"

	"github.com/stwalsh4118/loadcalc/api/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "loadcalc: %v\n", err)
		os.Exit(1)
	}
}
