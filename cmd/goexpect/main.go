package main

import (
	"fmt"
	"os"

	"github.com/goliatone/go-expect/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		if !cli.IsReported(err) {
			fmt.Fprintf(os.Stderr, "goexpect: %v\n", err)
		}
		os.Exit(1)
	}
}
