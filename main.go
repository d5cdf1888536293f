package main

import (
	"os"

	"github.com/seclab/promptgate/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
