package main

import (
	"os"

	"github.com/solatis/antiseptic/cmd/antiseptic/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
