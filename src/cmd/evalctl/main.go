package main

import (
	"os"

	"github.com/fundedsim/engine/src/cmd/evalctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
