package main

import (
	"os"
	_ "time/tzdata"

	"github.com/projecteru2/debridctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		cmd.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}
