package main

import (
	"os"

	"github.com/spigell/job-board/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
