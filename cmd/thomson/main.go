package main

import (
	"os"

	"github.com/solatis/thomson/cmd/thomson/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
