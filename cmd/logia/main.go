package main

import (
	"os"

	"github.com/alucardeht/logia/cmd/logia/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
