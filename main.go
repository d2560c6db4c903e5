package main

import (
	"os"

	"github.com/minqi/banxue/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
