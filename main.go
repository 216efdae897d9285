package main

import (
	"os"

	"github.com/battrelay/battrelay/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
