package main

import (
	"os"

	"hirafetch/pkg/ui"
)

func main() {
	if err := Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}
